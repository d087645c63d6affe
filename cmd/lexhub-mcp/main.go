package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"lexhub/internal/ai"
	appsvc "lexhub/internal/app"
	"lexhub/internal/config"
	"lexhub/internal/mcptool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	var completer mcptool.Completer
	if cfg.LLM.APIKey != "" {
		completer = appsvc.NewConfiguredCompleter(ai.NewOpenAICompatibleClient(), ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})
	} else {
		log.Print("no LLM api key configured, review_source tool disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcptool.NewServer(completer)
	if err := server.Serve(ctx); err != nil {
		log.Fatalf("mcp server failed: %v", err)
	}
}
