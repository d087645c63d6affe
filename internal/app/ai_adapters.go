package app

import (
	"context"
	"encoding/json"
	"strings"

	"lexhub/internal/ai"
)

const analysisSystemPrompt = "You are a legal document analyst. Given the full text of a document, " +
	"respond with a JSON object containing exactly these keys: " +
	`"summary" (plain-language summary, max 300 words), ` +
	`"document_type" (short classification such as lease, NDA, employment contract, will), ` +
	`"risk_notes" (clauses or omissions a layperson should have reviewed by a lawyer). ` +
	"Respond with JSON only, no markdown fences."

// maxAnalysisRunes caps how much document text goes into one analysis
// request; longer documents are truncated, the chunks still cover the
// full text for retrieval.
const maxAnalysisRunes = 24000

// LLMAnalyzer implements DocumentAnalyzer over the OpenAI-compatible
// chat API.
type LLMAnalyzer struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.ChatConfig
}

func NewLLMAnalyzer(client *ai.OpenAICompatibleClient, cfg ai.ChatConfig) *LLMAnalyzer {
	return &LLMAnalyzer{client: client, cfg: cfg}
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	runes := []rune(text)
	if len(runes) > maxAnalysisRunes {
		text = string(runes[:maxAnalysisRunes])
	}

	messages := []ai.ChatMessage{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: text},
	}
	raw, err := a.client.Complete(ctx, a.cfg, messages)
	if err != nil {
		return nil, err
	}
	return parseAnalysis(raw), nil
}

// parseAnalysis tolerates models that wrap JSON in fences or ignore the
// format entirely; in the worst case the whole reply becomes the summary.
func parseAnalysis(raw string) *Analysis {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil || analysis.Summary == "" {
		return &Analysis{Summary: strings.TrimSpace(raw)}
	}
	return &analysis
}

// ConfiguredEmbedder implements EmbeddingProvider by binding the shared
// client to the configured embedding model.
type ConfiguredEmbedder struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.EmbeddingConfig
}

func NewConfiguredEmbedder(client *ai.OpenAICompatibleClient, cfg ai.EmbeddingConfig) *ConfiguredEmbedder {
	return &ConfiguredEmbedder{client: client, cfg: cfg}
}

func (e *ConfiguredEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.EmbedBatch(ctx, e.cfg, texts)
}

func (e *ConfiguredEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.cfg, text)
}

// ConfiguredCompleter binds the shared client to the configured chat
// model for single-shot completions.
type ConfiguredCompleter struct {
	client *ai.OpenAICompatibleClient
	cfg    ai.ChatConfig
}

func NewConfiguredCompleter(client *ai.OpenAICompatibleClient, cfg ai.ChatConfig) *ConfiguredCompleter {
	return &ConfiguredCompleter{client: client, cfg: cfg}
}

func (c *ConfiguredCompleter) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	return c.client.Complete(ctx, c.cfg, messages)
}
