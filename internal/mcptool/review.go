package mcptool

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"lexhub/internal/ai"
)

const maxReviewRunes = 24000

// Completer produces one chat completion for a review prompt.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

const reviewSystemPrompt = "You are a senior Go reviewer. Review the given source for " +
	"correctness, error handling, concurrency safety and naming. Point at concrete lines. " +
	"Be brief; skip praise."

// ReviewInput is the MCP tool input for an AI code review.
type ReviewInput struct {
	Source string `json:"source" jsonschema:"source code to review"`
	Focus  string `json:"focus,omitempty" jsonschema:"optional aspect to focus on, e.g. error handling"`
}

// ReviewResult is the MCP tool output for an AI code review.
type ReviewResult struct {
	Review string `json:"review" jsonschema:"review feedback text"`
}

// ReviewTool defines the MCP tool schema for AI-assisted review.
func ReviewTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "review_source",
		Description: "Ask the configured LLM for a focused review of a source file",
	}
}

// ReviewHandler sends the source to the LLM and returns its feedback.
func ReviewHandler(completer Completer) mcp.ToolHandlerFor[ReviewInput, ReviewResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ReviewInput) (*mcp.CallToolResult, ReviewResult, error) {
		source := strings.TrimSpace(input.Source)
		if source == "" {
			return nil, ReviewResult{}, fmt.Errorf("source is required")
		}
		if runes := []rune(source); len(runes) > maxReviewRunes {
			source = string(runes[:maxReviewRunes])
		}

		prompt := "Review this code:\n\n" + source
		if focus := strings.TrimSpace(input.Focus); focus != "" {
			prompt = "Focus on " + focus + ".\n\n" + prompt
		}

		review, err := completer.Complete(ctx, []ai.ChatMessage{
			{Role: "system", Content: reviewSystemPrompt},
			{Role: "user", Content: prompt},
		})
		if err != nil {
			return nil, ReviewResult{}, fmt.Errorf("review completion failed: %w", err)
		}
		return nil, ReviewResult{Review: strings.TrimSpace(review)}, nil
	}
}
