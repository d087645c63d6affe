package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNoText = errors.New("document contains no recognizable text")

// Analysis is the structured output of the AI review stage.
type Analysis struct {
	Summary      string `json:"summary"`
	DocumentType string `json:"document_type"`
	RiskNotes    string `json:"risk_notes"`
}

// TextRecognizer turns scanned document bytes into text (remote OCR).
type TextRecognizer interface {
	Recognize(ctx context.Context, filename string, data []byte) (string, error)
}

// DocumentAnalyzer produces the legal analysis for extracted text.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

// EmbeddingProvider embeds chunk batches for retrieval.
type EmbeddingProvider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// PipelineOptions tune retry and chunking behavior.
type PipelineOptions struct {
	RetryAttempts      int
	RetryBaseDelay     time.Duration
	ChunkSize          int
	ChunkOverlap       int
	EmbeddingBatchSize int
}

func (o PipelineOptions) withDefaults() PipelineOptions {
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 500 * time.Millisecond
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 512
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 8
	}
	if o.EmbeddingBatchSize <= 0 {
		o.EmbeddingBatchSize = 10
	}
	return o
}

// Pipeline runs the document-processing stages in order: text
// acquisition, AI analysis, chunking, embedding. Every remote stage is
// wrapped in bounded retry with linear backoff; exhausting retries on
// any stage fails the whole run.
type Pipeline struct {
	ocr      TextRecognizer
	analyzer DocumentAnalyzer
	embedder EmbeddingProvider
	opts     PipelineOptions
	sleep    func(time.Duration)
}

// PipelineResult carries everything the caller persists. Chunks and
// Embeddings always have equal length.
type PipelineResult struct {
	Text       string
	Analysis   Analysis
	Chunks     []string
	Embeddings [][]float32
}

func NewPipeline(ocr TextRecognizer, analyzer DocumentAnalyzer, embedder EmbeddingProvider, opts PipelineOptions) *Pipeline {
	return &Pipeline{
		ocr:      ocr,
		analyzer: analyzer,
		embedder: embedder,
		opts:     opts.withDefaults(),
		sleep:    time.Sleep,
	}
}

// Run processes one document. extractedText is the locally extracted
// text from upload time; when empty the raw bytes go through OCR.
func (p *Pipeline) Run(ctx context.Context, filename, extractedText string, raw []byte) (*PipelineResult, error) {
	text := strings.TrimSpace(extractedText)
	if text == "" {
		var recognized string
		err := p.withRetry(ctx, "ocr", func() error {
			var stageErr error
			recognized, stageErr = p.ocr.Recognize(ctx, filename, raw)
			return stageErr
		})
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(recognized)
	}
	if text == "" {
		return nil, ErrNoText
	}

	var analysis *Analysis
	err := p.withRetry(ctx, "analysis", func() error {
		var stageErr error
		analysis, stageErr = p.analyzer.Analyze(ctx, text)
		return stageErr
	})
	if err != nil {
		return nil, err
	}

	chunks := chunkText(text, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return nil, ErrNoText
	}

	embeddings := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += p.opts.EmbeddingBatchSize {
		end := i + p.opts.EmbeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		var batched [][]float32
		err := p.withRetry(ctx, "embedding", func() error {
			var stageErr error
			batched, stageErr = p.embedder.EmbedBatch(ctx, batch)
			return stageErr
		})
		if err != nil {
			return nil, err
		}
		if len(batched) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(batched), len(batch))
		}
		embeddings = append(embeddings, batched...)
	}

	return &PipelineResult{
		Text:       text,
		Analysis:   *analysis,
		Chunks:     chunks,
		Embeddings: embeddings,
	}, nil
}

func (p *Pipeline) withRetry(ctx context.Context, stage string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.opts.RetryAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s stage aborted: %w", stage, ctx.Err())
		}
		if attempt < p.opts.RetryAttempts {
			p.sleep(time.Duration(attempt) * p.opts.RetryBaseDelay)
		}
	}
	return fmt.Errorf("%s stage failed after %d attempts: %w", stage, p.opts.RetryAttempts, lastErr)
}

// chunkText splits text into overlapping chunks by rune count.
// Whitespace-only windows (long interior whitespace runs) are skipped;
// the embedding API rejects empty inputs.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 512
	}
	if overlap >= size {
		overlap = size / 2
	}
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := string(runes[i:end]); strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		i += size - overlap
		if i >= len(runes) {
			break
		}
	}
	return chunks
}
