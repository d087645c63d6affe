package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	text     string
	failures int
	calls    int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, filename string, data []byte) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("ocr unavailable")
	}
	return f.text, nil
}

type fakeAnalyzer struct {
	analysis Analysis
	failures int
	calls    int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("llm timeout")
	}
	a := f.analysis
	return &a, nil
}

type fakeEmbedder struct {
	failures int
	calls    int
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("embedding unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func newTestPipeline(ocr *fakeRecognizer, analyzer *fakeAnalyzer, embedder *fakeEmbedder, opts PipelineOptions) (*Pipeline, *[]time.Duration) {
	p := NewPipeline(ocr, analyzer, embedder, opts)
	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }
	return p, &slept
}

func TestPipelineRunProducesEqualChunkAndEmbeddingCounts(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: Analysis{Summary: "a lease", DocumentType: "lease"}}
	embedder := &fakeEmbedder{}
	p, _ := newTestPipeline(&fakeRecognizer{}, analyzer, embedder, PipelineOptions{
		ChunkSize:          10,
		ChunkOverlap:       2,
		EmbeddingBatchSize: 3,
	})

	text := strings.Repeat("lease terms and conditions ", 20)
	result, err := p.Run(context.Background(), "lease.pdf", text, nil)
	require.NoError(t, err)

	assert.Greater(t, len(result.Chunks), 1)
	assert.Equal(t, len(result.Chunks), len(result.Embeddings))
	assert.Equal(t, "a lease", result.Analysis.Summary)
	assert.Equal(t, strings.TrimSpace(text), result.Text)
}

func TestPipelineSkipsOCRWhenTextAlreadyExtracted(t *testing.T) {
	ocr := &fakeRecognizer{text: "should not be used"}
	p, _ := newTestPipeline(ocr, &fakeAnalyzer{analysis: Analysis{Summary: "s"}}, &fakeEmbedder{}, PipelineOptions{})

	_, err := p.Run(context.Background(), "doc.pdf", "extracted text from upload", nil)
	require.NoError(t, err)
	assert.Zero(t, ocr.calls)
}

func TestPipelineUsesOCRForScannedDocuments(t *testing.T) {
	ocr := &fakeRecognizer{text: "recognized scan text"}
	p, _ := newTestPipeline(ocr, &fakeAnalyzer{analysis: Analysis{Summary: "s"}}, &fakeEmbedder{}, PipelineOptions{})

	result, err := p.Run(context.Background(), "scan.pdf", "", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, "recognized scan text", result.Text)
}

func TestPipelineRetriesWithLinearBackoff(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: Analysis{Summary: "s"}, failures: 2}
	p, slept := newTestPipeline(&fakeRecognizer{}, analyzer, &fakeEmbedder{}, PipelineOptions{
		RetryAttempts:  3,
		RetryBaseDelay: 100 * time.Millisecond,
	})

	_, err := p.Run(context.Background(), "doc.pdf", "some text", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, analyzer.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *slept)
}

func TestPipelineStageExhaustionFailsRun(t *testing.T) {
	analyzer := &fakeAnalyzer{failures: 3}
	p, _ := newTestPipeline(&fakeRecognizer{}, analyzer, &fakeEmbedder{}, PipelineOptions{
		RetryAttempts: 3,
	})

	_, err := p.Run(context.Background(), "doc.pdf", "some text", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis stage failed after 3 attempts")
	assert.Equal(t, 3, analyzer.calls)
}

func TestPipelineEmbeddingFailureAfterRetriesFailsRun(t *testing.T) {
	embedder := &fakeEmbedder{failures: 10}
	p, _ := newTestPipeline(&fakeRecognizer{}, &fakeAnalyzer{analysis: Analysis{Summary: "s"}}, embedder, PipelineOptions{
		RetryAttempts: 2,
	})

	_, err := p.Run(context.Background(), "doc.pdf", "some text", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding stage failed after 2 attempts")
}

func TestPipelineEmptyDocumentFails(t *testing.T) {
	ocr := &fakeRecognizer{text: "   "}
	p, _ := newTestPipeline(ocr, &fakeAnalyzer{}, &fakeEmbedder{}, PipelineOptions{})

	_, err := p.Run(context.Background(), "blank.pdf", "", []byte{1})
	assert.ErrorIs(t, err, ErrNoText)
}

func TestChunkTextOverlaps(t *testing.T) {
	text := "abcdefghijklmnopqrst"
	chunks := chunkText(text, 8, 2)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcdefgh", chunks[0])
	assert.Equal(t, "ghijklmn", chunks[1])
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		assert.True(t, strings.HasPrefix(chunks[i], string(prev[len(prev)-2:])))
	}

	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		rebuilt.WriteString(chunks[i][2:])
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestChunkTextShortInputIsSingleChunk(t *testing.T) {
	chunks := chunkText("short", 512, 64)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0])
}

func TestParseAnalysisHandlesFencedJSON(t *testing.T) {
	raw := "```json\n{\"summary\":\"a will\",\"document_type\":\"will\",\"risk_notes\":\"no executor named\"}\n```"
	analysis := parseAnalysis(raw)

	assert.Equal(t, "a will", analysis.Summary)
	assert.Equal(t, "will", analysis.DocumentType)
	assert.Equal(t, "no executor named", analysis.RiskNotes)
}

func TestParseAnalysisFallsBackToPlainText(t *testing.T) {
	raw := "This document appears to be a rental agreement."
	analysis := parseAnalysis(raw)

	assert.Equal(t, raw, analysis.Summary)
	assert.Empty(t, analysis.DocumentType)
}

func TestChunkTextSkipsWhitespaceOnlyWindows(t *testing.T) {
	text := "abcd" + strings.Repeat(" ", 12) + "wxyz"
	chunks := chunkText(text, 4, 0)

	assert.Equal(t, []string{"abcd", "wxyz"}, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestPipelineRunSurvivesInteriorWhitespaceRuns(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: Analysis{Summary: "s"}}
	p, _ := newTestPipeline(&fakeRecognizer{}, analyzer, &fakeEmbedder{}, PipelineOptions{
		ChunkSize:          4,
		ChunkOverlap:       0,
		EmbeddingBatchSize: 2,
	})

	text := "abcd" + strings.Repeat(" ", 12) + "wxyz"
	result, err := p.Run(context.Background(), "doc.pdf", text, nil)
	require.NoError(t, err)
	assert.Len(t, result.Embeddings, len(result.Chunks))
}
