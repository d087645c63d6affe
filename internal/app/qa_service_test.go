package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexhub/internal/ai"
	"lexhub/internal/model"
)

func chunkWithEmbedding(id uint, content string, vec []float32) model.DocumentChunk {
	c := model.DocumentChunk{ID: id, Content: content}
	c.SetEmbedding(vec)
	return c
}

func TestRankChunksOrdersBySimilarity(t *testing.T) {
	chunks := []model.DocumentChunk{
		chunkWithEmbedding(1, "orthogonal", []float32{0, 1, 0}),
		chunkWithEmbedding(2, "identical", []float32{1, 0, 0}),
		chunkWithEmbedding(3, "close", []float32{0.9, 0.1, 0}),
	}
	query := []float32{1, 0, 0}

	selected := rankChunks(chunks, query, 2)
	require.Len(t, selected, 2)
	assert.Equal(t, uint(2), selected[0].ID)
	assert.Equal(t, uint(3), selected[1].ID)
}

func TestRankChunksCapsAtAvailableChunks(t *testing.T) {
	chunks := []model.DocumentChunk{
		chunkWithEmbedding(1, "only", []float32{1, 0}),
	}
	selected := rankChunks(chunks, []float32{1, 0}, 5)
	assert.Len(t, selected, 1)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// Mismatched or empty vectors score zero instead of panicking.
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity(nil, nil))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{0, 0}))
}

type fakeQuestionEmbedder struct {
	vec []float32
	err error
}

func (f *fakeQuestionEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeCompleter struct {
	answer string
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type askFixture struct {
	svc       *QAService
	meter     *fakeUsageMeter
	completer *fakeCompleter
	chunks    *fakeChunkStore
}

func newAskFixture() *askFixture {
	docs := newFakeDocStore()
	_ = docs.Create(&model.Document{UserID: 1, Status: model.DocumentStatusReady, Text: "lease text"})

	chunks := newFakeChunkStore()
	chunk := model.DocumentChunk{DocumentID: 1, Position: 0, Content: "rent is due monthly"}
	chunk.SetEmbedding([]float32{1, 0})
	_ = chunks.CreateBatch([]model.DocumentChunk{chunk})

	meter := &fakeUsageMeter{}
	completer := &fakeCompleter{answer: "Rent is due monthly."}
	svc := NewQAService(nil, docs, chunks, nil, &fakeQuestionEmbedder{vec: []float32{1, 0}}, completer, meter)
	return &askFixture{svc: svc, meter: meter, completer: completer, chunks: chunks}
}

func askInput() AskDocumentInput {
	return AskDocumentInput{UserID: 1, DocumentID: 1, Question: "When is rent due?"}
}

func TestAskDocumentKeepsQuotaOnSuccess(t *testing.T) {
	f := newAskFixture()

	result, err := f.svc.AskDocument(context.Background(), askInput())
	require.NoError(t, err)
	assert.Equal(t, "Rent is due monthly.", result.Answer)
	assert.Equal(t, 1, f.meter.questionConsumed)
	assert.Zero(t, f.meter.questionReleased)
}

func TestAskDocumentReleasesQuotaWhenCompletionFails(t *testing.T) {
	f := newAskFixture()
	f.completer.err = errors.New("llm down")

	_, err := f.svc.AskDocument(context.Background(), askInput())
	require.Error(t, err)
	assert.Equal(t, 1, f.meter.questionConsumed)
	assert.Equal(t, 1, f.meter.questionReleased)
}

func TestAskDocumentReleasesQuotaWhenNoChunks(t *testing.T) {
	f := newAskFixture()
	delete(f.chunks.chunks, 1)

	_, err := f.svc.AskDocument(context.Background(), askInput())
	assert.ErrorIs(t, err, ErrNoChunks)
	assert.Equal(t, 1, f.meter.questionReleased)
}

func TestAskDocumentQuotaDeniedBeforeCompletion(t *testing.T) {
	f := newAskFixture()
	f.meter.consumeQuestionErr = ErrQuotaExceeded

	_, err := f.svc.AskDocument(context.Background(), askInput())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Zero(t, f.completer.calls)
	assert.Zero(t, f.meter.questionReleased)
}
