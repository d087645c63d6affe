package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexhub/internal/model"
)

type fakeDocStore struct {
	docs        map[uint]*model.Document
	nextID      uint
	createErr   error
	setReadyErr error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[uint]*model.Document{}}
}

func (f *fakeDocStore) Create(doc *model.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	doc.ID = f.nextID
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocStore) GetByID(id uint) (*model.Document, error) {
	return f.docs[id], nil
}

func (f *fakeDocStore) GetByIDAndUserID(id, userID uint) (*model.Document, error) {
	doc := f.docs[id]
	if doc == nil || doc.UserID != userID {
		return nil, nil
	}
	return doc, nil
}

func (f *fakeDocStore) ListByUserID(userID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDocStore) DeleteByIDAndUserID(id, userID uint) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeDocStore) SetProcessing(id uint) error {
	f.docs[id].Status = model.DocumentStatusProcessing
	return nil
}

func (f *fakeDocStore) SetReady(id uint, text, summary, docType, riskNotes string) error {
	if f.setReadyErr != nil {
		return f.setReadyErr
	}
	doc := f.docs[id]
	doc.Status = model.DocumentStatusReady
	doc.Text = text
	doc.Summary = summary
	doc.DocumentType = docType
	doc.RiskNotes = riskNotes
	return nil
}

func (f *fakeDocStore) SetFailed(id uint, processErr string) error {
	doc := f.docs[id]
	doc.Status = model.DocumentStatusFailed
	doc.ProcessError = processErr
	return nil
}

type fakeChunkStore struct {
	chunks    map[uint][]model.DocumentChunk
	createErr error
	deleteErr error
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{chunks: map[uint][]model.DocumentChunk{}}
}

func (f *fakeChunkStore) CreateBatch(chunks []model.DocumentChunk) error {
	if f.createErr != nil {
		return f.createErr
	}
	if len(chunks) > 0 {
		f.chunks[chunks[0].DocumentID] = append(f.chunks[chunks[0].DocumentID], chunks...)
	}
	return nil
}

func (f *fakeChunkStore) ListByDocumentID(documentID uint) ([]model.DocumentChunk, error) {
	return f.chunks[documentID], nil
}

func (f *fakeChunkStore) DeleteByDocumentID(documentID uint) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.chunks, documentID)
	return nil
}

type fakeBlobStore struct {
	blobs   map[string][]byte
	saveErr error
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) Save(key string, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeBlobStore) Load(key string) ([]byte, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

func (f *fakeBlobStore) Delete(key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.blobs, key)
	return nil
}

type fakeTaskPublisher struct {
	err       error
	published []uint
}

func (f *fakeTaskPublisher) Publish(ctx context.Context, documentID, userID uint) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

type fakeUsageMeter struct {
	consumeDocErr      error
	consumeQuestionErr error
	docConsumed        int
	docReleased        int
	questionConsumed   int
	questionReleased   int
}

func (f *fakeUsageMeter) ConsumeDocumentUpload(ctx context.Context, userID uint) error {
	if f.consumeDocErr != nil {
		return f.consumeDocErr
	}
	f.docConsumed++
	return nil
}

func (f *fakeUsageMeter) ReleaseDocumentUpload(ctx context.Context, userID uint) error {
	f.docReleased++
	return nil
}

func (f *fakeUsageMeter) ConsumeQuestion(ctx context.Context, userID uint) error {
	if f.consumeQuestionErr != nil {
		return f.consumeQuestionErr
	}
	f.questionConsumed++
	return nil
}

func (f *fakeUsageMeter) ReleaseQuestion(ctx context.Context, userID uint) error {
	f.questionReleased++
	return nil
}

type documentServiceFixture struct {
	svc       *DocumentService
	docs      *fakeDocStore
	chunks    *fakeChunkStore
	blobs     *fakeBlobStore
	publisher *fakeTaskPublisher
	meter     *fakeUsageMeter
	analyzer  *fakeAnalyzer
}

func newDocumentServiceFixture() *documentServiceFixture {
	analyzer := &fakeAnalyzer{analysis: Analysis{Summary: "a lease", DocumentType: "lease"}}
	pipeline, _ := newTestPipeline(&fakeRecognizer{}, analyzer, &fakeEmbedder{}, PipelineOptions{
		ChunkSize:    64,
		ChunkOverlap: 8,
	})
	f := &documentServiceFixture{
		docs:      newFakeDocStore(),
		chunks:    newFakeChunkStore(),
		blobs:     newFakeBlobStore(),
		publisher: &fakeTaskPublisher{},
		meter:     &fakeUsageMeter{},
		analyzer:  analyzer,
	}
	f.svc = NewDocumentService(f.docs, f.chunks, f.publisher, f.blobs, f.meter, pipeline)
	return f
}

func uploadInput() UploadInput {
	return UploadInput{
		UserID:   1,
		Name:     "Lease",
		Filename: "lease.pdf",
		Data:     []byte("not a real pdf"),
	}
}

func TestUploadStopsWhenQuotaDenied(t *testing.T) {
	f := newDocumentServiceFixture()
	f.meter.consumeDocErr = ErrQuotaExceeded

	_, err := f.svc.Upload(context.Background(), uploadInput())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Empty(t, f.blobs.blobs)
	assert.Empty(t, f.docs.docs)
}

func TestUploadReleasesQuotaWhenBlobSaveFails(t *testing.T) {
	f := newDocumentServiceFixture()
	f.blobs.saveErr = errors.New("disk full")

	_, err := f.svc.Upload(context.Background(), uploadInput())
	require.Error(t, err)
	assert.Equal(t, 1, f.meter.docConsumed)
	assert.Equal(t, 1, f.meter.docReleased)
}

func TestUploadReleasesQuotaWhenCreateFails(t *testing.T) {
	f := newDocumentServiceFixture()
	f.docs.createErr = errors.New("db down")

	_, err := f.svc.Upload(context.Background(), uploadInput())
	require.Error(t, err)
	assert.Equal(t, 1, f.meter.docReleased)
	// The orphaned blob is cleaned up too.
	assert.Len(t, f.blobs.deleted, 1)
}

func TestUploadReleasesQuotaWhenEnqueueFails(t *testing.T) {
	f := newDocumentServiceFixture()
	f.publisher.err = errors.New("mq down")

	_, err := f.svc.Upload(context.Background(), uploadInput())
	assert.ErrorIs(t, err, ErrDocumentEnqueue)
	assert.Equal(t, 1, f.meter.docReleased)
	require.Len(t, f.docs.docs, 1)
	assert.Equal(t, model.DocumentStatusFailed, f.docs.docs[1].Status)
}

func TestUploadKeepsQuotaOnSuccess(t *testing.T) {
	f := newDocumentServiceFixture()

	doc, err := f.svc.Upload(context.Background(), uploadInput())
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusPending, doc.Status)
	assert.Equal(t, 1, f.meter.docConsumed)
	assert.Zero(t, f.meter.docReleased)
	assert.Equal(t, []uint{doc.ID}, f.publisher.published)
}

func seedPendingDocument(f *documentServiceFixture, text string) *model.Document {
	doc := &model.Document{
		UserID: 1,
		Name:   "Lease",
		Status: model.DocumentStatusPending,
		Text:   text,
	}
	_ = f.docs.Create(doc)
	return doc
}

func TestProcessPersistsChunksAndMarksReady(t *testing.T) {
	f := newDocumentServiceFixture()
	doc := seedPendingDocument(f, "the tenant shall pay rent monthly and maintain the premises in good order")

	require.NoError(t, f.svc.Process(context.Background(), doc.ID))

	assert.Equal(t, model.DocumentStatusReady, f.docs.docs[doc.ID].Status)
	assert.Equal(t, "a lease", f.docs.docs[doc.ID].Summary)
	assert.NotEmpty(t, f.chunks.chunks[doc.ID])
}

func TestProcessMarksFailedWhenPipelineFails(t *testing.T) {
	f := newDocumentServiceFixture()
	f.analyzer.failures = 100
	doc := seedPendingDocument(f, "some extracted text")

	err := f.svc.Process(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Equal(t, model.DocumentStatusFailed, f.docs.docs[doc.ID].Status)
	assert.NotEmpty(t, f.docs.docs[doc.ID].ProcessError)
}

func TestProcessMarksFailedWhenChunkPersistFails(t *testing.T) {
	f := newDocumentServiceFixture()
	f.chunks.createErr = errors.New("db down")
	doc := seedPendingDocument(f, "some extracted text")

	err := f.svc.Process(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Equal(t, model.DocumentStatusFailed, f.docs.docs[doc.ID].Status)
	assert.Contains(t, f.docs.docs[doc.ID].ProcessError, "persist chunks")
}

func TestProcessMarksFailedWhenReadyUpdateFails(t *testing.T) {
	f := newDocumentServiceFixture()
	f.docs.setReadyErr = errors.New("db down")
	doc := seedPendingDocument(f, "some extracted text")

	err := f.svc.Process(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Equal(t, model.DocumentStatusFailed, f.docs.docs[doc.ID].Status)
	assert.Contains(t, f.docs.docs[doc.ID].ProcessError, "mark ready")
}
