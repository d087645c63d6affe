package app

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"lexhub/internal/model"
	"lexhub/internal/pkg/pdfextract"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentNotReady = errors.New("document is not ready")
	ErrUnsupportedFile  = errors.New("only PDF files are supported")
	ErrDocumentEnqueue  = errors.New("document enqueue failed")
	ErrQuotaExceeded    = errors.New("plan quota exceeded")
)

// ProcessTaskPublisher hands a document off to the async worker.
type ProcessTaskPublisher interface {
	Publish(ctx context.Context, documentID, userID uint) error
}

// BlobStore persists raw uploads by storage key.
type BlobStore interface {
	Save(key string, data []byte) error
	Load(key string) ([]byte, error)
	Delete(key string) error
}

// UsageMeter enforces plan quotas before metered operations run. The
// Release methods give back a unit consumed for an operation that then
// failed before doing any work.
type UsageMeter interface {
	ConsumeDocumentUpload(ctx context.Context, userID uint) error
	ReleaseDocumentUpload(ctx context.Context, userID uint) error
	ConsumeQuestion(ctx context.Context, userID uint) error
	ReleaseQuestion(ctx context.Context, userID uint) error
}

// DocumentStore persists document rows and their status transitions.
type DocumentStore interface {
	Create(doc *model.Document) error
	GetByID(id uint) (*model.Document, error)
	GetByIDAndUserID(id, userID uint) (*model.Document, error)
	ListByUserID(userID uint) ([]model.Document, error)
	DeleteByIDAndUserID(id, userID uint) error
	SetProcessing(id uint) error
	SetReady(id uint, text, summary, docType, riskNotes string) error
	SetFailed(id uint, processErr string) error
}

// ChunkStore persists document chunks with their embeddings.
type ChunkStore interface {
	CreateBatch(chunks []model.DocumentChunk) error
	ListByDocumentID(documentID uint) ([]model.DocumentChunk, error)
	DeleteByDocumentID(documentID uint) error
}

type DocumentService struct {
	docRepo   DocumentStore
	chunkRepo ChunkStore
	publisher ProcessTaskPublisher
	blobs     BlobStore
	meter     UsageMeter
	pipeline  *Pipeline
}

type UploadInput struct {
	UserID   uint
	Name     string
	Filename string
	Data     []byte
}

func NewDocumentService(
	docRepo DocumentStore,
	chunkRepo ChunkStore,
	publisher ProcessTaskPublisher,
	blobs BlobStore,
	meter UsageMeter,
	pipeline *Pipeline,
) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		publisher: publisher,
		blobs:     blobs,
		meter:     meter,
		pipeline:  pipeline,
	}
}

// Upload stores the raw file, extracts text when the PDF has a text
// layer, and enqueues the processing pipeline.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.UserID == 0 || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	if strings.ToLower(filepath.Ext(input.Filename)) != ".pdf" {
		return nil, ErrUnsupportedFile
	}

	if s.meter != nil {
		if err := s.meter.ConsumeDocumentUpload(ctx, input.UserID); err != nil {
			return nil, err
		}
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.TrimSuffix(input.Filename, filepath.Ext(input.Filename))
		if name == "" {
			name = "Untitled"
		}
	}

	// Scanned PDFs legitimately extract to nothing; the pipeline sends
	// those through OCR.
	text, err := pdfextract.ExtractTextBytes(input.Data)
	if err != nil {
		log.Printf("local pdf extraction failed for %q, deferring to ocr: %v", input.Filename, err)
		text = ""
	}

	storageKey := uuid.NewString()
	if err := s.blobs.Save(storageKey, input.Data); err != nil {
		s.releaseUploadQuota(ctx, input.UserID)
		return nil, err
	}

	doc := &model.Document{
		UserID:     input.UserID,
		Name:       name,
		StorageKey: storageKey,
		SizeBytes:  int64(len(input.Data)),
		Status:     model.DocumentStatusPending,
		Text:       strings.TrimSpace(text),
	}
	if err := s.docRepo.Create(doc); err != nil {
		_ = s.blobs.Delete(storageKey)
		s.releaseUploadQuota(ctx, input.UserID)
		return nil, err
	}

	if s.publisher == nil {
		s.releaseUploadQuota(ctx, input.UserID)
		return nil, ErrDocumentEnqueue
	}
	if err := s.publisher.Publish(ctx, doc.ID, doc.UserID); err != nil {
		if failErr := s.docRepo.SetFailed(doc.ID, "enqueue failed: "+err.Error()); failErr != nil {
			log.Printf("mark document %d failed after enqueue error: %v", doc.ID, failErr)
		}
		s.releaseUploadQuota(ctx, input.UserID)
		return nil, ErrDocumentEnqueue
	}

	return doc, nil
}

// releaseUploadQuota gives back the quota unit consumed for an upload
// that failed before the document was accepted.
func (s *DocumentService) releaseUploadQuota(ctx context.Context, userID uint) {
	if s.meter == nil {
		return
	}
	if err := s.meter.ReleaseDocumentUpload(ctx, userID); err != nil {
		log.Printf("release upload quota for user %d failed: %v", userID, err)
	}
}

// Process runs the full pipeline for a queued document. Called by the
// worker; any stage failure is terminal for this document.
func (s *DocumentService) Process(ctx context.Context, documentID uint) error {
	doc, err := s.docRepo.GetByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if doc.Status == model.DocumentStatusReady {
		return nil
	}

	if err := s.docRepo.SetProcessing(doc.ID); err != nil {
		return err
	}

	var raw []byte
	if strings.TrimSpace(doc.Text) == "" {
		raw, err = s.blobs.Load(doc.StorageKey)
		if err != nil {
			s.markFailed(doc.ID, "load blob: "+err.Error())
			return err
		}
	}

	result, err := s.pipeline.Run(ctx, doc.Name+".pdf", doc.Text, raw)
	if err != nil {
		s.markFailed(doc.ID, err.Error())
		return err
	}

	// Replace chunks from any earlier attempt before persisting. A
	// persist failure is as terminal as a pipeline failure; the row
	// must not stay in processing.
	if err := s.chunkRepo.DeleteByDocumentID(doc.ID); err != nil {
		s.markFailed(doc.ID, "clear previous chunks: "+err.Error())
		return err
	}
	chunks := make([]model.DocumentChunk, len(result.Chunks))
	for i := range result.Chunks {
		chunks[i] = model.DocumentChunk{
			DocumentID: doc.ID,
			Position:   i,
			Content:    result.Chunks[i],
		}
		chunks[i].SetEmbedding(result.Embeddings[i])
	}
	if err := s.chunkRepo.CreateBatch(chunks); err != nil {
		s.markFailed(doc.ID, "persist chunks: "+err.Error())
		return err
	}

	if err := s.docRepo.SetReady(
		doc.ID,
		result.Text,
		result.Analysis.Summary,
		result.Analysis.DocumentType,
		result.Analysis.RiskNotes,
	); err != nil {
		s.markFailed(doc.ID, "mark ready: "+err.Error())
		return err
	}
	return nil
}

func (s *DocumentService) markFailed(documentID uint, reason string) {
	if err := s.docRepo.SetFailed(documentID, reason); err != nil {
		log.Printf("mark document %d failed: %v", documentID, err)
	}
}

func (s *DocumentService) Get(userID, documentID uint) (*model.Document, error) {
	if userID == 0 || documentID == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(userID uint) ([]model.Document, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docRepo.ListByUserID(userID)
}

func (s *DocumentService) Delete(userID, documentID uint) error {
	if userID == 0 || documentID == 0 {
		return ErrInvalidInput
	}
	doc, err := s.docRepo.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.chunkRepo.DeleteByDocumentID(doc.ID); err != nil {
		return err
	}
	if err := s.docRepo.DeleteByIDAndUserID(doc.ID, userID); err != nil {
		return err
	}
	if err := s.blobs.Delete(doc.StorageKey); err != nil {
		log.Printf("delete blob %s failed: %v", doc.StorageKey, err)
	}
	return nil
}
