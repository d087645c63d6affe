package app

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"strings"

	"lexhub/internal/ai"
	"lexhub/internal/model"
)

const defaultTopK = 5

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrNotQuestionOwner = errors.New("only the question owner can accept an answer")
	ErrNoChunks         = errors.New("no chunks found for retrieval")
)

// QuestionEmbedder embeds a single query for retrieval.
type QuestionEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChatCompleter produces one grounded completion.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// QAStore persists community questions and answers.
type QAStore interface {
	CreateQuestion(q *model.Question) error
	GetQuestionByID(id uint) (*model.Question, error)
	ListQuestions(category string, page, pageSize int) ([]model.Question, int64, error)
	CreateAnswer(a *model.Answer) error
	GetAnswerByID(id uint) (*model.Answer, error)
	ListAnswersByQuestionID(questionID uint) ([]model.Answer, error)
	SetAcceptedAnswer(questionID, answerID uint) error
}

type QAService struct {
	qaRepo    QAStore
	docRepo   DocumentStore
	chunkRepo ChunkStore
	userRepo  UserStore
	embedder  QuestionEmbedder
	completer ChatCompleter
	meter     UsageMeter
}

type AskDocumentInput struct {
	UserID     uint
	DocumentID uint
	Question   string
	TopK       int
}

type AskDocumentResult struct {
	Answer string                `json:"answer"`
	Chunks []model.DocumentChunk `json:"chunks"`
}

type PostQuestionInput struct {
	UserID   uint
	Title    string
	Body     string
	Category string
}

type PostAnswerInput struct {
	UserID     uint
	QuestionID uint
	Body       string
}

// QuestionThread is a question with its answers.
type QuestionThread struct {
	Question model.Question `json:"question"`
	Answers  []model.Answer `json:"answers"`
}

func NewQAService(
	qaRepo QAStore,
	docRepo DocumentStore,
	chunkRepo ChunkStore,
	userRepo UserStore,
	embedder QuestionEmbedder,
	completer ChatCompleter,
	meter UsageMeter,
) *QAService {
	return &QAService{
		qaRepo:    qaRepo,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		userRepo:  userRepo,
		embedder:  embedder,
		completer: completer,
		meter:     meter,
	}
}

// AskDocument retrieves the top-k relevant chunks of a ready document
// and asks the LLM to answer from them only.
func (s *QAService) AskDocument(ctx context.Context, input AskDocumentInput) (*AskDocumentResult, error) {
	if input.UserID == 0 || input.DocumentID == 0 {
		return nil, ErrInvalidInput
	}
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	doc, err := s.docRepo.GetByIDAndUserID(input.DocumentID, input.UserID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if doc.Status != model.DocumentStatusReady {
		return nil, ErrDocumentNotReady
	}

	if s.meter != nil {
		if err := s.meter.ConsumeQuestion(ctx, input.UserID); err != nil {
			return nil, err
		}
	}

	result, err := s.answerFromChunks(ctx, doc.ID, question, input.TopK)
	if err != nil {
		// The question never reached the model (or the model failed);
		// give the quota unit back.
		s.releaseQuestionQuota(ctx, input.UserID)
		return nil, err
	}
	return result, nil
}

func (s *QAService) answerFromChunks(ctx context.Context, documentID uint, question string, topK int) (*AskDocumentResult, error) {
	chunks, err := s.chunkRepo.ListByDocumentID(documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	queryEmb, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	if topK <= 0 {
		topK = defaultTopK
	}
	selected := rankChunks(chunks, queryEmb, topK)

	var contextBlock strings.Builder
	for _, c := range selected {
		contextBlock.WriteString("\n---\n")
		contextBlock.WriteString(c.Content)
	}
	contextBlock.WriteString("\n---")

	messages := []ai.ChatMessage{
		{
			Role: "system",
			Content: "You are a legal assistant. Answer the user's question based only on the " +
				"following excerpts from their document. If the excerpts do not contain enough " +
				"information, say so. Do not give definitive legal advice; recommend consulting " +
				"a lawyer for binding interpretation.",
		},
		{
			Role:    "user",
			Content: "Excerpts:" + contextBlock.String() + "\n\nQuestion: " + question + "\n\nAnswer:",
		},
	}
	answer, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &AskDocumentResult{
		Answer: strings.TrimSpace(answer),
		Chunks: selected,
	}, nil
}

func (s *QAService) releaseQuestionQuota(ctx context.Context, userID uint) {
	if s.meter == nil {
		return
	}
	if err := s.meter.ReleaseQuestion(ctx, userID); err != nil {
		log.Printf("release question quota for user %d failed: %v", userID, err)
	}
}

func (s *QAService) PostQuestion(input PostQuestionInput) (*model.Question, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if title == "" || body == "" {
		return nil, ErrInvalidInput
	}

	question := &model.Question{
		UserID:   input.UserID,
		Title:    title,
		Body:     body,
		Category: strings.TrimSpace(input.Category),
	}
	if err := s.qaRepo.CreateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QAService) ListQuestions(category string, page, pageSize int) ([]model.Question, int64, error) {
	return s.qaRepo.ListQuestions(strings.TrimSpace(category), page, pageSize)
}

func (s *QAService) GetThread(questionID uint) (*QuestionThread, error) {
	if questionID == 0 {
		return nil, ErrInvalidInput
	}
	question, err := s.qaRepo.GetQuestionByID(questionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, ErrQuestionNotFound
	}
	answers, err := s.qaRepo.ListAnswersByQuestionID(questionID)
	if err != nil {
		return nil, err
	}
	return &QuestionThread{Question: *question, Answers: answers}, nil
}

func (s *QAService) PostAnswer(input PostAnswerInput) (*model.Answer, error) {
	if input.UserID == 0 || input.QuestionID == 0 {
		return nil, ErrInvalidInput
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, ErrInvalidInput
	}

	question, err := s.qaRepo.GetQuestionByID(input.QuestionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, ErrQuestionNotFound
	}

	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidInput
	}

	answer := &model.Answer{
		QuestionID: input.QuestionID,
		UserID:     input.UserID,
		Body:       body,
		FromLawyer: user.Role == model.RoleLawyer,
	}
	if err := s.qaRepo.CreateAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (s *QAService) AcceptAnswer(userID, questionID, answerID uint) error {
	if userID == 0 || questionID == 0 || answerID == 0 {
		return ErrInvalidInput
	}

	question, err := s.qaRepo.GetQuestionByID(questionID)
	if err != nil {
		return err
	}
	if question == nil {
		return ErrQuestionNotFound
	}
	if question.UserID != userID {
		return ErrNotQuestionOwner
	}

	answer, err := s.qaRepo.GetAnswerByID(answerID)
	if err != nil {
		return err
	}
	if answer == nil || answer.QuestionID != questionID {
		return ErrAnswerNotFound
	}

	return s.qaRepo.SetAcceptedAnswer(questionID, answerID)
}

// rankChunks scores chunks by cosine similarity and returns the top k
// in descending score order.
func rankChunks(chunks []model.DocumentChunk, query []float32, k int) []model.DocumentChunk {
	type scored struct {
		chunk model.DocumentChunk
		score float32
	}
	ranked := make([]scored, len(chunks))
	for i := range chunks {
		ranked[i] = scored{chunk: chunks[i], score: cosineSimilarity(query, chunks[i].EmbeddingVector())}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	selected := make([]model.DocumentChunk, k)
	for i := 0; i < k; i++ {
		selected[i] = ranked[i].chunk
	}
	return selected
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
