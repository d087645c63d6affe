package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexhub/internal/app"
	"lexhub/internal/transport/http/response"
)

type QAHandler struct {
	qaService *app.QAService
}

type PostQuestionRequest struct {
	Title    string `json:"title" binding:"required,max=256"`
	Body     string `json:"body" binding:"required,max=10000"`
	Category string `json:"category" binding:"max=64"`
}

type PostAnswerRequest struct {
	Body string `json:"body" binding:"required,max=10000"`
}

type AcceptAnswerRequest struct {
	AnswerID uint `json:"answer_id" binding:"required"`
}

func NewQAHandler(qaService *app.QAService) *QAHandler {
	return &QAHandler{qaService: qaService}
}

func (h *QAHandler) PostQuestion(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req PostQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	question, err := h.qaService.PostQuestion(app.PostQuestionInput{
		UserID:   userID,
		Title:    req.Title,
		Body:     req.Body,
		Category: req.Category,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "post question failed")
		}
		return
	}
	response.OK(c, question)
}

func (h *QAHandler) ListQuestions(c *gin.Context) {
	questions, total, err := h.qaService.ListQuestions(
		c.Query("category"),
		parseIntQuery(c, "page", 1),
		parseIntQuery(c, "page_size", 20),
	)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list questions failed")
		return
	}
	response.OK(c, gin.H{"questions": questions, "total": total})
}

func (h *QAHandler) GetThread(c *gin.Context) {
	questionID, err := parseUintParam(c, "id")
	if err != nil || questionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid question id")
		return
	}

	thread, err := h.qaService.GetThread(questionID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrQuestionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch question failed")
		}
		return
	}
	response.OK(c, thread)
}

func (h *QAHandler) PostAnswer(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	questionID, err := parseUintParam(c, "id")
	if err != nil || questionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid question id")
		return
	}

	var req PostAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.qaService.PostAnswer(app.PostAnswerInput{
		UserID:     userID,
		QuestionID: questionID,
		Body:       req.Body,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrQuestionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "post answer failed")
		}
		return
	}
	response.OK(c, answer)
}

func (h *QAHandler) AcceptAnswer(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	questionID, err := parseUintParam(c, "id")
	if err != nil || questionID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid question id")
		return
	}

	var req AcceptAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.qaService.AcceptAnswer(userID, questionID, req.AnswerID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrQuestionNotFound), errors.Is(err, app.ErrAnswerNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case errors.Is(err, app.ErrNotQuestionOwner):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "accept answer failed")
		}
		return
	}
	response.OK(c, gin.H{"accepted_answer_id": req.AnswerID})
}
