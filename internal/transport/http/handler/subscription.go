package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexhub/internal/app"
	"lexhub/internal/transport/http/response"
)

type SubscriptionHandler struct {
	subService *app.SubscriptionService
}

type SubscribeRequest struct {
	Plan string `json:"plan" binding:"required,oneof=pro firm"`
}

func NewSubscriptionHandler(subService *app.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService}
}

func (h *SubscriptionHandler) Plans(c *gin.Context) {
	response.OK(c, h.subService.Plans())
}

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	sub, err := h.subService.Subscribe(c.Request.Context(), userID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownPlan):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrAlreadySubscribed):
			response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
		case errors.Is(err, app.ErrPaymentDeclined):
			response.Error(c, http.StatusPaymentRequired, response.CodePaymentDeclined, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "subscribe failed")
		}
		return
	}
	response.OK(c, sub)
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	sub, err := h.subService.Cancel(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNoSubscription):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "cancel failed")
		}
		return
	}
	response.OK(c, sub)
}

func (h *SubscriptionHandler) Status(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	status, err := h.subService.Status(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch subscription failed")
		return
	}
	response.OK(c, status)
}
