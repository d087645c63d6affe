package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lexhub/internal/app"
	"lexhub/internal/repository"
	"lexhub/internal/transport/http/response"
)

type FirmHandler struct {
	firmService *app.FirmService
}

type RegisterFirmRequest struct {
	Name         string `json:"name" binding:"required,max=128"`
	Description  string `json:"description" binding:"max=2000"`
	PracticeArea string `json:"practice_area" binding:"required,max=64"`
	City         string `json:"city" binding:"required,max=64"`
	Phone        string `json:"phone" binding:"max=32"`
	Website      string `json:"website" binding:"max=256"`
}

type RateFirmRequest struct {
	Stars   int    `json:"stars" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

func NewFirmHandler(firmService *app.FirmService) *FirmHandler {
	return &FirmHandler{firmService: firmService}
}

func (h *FirmHandler) Register(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req RegisterFirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	firm, err := h.firmService.RegisterFirm(c.Request.Context(), app.RegisterFirmInput{
		OwnerUserID:  userID,
		Name:         req.Name,
		Description:  req.Description,
		PracticeArea: req.PracticeArea,
		City:         req.City,
		Phone:        req.Phone,
		Website:      req.Website,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrNotLawyer):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register firm failed")
		}
		return
	}
	response.OK(c, firm)
}

// Search filters the directory by practice area, city and minimum
// rating. Results are sorted by rating.
func (h *FirmHandler) Search(c *gin.Context) {
	minRating := 0.0
	if s := c.Query("min_rating"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			minRating = v
		}
	}

	result, err := h.firmService.Search(c.Request.Context(), repository.FirmSearchFilter{
		PracticeArea: c.Query("practice_area"),
		City:         c.Query("city"),
		MinRating:    minRating,
		Page:         parseIntQuery(c, "page", 1),
		PageSize:     parseIntQuery(c, "page_size", 20),
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search firms failed")
		return
	}
	response.OK(c, result)
}

func (h *FirmHandler) Profile(c *gin.Context) {
	firmID, err := parseUintParam(c, "id")
	if err != nil || firmID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid firm id")
		return
	}

	profile, err := h.firmService.GetProfile(firmID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrFirmNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch firm failed")
		}
		return
	}
	response.OK(c, profile)
}

func (h *FirmHandler) Rate(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	firmID, err := parseUintParam(c, "id")
	if err != nil || firmID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid firm id")
		return
	}

	var req RateFirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	rating, err := h.firmService.Rate(c.Request.Context(), app.RateFirmInput{
		UserID:  userID,
		FirmID:  firmID,
		Stars:   req.Stars,
		Comment: req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrInvalidRating):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrFirmNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case errors.Is(err, app.ErrOwnFirmRating):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "rate firm failed")
		}
		return
	}
	response.OK(c, rating)
}
