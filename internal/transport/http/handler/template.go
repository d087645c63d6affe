package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lexhub/internal/app"
	"lexhub/internal/repository"
	"lexhub/internal/transport/http/response"
)

type TemplateHandler struct {
	tplService *app.TemplateService
}

func NewTemplateHandler(tplService *app.TemplateService) *TemplateHandler {
	return &TemplateHandler{tplService: tplService}
}

// Publish accepts a multipart form with "file" plus title, description,
// category and price_cents fields.
func (h *TemplateHandler) Publish(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 20MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	priceCents := int64(0)
	if s := c.PostForm("price_cents"); s != "" {
		priceCents, err = strconv.ParseInt(s, 10, 64)
		if err != nil || priceCents < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid price")
			return
		}
	}

	tpl, err := h.tplService.Publish(app.PublishTemplateInput{
		SellerUserID: userID,
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		Category:     c.PostForm("category"),
		PriceCents:   priceCents,
		Data:         data,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "publish template failed")
		}
		return
	}
	response.OK(c, tpl)
}

func (h *TemplateHandler) List(c *gin.Context) {
	maxPrice := int64(0)
	if s := c.Query("max_price_cents"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			maxPrice = v
		}
	}

	result, err := h.tplService.List(repository.TemplateListFilter{
		Category:      c.Query("category"),
		MaxPriceCents: maxPrice,
		Page:          parseIntQuery(c, "page", 1),
		PageSize:      parseIntQuery(c, "page_size", 20),
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list templates failed")
		return
	}
	response.OK(c, result)
}

func (h *TemplateHandler) Get(c *gin.Context) {
	templateID, err := parseUintParam(c, "id")
	if err != nil || templateID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid template id")
		return
	}

	tpl, err := h.tplService.Get(templateID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrTemplateNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch template failed")
		}
		return
	}
	response.OK(c, tpl)
}

func (h *TemplateHandler) Purchase(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	templateID, err := parseUintParam(c, "id")
	if err != nil || templateID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid template id")
		return
	}

	purchase, err := h.tplService.Purchase(c.Request.Context(), userID, templateID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrTemplateNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case errors.Is(err, app.ErrOwnTemplateBuy):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		case errors.Is(err, app.ErrPaymentDeclined):
			response.Error(c, http.StatusPaymentRequired, response.CodePaymentDeclined, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "purchase failed")
		}
		return
	}
	response.OK(c, purchase)
}

// Download streams the template file for the seller and buyers.
func (h *TemplateHandler) Download(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	templateID, err := parseUintParam(c, "id")
	if err != nil || templateID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid template id")
		return
	}

	download, err := h.tplService.Download(c.Request.Context(), userID, templateID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrTemplateNotFound):
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
		case errors.Is(err, app.ErrNotPurchased):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "download failed")
		}
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+download.Template.Title+`"`)
	c.Data(http.StatusOK, "application/octet-stream", download.Data)
}

func (h *TemplateHandler) ListPurchases(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	purchases, err := h.tplService.ListPurchases(userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list purchases failed")
		return
	}
	response.OK(c, purchases)
}
