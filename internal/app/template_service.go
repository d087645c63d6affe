package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"lexhub/internal/billing"
	"lexhub/internal/model"
	"lexhub/internal/repository"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrNotPurchased     = errors.New("template has not been purchased")
	ErrPaymentDeclined  = errors.New("payment was declined")
	ErrOwnTemplateBuy   = errors.New("cannot purchase your own template")
)

// Charger executes payments against the remote billing function.
type Charger interface {
	Charge(ctx context.Context, input billing.ChargeInput) (*billing.ChargeResult, error)
}

type TemplateService struct {
	tplRepo *repository.TemplateRepository
	blobs   BlobStore
	charger Charger
}

type PublishTemplateInput struct {
	SellerUserID uint
	Title        string
	Description  string
	Category     string
	PriceCents   int64
	Data         []byte
}

type TemplateListResult struct {
	Templates []model.Template `json:"templates"`
	Total     int64            `json:"total"`
}

// TemplateDownload is the purchased file and its listing metadata.
type TemplateDownload struct {
	Template model.Template
	Data     []byte
}

func NewTemplateService(tplRepo *repository.TemplateRepository, blobs BlobStore, charger Charger) *TemplateService {
	return &TemplateService{
		tplRepo: tplRepo,
		blobs:   blobs,
		charger: charger,
	}
}

func (s *TemplateService) Publish(input PublishTemplateInput) (*model.Template, error) {
	if input.SellerUserID == 0 || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	category := strings.TrimSpace(strings.ToLower(input.Category))
	if title == "" || category == "" || input.PriceCents < 0 {
		return nil, ErrInvalidInput
	}

	storageKey := uuid.NewString()
	if err := s.blobs.Save(storageKey, input.Data); err != nil {
		return nil, err
	}

	tpl := &model.Template{
		SellerUserID: input.SellerUserID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Category:     category,
		PriceCents:   input.PriceCents,
		StorageKey:   storageKey,
		Published:    true,
	}
	if err := s.tplRepo.Create(tpl); err != nil {
		_ = s.blobs.Delete(storageKey)
		return nil, err
	}
	return tpl, nil
}

func (s *TemplateService) List(filter repository.TemplateListFilter) (*TemplateListResult, error) {
	templates, total, err := s.tplRepo.List(filter)
	if err != nil {
		return nil, err
	}
	return &TemplateListResult{Templates: templates, Total: total}, nil
}

func (s *TemplateService) Get(templateID uint) (*model.Template, error) {
	if templateID == 0 {
		return nil, ErrInvalidInput
	}
	tpl, err := s.tplRepo.GetByID(templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil || !tpl.Published {
		return nil, ErrTemplateNotFound
	}
	return tpl, nil
}

// Purchase charges the buyer and records the purchase. Re-purchasing is
// idempotent: the existing purchase is returned without a new charge.
func (s *TemplateService) Purchase(ctx context.Context, userID, templateID uint) (*model.TemplatePurchase, error) {
	if userID == 0 || templateID == 0 {
		return nil, ErrInvalidInput
	}

	tpl, err := s.Get(templateID)
	if err != nil {
		return nil, err
	}
	if tpl.SellerUserID == userID {
		return nil, ErrOwnTemplateBuy
	}

	existing, err := s.tplRepo.GetPurchase(templateID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	purchase := &model.TemplatePurchase{
		TemplateID: templateID,
		UserID:     userID,
		PriceCents: tpl.PriceCents,
	}

	if tpl.PriceCents > 0 {
		result, err := s.charger.Charge(ctx, billing.ChargeInput{
			UserID:      userID,
			AmountCents: tpl.PriceCents,
			Reference:   fmt.Sprintf("template:%d", templateID),
		})
		if err != nil {
			if errors.Is(err, billing.ErrPaymentDeclined) {
				return nil, ErrPaymentDeclined
			}
			return nil, err
		}
		purchase.ChargeID = result.ChargeID
	}

	if err := s.tplRepo.CreatePurchase(purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

// Download returns the template file for buyers and the seller.
func (s *TemplateService) Download(ctx context.Context, userID, templateID uint) (*TemplateDownload, error) {
	if userID == 0 || templateID == 0 {
		return nil, ErrInvalidInput
	}

	tpl, err := s.tplRepo.GetByID(templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, ErrTemplateNotFound
	}

	if tpl.SellerUserID != userID && tpl.PriceCents > 0 {
		purchase, err := s.tplRepo.GetPurchase(templateID, userID)
		if err != nil {
			return nil, err
		}
		if purchase == nil {
			return nil, ErrNotPurchased
		}
	}

	data, err := s.blobs.Load(tpl.StorageKey)
	if err != nil {
		return nil, err
	}
	return &TemplateDownload{Template: *tpl, Data: data}, nil
}

func (s *TemplateService) ListPurchases(userID uint) ([]model.TemplatePurchase, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.tplRepo.ListPurchasesByUserID(userID)
}
