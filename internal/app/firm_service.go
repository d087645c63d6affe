package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"lexhub/internal/model"
	"lexhub/internal/repository"
)

var (
	ErrFirmNotFound  = errors.New("firm not found")
	ErrNotLawyer     = errors.New("only lawyer accounts can register firms")
	ErrInvalidRating = errors.New("rating must be between 1 and 5 stars")
	ErrOwnFirmRating = errors.New("cannot rate your own firm")
)

// DirectorySearchCache caches search pages; cache failures degrade to
// database reads.
type DirectorySearchCache interface {
	GetPage(ctx context.Context, searchKey string) ([]model.LawFirm, int64, bool, error)
	SetPage(ctx context.Context, searchKey string, firms []model.LawFirm, total int64) error
	MarkDirty(ctx context.Context) error
	IsDirty(ctx context.Context) (bool, error)
}

type FirmService struct {
	firmRepo *repository.FirmRepository
	userRepo *repository.UserRepository
	cache    DirectorySearchCache
}

type RegisterFirmInput struct {
	OwnerUserID  uint
	Name         string
	Description  string
	PracticeArea string
	City         string
	Phone        string
	Website      string
}

type RateFirmInput struct {
	UserID  uint
	FirmID  uint
	Stars   int
	Comment string
}

// FirmProfile is a firm with its recent ratings.
type FirmProfile struct {
	Firm    model.LawFirm      `json:"firm"`
	Ratings []model.FirmRating `json:"ratings"`
}

type SearchFirmsResult struct {
	Firms []model.LawFirm `json:"firms"`
	Total int64           `json:"total"`
}

func NewFirmService(firmRepo *repository.FirmRepository, userRepo *repository.UserRepository, cache DirectorySearchCache) *FirmService {
	return &FirmService{
		firmRepo: firmRepo,
		userRepo: userRepo,
		cache:    cache,
	}
}

func (s *FirmService) RegisterFirm(ctx context.Context, input RegisterFirmInput) (*model.LawFirm, error) {
	if input.OwnerUserID == 0 {
		return nil, ErrInvalidInput
	}
	name := strings.TrimSpace(input.Name)
	practiceArea := strings.TrimSpace(strings.ToLower(input.PracticeArea))
	city := strings.TrimSpace(input.City)
	if name == "" || practiceArea == "" || city == "" {
		return nil, ErrInvalidInput
	}

	owner, err := s.userRepo.GetByID(input.OwnerUserID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrInvalidInput
	}
	if owner.Role != model.RoleLawyer {
		return nil, ErrNotLawyer
	}

	firm := &model.LawFirm{
		OwnerUserID:  input.OwnerUserID,
		Name:         name,
		Description:  strings.TrimSpace(input.Description),
		PracticeArea: practiceArea,
		City:         city,
		Phone:        strings.TrimSpace(input.Phone),
		Website:      strings.TrimSpace(input.Website),
	}
	if err := s.firmRepo.Create(firm); err != nil {
		return nil, err
	}
	s.invalidateDirectory(ctx)
	return firm, nil
}

func (s *FirmService) GetProfile(firmID uint) (*FirmProfile, error) {
	if firmID == 0 {
		return nil, ErrInvalidInput
	}
	firm, err := s.firmRepo.GetByID(firmID)
	if err != nil {
		return nil, err
	}
	if firm == nil {
		return nil, ErrFirmNotFound
	}
	ratings, err := s.firmRepo.ListRatings(firmID, 50)
	if err != nil {
		return nil, err
	}
	return &FirmProfile{Firm: *firm, Ratings: ratings}, nil
}

// Search serves directory pages from cache when the directory has not
// been written recently.
func (s *FirmService) Search(ctx context.Context, filter repository.FirmSearchFilter) (*SearchFirmsResult, error) {
	searchKey := searchCacheKey(filter)

	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx)
		if err == nil && !dirty {
			if firms, total, hit, cacheErr := s.cache.GetPage(ctx, searchKey); cacheErr == nil && hit {
				return &SearchFirmsResult{Firms: firms, Total: total}, nil
			}
		}
	}

	firms, total, err := s.firmRepo.Search(filter)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx); dirtyErr == nil && !dirty {
			if err := s.cache.SetPage(ctx, searchKey, firms, total); err != nil {
				log.Printf("cache directory page failed: %v", err)
			}
		}
	}
	return &SearchFirmsResult{Firms: firms, Total: total}, nil
}

func (s *FirmService) Rate(ctx context.Context, input RateFirmInput) (*model.FirmRating, error) {
	if input.UserID == 0 || input.FirmID == 0 {
		return nil, ErrInvalidInput
	}
	if input.Stars < 1 || input.Stars > 5 {
		return nil, ErrInvalidRating
	}

	firm, err := s.firmRepo.GetByID(input.FirmID)
	if err != nil {
		return nil, err
	}
	if firm == nil {
		return nil, ErrFirmNotFound
	}
	if firm.OwnerUserID == input.UserID {
		return nil, ErrOwnFirmRating
	}

	rating := &model.FirmRating{
		FirmID:  input.FirmID,
		UserID:  input.UserID,
		Stars:   input.Stars,
		Comment: strings.TrimSpace(input.Comment),
	}
	if err := s.firmRepo.UpsertRating(rating); err != nil {
		return nil, err
	}
	s.invalidateDirectory(ctx)
	return rating, nil
}

func (s *FirmService) invalidateDirectory(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MarkDirty(ctx); err != nil {
		log.Printf("mark directory dirty failed: %v", err)
	}
}

func searchCacheKey(filter repository.FirmSearchFilter) string {
	return fmt.Sprintf("%s:%s:%.1f:%d:%d",
		filter.PracticeArea, filter.City, filter.MinRating, filter.Page, filter.PageSize)
}
