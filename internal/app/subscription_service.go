package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lexhub/internal/billing"
	"lexhub/internal/model"
)

var (
	ErrUnknownPlan       = errors.New("unknown plan")
	ErrAlreadySubscribed = errors.New("plan is already active")
	ErrNoSubscription    = errors.New("no active subscription")
)

const (
	quotaKindDocuments = "documents"
	quotaKindQuestions = "questions"

	subscriptionPeriod = 30 * 24 * time.Hour
)

// Plan bundles the price and monthly quotas of a tier.
type Plan struct {
	Name          string `json:"name"`
	PriceCents    int64  `json:"price_cents"`
	DocumentQuota int64  `json:"document_quota"`
	QuestionQuota int64  `json:"question_quota"`
}

var plans = map[string]Plan{
	model.PlanFree: {Name: model.PlanFree, PriceCents: 0, DocumentQuota: 3, QuestionQuota: 10},
	model.PlanPro:  {Name: model.PlanPro, PriceCents: 2900, DocumentQuota: 50, QuestionQuota: 200},
	model.PlanFirm: {Name: model.PlanFirm, PriceCents: 9900, DocumentQuota: 500, QuestionQuota: 2000},
}

// QuotaCounter tracks metered usage per window.
type QuotaCounter interface {
	Consume(ctx context.Context, kind string, userID uint) (int64, error)
	Release(ctx context.Context, kind string, userID uint) error
	Used(ctx context.Context, kind string, userID uint) (int64, error)
}

// SubscriptionStore persists subscription rows.
type SubscriptionStore interface {
	Create(sub *model.Subscription) error
	Update(sub *model.Subscription) error
	GetActiveByUserID(userID uint) (*model.Subscription, error)
	ExpireActiveByUserID(userID uint) error
}

type SubscriptionService struct {
	subRepo SubscriptionStore
	charger Charger
	quotas  QuotaCounter
}

// SubscriptionStatus is the user's plan with current usage.
type SubscriptionStatus struct {
	Plan          Plan                `json:"plan"`
	Subscription  *model.Subscription `json:"subscription,omitempty"`
	DocumentsUsed int64               `json:"documents_used"`
	QuestionsUsed int64               `json:"questions_used"`
}

func NewSubscriptionService(subRepo SubscriptionStore, charger Charger, quotas QuotaCounter) *SubscriptionService {
	return &SubscriptionService{
		subRepo: subRepo,
		charger: charger,
		quotas:  quotas,
	}
}

// Plans lists the available tiers.
func (s *SubscriptionService) Plans() []Plan {
	return []Plan{plans[model.PlanFree], plans[model.PlanPro], plans[model.PlanFirm]}
}

// Subscribe charges the user and activates the plan, replacing any
// currently active subscription.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID uint, planName string) (*model.Subscription, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	plan, ok := plans[planName]
	if !ok || planName == model.PlanFree {
		return nil, ErrUnknownPlan
	}

	current, err := s.subRepo.GetActiveByUserID(userID)
	if err != nil {
		return nil, err
	}
	if current != nil && current.Plan == planName && current.Status == model.SubscriptionStatusActive {
		return nil, ErrAlreadySubscribed
	}

	var chargeID string
	if plan.PriceCents > 0 {
		result, err := s.charger.Charge(ctx, billing.ChargeInput{
			UserID:      userID,
			AmountCents: plan.PriceCents,
			Reference:   fmt.Sprintf("subscription:%s", planName),
		})
		if err != nil {
			if errors.Is(err, billing.ErrPaymentDeclined) {
				return nil, ErrPaymentDeclined
			}
			return nil, err
		}
		chargeID = result.ChargeID
	}

	if err := s.subRepo.ExpireActiveByUserID(userID); err != nil {
		return nil, err
	}

	now := time.Now()
	sub := &model.Subscription{
		UserID:      userID,
		Plan:        planName,
		Status:      model.SubscriptionStatusActive,
		ChargeID:    chargeID,
		PeriodStart: now,
		PeriodEnd:   now.Add(subscriptionPeriod),
	}
	if err := s.subRepo.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel marks the subscription canceled; the plan stays usable until
// the paid period ends.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uint) (*model.Subscription, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	sub, err := s.subRepo.GetActiveByUserID(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.Status != model.SubscriptionStatusActive {
		return nil, ErrNoSubscription
	}

	now := time.Now()
	sub.Status = model.SubscriptionStatusCanceled
	sub.CanceledAt = &now
	if err := s.subRepo.Update(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Status reports the effective plan and this window's usage.
func (s *SubscriptionService) Status(ctx context.Context, userID uint) (*SubscriptionStatus, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	plan, sub, err := s.effectivePlan(userID)
	if err != nil {
		return nil, err
	}

	docsUsed, err := s.quotas.Used(ctx, quotaKindDocuments, userID)
	if err != nil {
		return nil, err
	}
	questionsUsed, err := s.quotas.Used(ctx, quotaKindQuestions, userID)
	if err != nil {
		return nil, err
	}

	return &SubscriptionStatus{
		Plan:          plan,
		Subscription:  sub,
		DocumentsUsed: docsUsed,
		QuestionsUsed: questionsUsed,
	}, nil
}

// ConsumeDocumentUpload implements UsageMeter.
func (s *SubscriptionService) ConsumeDocumentUpload(ctx context.Context, userID uint) error {
	return s.consume(ctx, quotaKindDocuments, userID, func(p Plan) int64 { return p.DocumentQuota })
}

// ReleaseDocumentUpload implements UsageMeter.
func (s *SubscriptionService) ReleaseDocumentUpload(ctx context.Context, userID uint) error {
	return s.quotas.Release(ctx, quotaKindDocuments, userID)
}

// ConsumeQuestion implements UsageMeter.
func (s *SubscriptionService) ConsumeQuestion(ctx context.Context, userID uint) error {
	return s.consume(ctx, quotaKindQuestions, userID, func(p Plan) int64 { return p.QuestionQuota })
}

// ReleaseQuestion implements UsageMeter.
func (s *SubscriptionService) ReleaseQuestion(ctx context.Context, userID uint) error {
	return s.quotas.Release(ctx, quotaKindQuestions, userID)
}

func (s *SubscriptionService) consume(ctx context.Context, kind string, userID uint, limitOf func(Plan) int64) error {
	plan, _, err := s.effectivePlan(userID)
	if err != nil {
		return err
	}

	count, err := s.quotas.Consume(ctx, kind, userID)
	if err != nil {
		return err
	}
	if count > limitOf(plan) {
		if releaseErr := s.quotas.Release(ctx, kind, userID); releaseErr != nil {
			return releaseErr
		}
		return ErrQuotaExceeded
	}
	return nil
}

func (s *SubscriptionService) effectivePlan(userID uint) (Plan, *model.Subscription, error) {
	sub, err := s.subRepo.GetActiveByUserID(userID)
	if err != nil {
		return Plan{}, nil, err
	}
	if sub == nil {
		return plans[model.PlanFree], nil, nil
	}
	plan, ok := plans[sub.Plan]
	if !ok {
		return plans[model.PlanFree], sub, nil
	}
	return plan, sub, nil
}
