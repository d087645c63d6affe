package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexhub/internal/billing"
	"lexhub/internal/model"
)

type fakeSubStore struct {
	active  *model.Subscription
	created []*model.Subscription
	expired int
}

func (f *fakeSubStore) Create(sub *model.Subscription) error {
	sub.ID = uint(len(f.created) + 1)
	f.created = append(f.created, sub)
	f.active = sub
	return nil
}

func (f *fakeSubStore) Update(sub *model.Subscription) error { return nil }

func (f *fakeSubStore) GetActiveByUserID(userID uint) (*model.Subscription, error) {
	return f.active, nil
}

func (f *fakeSubStore) ExpireActiveByUserID(userID uint) error {
	f.expired++
	f.active = nil
	return nil
}

type fakeCharger struct {
	err     error
	charges []billing.ChargeInput
}

func (f *fakeCharger) Charge(ctx context.Context, input billing.ChargeInput) (*billing.ChargeResult, error) {
	f.charges = append(f.charges, input)
	if f.err != nil {
		return nil, f.err
	}
	return &billing.ChargeResult{ChargeID: "ch_1", Status: "succeeded"}, nil
}

type fakeQuotaCounter struct {
	counts   map[string]int64
	released []string
}

func newFakeQuotaCounter() *fakeQuotaCounter {
	return &fakeQuotaCounter{counts: map[string]int64{}}
}

func (f *fakeQuotaCounter) Consume(ctx context.Context, kind string, userID uint) (int64, error) {
	f.counts[kind]++
	return f.counts[kind], nil
}

func (f *fakeQuotaCounter) Release(ctx context.Context, kind string, userID uint) error {
	f.counts[kind]--
	f.released = append(f.released, kind)
	return nil
}

func (f *fakeQuotaCounter) Used(ctx context.Context, kind string, userID uint) (int64, error) {
	return f.counts[kind], nil
}

func TestFreePlanDocumentQuota(t *testing.T) {
	quotas := newFakeQuotaCounter()
	svc := NewSubscriptionService(&fakeSubStore{}, &fakeCharger{}, quotas)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.ConsumeDocumentUpload(ctx, 1))
	}

	err := svc.ConsumeDocumentUpload(ctx, 1)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	// The denied attempt must not count against the window.
	assert.Equal(t, int64(3), quotas.counts[quotaKindDocuments])
	assert.Equal(t, []string{quotaKindDocuments}, quotas.released)
}

func TestProPlanLiftsQuota(t *testing.T) {
	store := &fakeSubStore{active: &model.Subscription{
		UserID: 1,
		Plan:   model.PlanPro,
		Status: model.SubscriptionStatusActive,
	}}
	svc := NewSubscriptionService(store, &fakeCharger{}, newFakeQuotaCounter())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.ConsumeDocumentUpload(ctx, 1))
	}
}

func TestSubscribeChargesAndActivates(t *testing.T) {
	store := &fakeSubStore{}
	charger := &fakeCharger{}
	svc := NewSubscriptionService(store, charger, newFakeQuotaCounter())

	sub, err := svc.Subscribe(context.Background(), 1, model.PlanPro)
	require.NoError(t, err)

	require.Len(t, charger.charges, 1)
	assert.Equal(t, int64(2900), charger.charges[0].AmountCents)
	assert.Equal(t, "subscription:pro", charger.charges[0].Reference)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "ch_1", sub.ChargeID)
	assert.True(t, sub.PeriodEnd.After(sub.PeriodStart))
}

func TestSubscribeDeclinedPaymentDoesNotActivate(t *testing.T) {
	store := &fakeSubStore{}
	charger := &fakeCharger{err: billing.ErrPaymentDeclined}
	svc := NewSubscriptionService(store, charger, newFakeQuotaCounter())

	_, err := svc.Subscribe(context.Background(), 1, model.PlanFirm)
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Empty(t, store.created)
	assert.Zero(t, store.expired)
}

func TestSubscribeSamePlanTwiceConflicts(t *testing.T) {
	store := &fakeSubStore{}
	svc := NewSubscriptionService(store, &fakeCharger{}, newFakeQuotaCounter())

	_, err := svc.Subscribe(context.Background(), 1, model.PlanPro)
	require.NoError(t, err)

	_, err = svc.Subscribe(context.Background(), 1, model.PlanPro)
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
}

func TestSubscribeUpgradeExpiresPrevious(t *testing.T) {
	store := &fakeSubStore{}
	svc := NewSubscriptionService(store, &fakeCharger{}, newFakeQuotaCounter())
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, 1, model.PlanPro)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, 1, model.PlanFirm)
	require.NoError(t, err)

	assert.Equal(t, 2, store.expired)
	assert.Equal(t, model.PlanFirm, store.active.Plan)
}

func TestSubscribeRejectsFreeAndUnknownPlans(t *testing.T) {
	svc := NewSubscriptionService(&fakeSubStore{}, &fakeCharger{}, newFakeQuotaCounter())

	_, err := svc.Subscribe(context.Background(), 1, model.PlanFree)
	assert.ErrorIs(t, err, ErrUnknownPlan)
	_, err = svc.Subscribe(context.Background(), 1, "platinum")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestCancelKeepsPlanUntilPeriodEnd(t *testing.T) {
	store := &fakeSubStore{active: &model.Subscription{
		UserID:    1,
		Plan:      model.PlanPro,
		Status:    model.SubscriptionStatusActive,
		PeriodEnd: time.Now().Add(20 * 24 * time.Hour),
	}}
	svc := NewSubscriptionService(store, &fakeCharger{}, newFakeQuotaCounter())
	ctx := context.Background()

	sub, err := svc.Cancel(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusCanceled, sub.Status)
	require.NotNil(t, sub.CanceledAt)

	// Canceled-but-unexpired subscriptions still resolve to the paid plan.
	for i := 0; i < 10; i++ {
		require.NoError(t, svc.ConsumeDocumentUpload(ctx, 1))
	}
}

func TestCancelWithoutSubscription(t *testing.T) {
	svc := NewSubscriptionService(&fakeSubStore{}, &fakeCharger{}, newFakeQuotaCounter())
	_, err := svc.Cancel(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestStatusReportsPlanAndUsage(t *testing.T) {
	quotas := newFakeQuotaCounter()
	svc := NewSubscriptionService(&fakeSubStore{}, &fakeCharger{}, quotas)
	ctx := context.Background()

	require.NoError(t, svc.ConsumeDocumentUpload(ctx, 1))
	require.NoError(t, svc.ConsumeQuestion(ctx, 1))
	require.NoError(t, svc.ConsumeQuestion(ctx, 1))

	status, err := svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, status.Plan.Name)
	assert.Equal(t, int64(1), status.DocumentsUsed)
	assert.Equal(t, int64(2), status.QuestionsUsed)
	assert.Nil(t, status.Subscription)
}

func TestReleaseGivesBackQuotaUnit(t *testing.T) {
	quotas := newFakeQuotaCounter()
	svc := NewSubscriptionService(&fakeSubStore{}, &fakeCharger{}, quotas)
	ctx := context.Background()

	require.NoError(t, svc.ConsumeDocumentUpload(ctx, 1))
	require.NoError(t, svc.ReleaseDocumentUpload(ctx, 1))
	assert.Equal(t, int64(0), quotas.counts[quotaKindDocuments])

	require.NoError(t, svc.ConsumeQuestion(ctx, 1))
	require.NoError(t, svc.ReleaseQuestion(ctx, 1))
	assert.Equal(t, int64(0), quotas.counts[quotaKindQuestions])
}
