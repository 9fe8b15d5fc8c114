package settlement

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/SplitFund/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore is a mutex-guarded in-memory ledger backing the fake
// repositories. SettlePayment mirrors the production compare-and-swap: the
// flag flip and split insert happen under one lock, guarded by the flag's
// previous value.
type memStore struct {
	mu       sync.Mutex
	users    map[uint]models.User
	subs     map[uint]models.Subscription
	payments map[uint]models.Payment
	splits   []models.PaymentSplit
	events   map[string]models.WebhookEvent

	nextPaymentID uint
	nextSplitID   uint
	nextEventID   uint
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uint]models.User),
		subs:     make(map[uint]models.Subscription),
		payments: make(map[uint]models.Payment),
		events:   make(map[string]models.WebhookEvent),
	}
}

func (m *memStore) addUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) addSubscription(s models.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = s
}

type memUserRepo struct{ store *memStore }

func (r *memUserRepo) Create(user *models.User) error {
	r.store.addUser(*user)
	return nil
}

func (r *memUserRepo) GetByID(id uint) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepo) GetByProviderUserID(providerUserID string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.ProviderUserID == providerUserID {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByAPIKeyHash(hash string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) Update(user *models.User) error {
	r.store.addUser(*user)
	return nil
}

func (r *memUserRepo) UpdateRecipientFlags(id uint, isRecipient, isActive bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsRecipient = isRecipient
	u.IsActive = isActive
	r.store.users[id] = u
	return nil
}

func (r *memUserRepo) TouchAPIKeyUsage(id uint) error { return nil }

func (r *memUserRepo) List(offset, limit int) ([]models.User, error) {
	return r.ListEligibleRecipients()
}

func (r *memUserRepo) ListEligibleRecipients() ([]models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.User
	for id := uint(1); id <= uint(len(r.store.users))+100; id++ {
		u, ok := r.store.users[id]
		if ok && u.IsRecipient && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUserRepo) Count() (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.users)), nil
}

type memSubRepo struct{ store *memStore }

func (r *memSubRepo) Upsert(sub *models.Subscription) error {
	r.store.addSubscription(*sub)
	return nil
}

func (r *memSubRepo) GetByID(id uint) (*models.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memSubRepo) GetByProviderSubscriptionID(providerSubscriptionID string) (*models.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, s := range r.store.subs {
		if s.ProviderSubscriptionID == providerSubscriptionID {
			s := s
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubRepo) ListByUser(userID uint) ([]models.Subscription, error) { return nil, nil }

func (r *memSubRepo) ListByStatus(status string) ([]models.Subscription, error) { return nil, nil }

type memPaymentRepo struct{ store *memStore }

func (r *memPaymentRepo) CreateIfNotExists(payment *models.Payment) (bool, *models.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.payments {
		if p.ProviderPaymentID == payment.ProviderPaymentID {
			p := p
			return false, &p, nil
		}
	}
	r.store.nextPaymentID++
	payment.ID = r.store.nextPaymentID
	r.store.payments[payment.ID] = *payment
	stored := *payment
	return true, &stored, nil
}

func (r *memPaymentRepo) GetByID(id uint) (*models.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memPaymentRepo) GetByProviderPaymentID(providerPaymentID string) (*models.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.payments {
		if p.ProviderPaymentID == providerPaymentID {
			p := p
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPaymentRepo) UpdateStatus(id uint, status string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.payments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Status = status
	r.store.payments[id] = p
	return nil
}

func (r *memPaymentRepo) SettlePayment(paymentID uint, splits []models.PaymentSplit) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.payments[paymentID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if p.SplitProcessed {
		return false, nil
	}
	p.SplitProcessed = true
	r.store.payments[paymentID] = p
	for _, split := range splits {
		r.store.nextSplitID++
		split.ID = r.store.nextSplitID
		r.store.splits = append(r.store.splits, split)
	}
	return true, nil
}

func (r *memPaymentRepo) ListSplitsByPayment(paymentID uint) ([]models.PaymentSplit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.PaymentSplit
	for _, s := range r.store.splits {
		if s.PaymentID == paymentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListSplitsByRecipient(recipientID uint) ([]models.PaymentSplit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.PaymentSplit
	for _, s := range r.store.splits {
		if s.RecipientID == recipientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListUnsettledSucceeded(limit int) ([]models.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Payment
	for id := uint(1); id <= r.store.nextPaymentID; id++ {
		p, ok := r.store.payments[id]
		if ok && p.Status == models.PaymentStatusSucceeded && !p.SplitProcessed {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memPaymentRepo) List(offset, limit int) ([]models.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Payment
	for id := r.store.nextPaymentID; id >= 1; id-- {
		if p, ok := r.store.payments[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := event.Provider + ":" + event.ProviderEventID
	if stored, ok := r.store.events[key]; ok {
		return false, &stored, nil
	}
	r.store.nextEventID++
	event.ID = r.store.nextEventID
	r.store.events[key] = *event
	stored := *event
	return true, &stored, nil
}

func (r *memPaymentRepo) MarkWebhookProcessed(id uint, processingError string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	for key, ev := range r.store.events {
		if ev.ID == id {
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			r.store.events[key] = ev
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func newTestService(store *memStore) *Service {
	return NewService(&memUserRepo{store: store}, &memSubRepo{store: store}, &memPaymentRepo{store: store})
}

func seedRecipients(store *memStore, n int) {
	for i := 1; i <= n; i++ {
		store.addUser(models.User{
			ID:             uint(i),
			ProviderUserID: fmt.Sprintf("idp_%d", i),
			Name:           fmt.Sprintf("Recipient %d", i),
			IsRecipient:    true,
			IsActive:       true,
		})
	}
}

func seedSubscription(store *memStore, payerID uint) models.Subscription {
	sub := models.Subscription{
		ID:                     1,
		UserID:                 payerID,
		ProviderSubscriptionID: "sub_test_1",
		Status:                 models.SubscriptionStatusActive,
		Amount:                 5000,
		Currency:               "gbp",
	}
	store.addSubscription(sub)
	return sub
}

func TestRecordPaymentSettlesSucceededSynchronously(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 3)
	store.addUser(models.User{ID: 50, ProviderUserID: "idp_payer", Name: "Payer"})
	seedSubscription(store, 50)
	svc := newTestService(store)

	payment, splits, err := svc.RecordPayment(context.Background(), NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_100",
		Amount:            10000,
		Currency:          "gbp",
		Status:            models.PaymentStatusSucceeded,
		PaidAt:            time.Now(),
	})
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.True(t, payment.SplitProcessed)
	require.Len(t, splits, 3)

	amounts := []int64{splits[0].Amount, splits[1].Amount, splits[2].Amount}
	assert.Equal(t, []int64{3334, 3333, 3333}, amounts)
	assert.Equal(t, int64(10000), amounts[0]+amounts[1]+amounts[2])
	for _, s := range splits {
		assert.Equal(t, models.SplitStatusProcessed, s.Status)
		require.NotNil(t, s.ProcessedAt)
	}
}

func TestRecordPaymentPendingDoesNotSettle(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 2)
	seedSubscription(store, 1)
	svc := newTestService(store)

	payment, splits, err := svc.RecordPayment(context.Background(), NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_101",
		Amount:            100,
		Currency:          "gbp",
		Status:            models.PaymentStatusPending,
	})
	require.NoError(t, err)
	assert.False(t, payment.SplitProcessed)
	assert.Empty(t, splits)
}

func TestRecordPaymentDuplicateProviderIDResolvesToSameRow(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 4)
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	in := NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_dup",
		Amount:            100,
		Currency:          "gbp",
		Status:            models.PaymentStatusSucceeded,
	}
	first, firstSplits, err := svc.RecordPayment(ctx, in)
	require.NoError(t, err)
	require.Len(t, firstSplits, 4)

	second, secondSplits, err := svc.RecordPayment(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, secondSplits, 4)
	assert.Equal(t, firstSplits, secondSplits)

	all, err := (&memPaymentRepo{store: store}).ListSplitsByPayment(first.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4, "redelivery must not create additional split rows")
}

func TestRecordPaymentRejectsInvalidInput(t *testing.T) {
	store := newMemStore()
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_bad",
		Amount:            100,
		Status:            "definitely_not_a_status",
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, _, err = svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_bad",
		Amount:            -5,
		Status:            models.PaymentStatusSucceeded,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    99,
		ProviderPaymentID: "pi_bad",
		Amount:            100,
		Status:            models.PaymentStatusSucceeded,
	})
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestReportPaymentStatusNotFound(t *testing.T) {
	svc := newTestService(newMemStore())

	_, _, err := svc.ReportPaymentStatus(context.Background(), "pi_missing", models.PaymentStatusSucceeded)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestReportPaymentStatusTransitionTriggersSettlement(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 3)
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_200",
		Amount:            10000,
		Currency:          "gbp",
		Status:            models.PaymentStatusPending,
	})
	require.NoError(t, err)

	payment, splits, err := svc.ReportPaymentStatus(ctx, "pi_200", models.PaymentStatusSucceeded)
	require.NoError(t, err)
	assert.True(t, payment.SplitProcessed)
	require.Len(t, splits, 3)
	assert.Equal(t, int64(3334), splits[0].Amount)

	// Duplicate delivery: same splits back, no new rows.
	again, againSplits, err := svc.ReportPaymentStatus(ctx, "pi_200", models.PaymentStatusSucceeded)
	require.NoError(t, err)
	assert.True(t, again.SplitProcessed)
	assert.Equal(t, splits, againSplits)

	all, err := (&memPaymentRepo{store: store}).ListSplitsByPayment(payment.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSettleNoEligibleRecipients(t *testing.T) {
	store := newMemStore()
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	payment, _, err := svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_300",
		Amount:            100,
		Currency:          "gbp",
		Status:            models.PaymentStatusSucceeded,
	})
	assert.ErrorIs(t, err, ErrNoEligibleRecipients)
	require.NotNil(t, payment, "payment must be recorded even when settlement fails")
	assert.False(t, payment.SplitProcessed, "payment stays unsettled and retryable")

	unsettled, err := svc.ListUnsettled(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unsettled, 1)
	assert.Equal(t, payment.ID, unsettled[0].ID)

	// Eligibility changes, retry succeeds.
	seedRecipients(store, 2)
	splits, err := svc.Settle(ctx, payment.ID)
	require.NoError(t, err)
	assert.Len(t, splits, 2)
}

func TestSettleUnknownPayment(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Settle(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestSettleNonSucceededPayment(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 2)
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	payment, _, err := svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_400",
		Amount:            100,
		Currency:          "gbp",
		Status:            models.PaymentStatusFailed,
	})
	require.NoError(t, err)

	_, err = svc.Settle(ctx, payment.ID)
	assert.ErrorIs(t, err, ErrNotSettleable)
}

func TestSettleConcurrentAttemptsWriteOnce(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 3)
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	payment, _, err := svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_race",
		Amount:            10000,
		Currency:          "gbp",
		Status:            models.PaymentStatusPending,
	})
	require.NoError(t, err)
	require.NoError(t, (&memPaymentRepo{store: store}).UpdateStatus(payment.ID, models.PaymentStatusSucceeded))

	const attempts = 16
	var wg sync.WaitGroup
	results := make([][]models.PaymentSplit, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Settle(ctx, payment.ID)
		}(i)
	}
	wg.Wait()

	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 3, "every attempt observes the committed split set")
		var sum int64
		for _, s := range results[i] {
			sum += s.Amount
		}
		assert.Equal(t, int64(10000), sum)
	}

	all, err := (&memPaymentRepo{store: store}).ListSplitsByPayment(payment.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3, "exactly one attempt may write splits")

	settled, err := (&memPaymentRepo{store: store}).GetByID(payment.ID)
	require.NoError(t, err)
	assert.True(t, settled.SplitProcessed)
}

func TestSettleRemainderFollowsRecipientOrder(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 3)
	seedSubscription(store, 1)
	svc := newTestService(store)

	_, splits, err := svc.RecordPayment(context.Background(), NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_order",
		Amount:            10,
		Currency:          "gbp",
		Status:            models.PaymentStatusSucceeded,
	})
	require.NoError(t, err)
	require.Len(t, splits, 3)

	// Resolver orders by ascending id; remainder lands on the earliest.
	assert.Equal(t, uint(1), splits[0].RecipientID)
	assert.Equal(t, int64(4), splits[0].Amount)
	assert.Equal(t, int64(3), splits[1].Amount)
	assert.Equal(t, int64(3), splits[2].Amount)
}

func TestEligibilityChangesNeverAlterPastSplits(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 2)
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	_, splits, err := svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_frozen",
		Amount:            100,
		Currency:          "gbp",
		Status:            models.PaymentStatusSucceeded,
	})
	require.NoError(t, err)
	require.Len(t, splits, 2)

	// A third recipient appearing later must not change the settled set.
	store.addUser(models.User{ID: 3, ProviderUserID: "idp_3", Name: "Late", IsRecipient: true, IsActive: true})

	payment, err := (&memPaymentRepo{store: store}).GetByProviderPaymentID("pi_frozen")
	require.NoError(t, err)
	after, err := svc.Settle(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, splits, after)
}

func TestGetRecipientEarnings(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 2)
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	for i, amount := range []int64{100, 250, 33} {
		_, _, err := svc.RecordPayment(ctx, NormalizedPayment{
			SubscriptionID:    1,
			ProviderPaymentID: fmt.Sprintf("pi_earn_%d", i),
			Amount:            amount,
			Currency:          "gbp",
			Status:            models.PaymentStatusSucceeded,
		})
		require.NoError(t, err)
	}

	earnings, err := svc.GetRecipientEarnings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, earnings.PaymentsCount)
	// 100 -> 50, 250 -> 125, 33 -> 17 (remainder to recipient 1).
	assert.Equal(t, int64(192), earnings.TotalEarnings)

	second, err := svc.GetRecipientEarnings(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(191), second.TotalEarnings)

	_, err = svc.GetRecipientEarnings(ctx, 99)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestGetSplitsForPaymentEnrichesRecipients(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 2)
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	payment, _, err := svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_enrich",
		Amount:            100,
		Currency:          "gbp",
		Status:            models.PaymentStatusSucceeded,
	})
	require.NoError(t, err)

	enriched, err := svc.GetSplitsForPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Len(t, enriched, 2)
	for _, e := range enriched {
		require.NotNil(t, e.Recipient)
		assert.Equal(t, e.RecipientID, e.Recipient.ID)
	}

	// No splits is a valid empty result, not an error.
	empty, err := svc.GetSplitsForPayment(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListPaymentsEnriched(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 2)
	store.addUser(models.User{ID: 50, ProviderUserID: "idp_payer", Name: "Payer"})
	seedSubscription(store, 50)
	svc := newTestService(store)
	ctx := context.Background()

	_, _, err := svc.RecordPayment(ctx, NormalizedPayment{
		SubscriptionID:    1,
		ProviderPaymentID: "pi_listed",
		Amount:            100,
		Currency:          "gbp",
		Status:            models.PaymentStatusSucceeded,
	})
	require.NoError(t, err)

	payments, err := svc.ListPayments(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.NotNil(t, payments[0].Subscription)
	require.NotNil(t, payments[0].Payer)
	assert.Equal(t, "Payer", payments[0].Payer.Name)
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()

	in := WebhookEventInput{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       "payment_intent.succeeded",
		PayloadJSON:     `{}`,
		SignatureValid:  true,
	}
	created, first, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)

	createdAgain, second, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.False(t, createdAgain)
	assert.Equal(t, first.ID, second.ID)
}

func TestProcessWebhookEventRecordsAndSettles(t *testing.T) {
	store := newMemStore()
	seedRecipients(store, 3)
	seedSubscription(store, 1)
	svc := newTestService(store)
	ctx := context.Background()

	payload := `{
		"id": "evt_pi_1",
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_hook",
				"amount": 10000,
				"currency": "gbp",
				"status": "succeeded",
				"created": 1700000000,
				"subscription": "sub_test_1"
			}
		}
	}`
	event := &models.WebhookEvent{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: "evt_pi_1",
		EventType:       "payment_intent.succeeded",
		PayloadJSON:     payload,
	}

	payment, splits, err := svc.ProcessWebhookEvent(ctx, event)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.True(t, payment.SplitProcessed)
	require.Len(t, splits, 3)

	// Redelivery of the same event settles nothing new.
	payment2, _, err := svc.ProcessWebhookEvent(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, payment2.ID)
	all, err := (&memPaymentRepo{store: store}).ListSplitsByPayment(payment.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
