package settlement

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ManuelReschke/SplitFund/app/models"
	"github.com/ManuelReschke/SplitFund/app/repository"
	"github.com/ManuelReschke/SplitFund/internal/pkg/payout"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service settles subscription payments: it records incoming payments,
// distributes each succeeded payment's amount across the currently eligible
// recipients exactly once, and serves the read-side rollups.
type Service struct {
	users    repository.UserRepository
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
}

// NewService creates a settlement service from injected repositories.
func NewService(users repository.UserRepository, subs repository.SubscriptionRepository, payments repository.PaymentRepository) *Service {
	return &Service{users: users, subs: subs, payments: payments}
}

// NewServiceFromDB creates a settlement service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	repos := repository.NewRepositories(db)
	return NewService(repos.User, repos.Subscription, repos.Payment)
}

// RecordPayment stores an incoming payment and, when its status is already
// succeeded, settles it synchronously. Recording is idempotent on the
// provider payment id: a redelivered transaction resolves to the stored
// payment instead of a duplicate.
//
// The returned payment is valid even when settlement fails with
// ErrNoEligibleRecipients - the payment is recorded, stays unsettled and
// can be settled again later.
func (s *Service) RecordPayment(ctx context.Context, in NormalizedPayment) (*models.Payment, []models.PaymentSplit, error) {
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if !models.IsValidPaymentStatus(status) {
		return nil, nil, ErrInvalidStatus
	}
	if in.Amount < 0 {
		return nil, nil, ErrInvalidAmount
	}
	if strings.TrimSpace(in.ProviderPaymentID) == "" {
		return nil, nil, errors.New("provider_payment_id is required")
	}

	if _, err := s.subs.GetByID(in.SubscriptionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSubscriptionNotFound
		}
		return nil, nil, err
	}

	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	payment := &models.Payment{
		PublicID:          uuid.NewString(),
		SubscriptionID:    in.SubscriptionID,
		ProviderPaymentID: strings.TrimSpace(in.ProviderPaymentID),
		Amount:            in.Amount,
		Currency:          strings.ToLower(strings.TrimSpace(in.Currency)),
		Status:            status,
		PaidAt:            paidAt,
	}
	_, stored, err := s.payments.CreateIfNotExists(payment)
	if err != nil {
		return nil, nil, err
	}

	if stored.IsSucceeded() {
		splits, err := s.Settle(ctx, stored.ID)
		if err != nil {
			return stored, nil, err
		}
		// Re-read so the caller sees the settled flag.
		settled, err := s.payments.GetByID(stored.ID)
		if err != nil {
			return stored, splits, err
		}
		return settled, splits, nil
	}
	return stored, nil, nil
}

// ReportPaymentStatus updates a payment's status by provider payment id and
// settles it when the transition lands on succeeded. Duplicate deliveries
// of a succeeded event are absorbed: the second call short-circuits on the
// settlement flag and returns the existing splits.
func (s *Service) ReportPaymentStatus(ctx context.Context, providerPaymentID, status string) (*models.Payment, []models.PaymentSplit, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsValidPaymentStatus(status) {
		return nil, nil, ErrInvalidStatus
	}

	payment, err := s.payments.GetByProviderPaymentID(strings.TrimSpace(providerPaymentID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPaymentNotFound
		}
		return nil, nil, err
	}

	if err := s.payments.UpdateStatus(payment.ID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPaymentNotFound
		}
		return nil, nil, err
	}

	// Settle handles the already-settled case itself and hands back the
	// committed splits, so duplicate success reports stay cheap no-ops.
	var splits []models.PaymentSplit
	if status == models.PaymentStatusSucceeded {
		splits, err = s.Settle(ctx, payment.ID)
		if err != nil {
			if updated, readErr := s.payments.GetByID(payment.ID); readErr == nil {
				return updated, nil, err
			}
			return nil, nil, err
		}
	}

	updated, err := s.payments.GetByID(payment.ID)
	if err != nil {
		return nil, splits, err
	}
	return updated, splits, nil
}

// Settle distributes one payment across the recipients eligible at call
// time. It is safe under concurrent and duplicate invocation: the
// settlement flag acts as a compare-and-swap inside the repository commit,
// so of any number of simultaneous attempts exactly one writes splits and
// every other returns the same committed set.
func (s *Service) Settle(ctx context.Context, paymentID uint) ([]models.PaymentSplit, error) {
	_ = ctx
	payment, err := s.payments.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	// Idempotent short-circuit: the flag is the single source of truth for
	// "already distributed".
	if payment.SplitProcessed {
		return s.payments.ListSplitsByPayment(payment.ID)
	}

	if !payment.IsSucceeded() {
		return nil, ErrNotSettleable
	}

	recipients, err := s.users.ListEligibleRecipients()
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoEligibleRecipients
	}

	recipientIDs := make([]uint, len(recipients))
	for i, r := range recipients {
		recipientIDs[i] = r.ID
	}
	allocations := payout.Allocate(payment.Amount, recipientIDs)

	var total int64
	now := time.Now()
	splits := make([]models.PaymentSplit, len(allocations))
	for i, a := range allocations {
		total += a.Amount
		splits[i] = models.PaymentSplit{
			PaymentID:   payment.ID,
			RecipientID: a.RecipientID,
			Amount:      a.Amount,
			Status:      models.SplitStatusProcessed,
			ProcessedAt: &now,
		}
	}
	if total != payment.Amount {
		return nil, ErrSplitMismatch
	}

	won, err := s.payments.SettlePayment(payment.ID, splits)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent attempt committed first; its splits are the outcome.
		return s.payments.ListSplitsByPayment(payment.ID)
	}
	return s.payments.ListSplitsByPayment(payment.ID)
}

// ListUnsettled returns succeeded payments that still await distribution,
// oldest first. The retry policy itself lives with the caller.
func (s *Service) ListUnsettled(ctx context.Context, limit int) ([]models.Payment, error) {
	_ = ctx
	return s.payments.ListUnsettledSucceeded(limit)
}

// GetSplitsForPayment returns the splits of one payment enriched with the
// recipients they credit. No splits is a valid state, not an error.
func (s *Service) GetSplitsForPayment(ctx context.Context, paymentID uint) ([]EnrichedSplit, error) {
	_ = ctx
	splits, err := s.payments.ListSplitsByPayment(paymentID)
	if err != nil {
		return nil, err
	}

	enriched := make([]EnrichedSplit, 0, len(splits))
	for _, split := range splits {
		recipient, err := s.users.GetByID(split.RecipientID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		enriched = append(enriched, EnrichedSplit{PaymentSplit: split, Recipient: recipient})
	}
	return enriched, nil
}

// GetRecipientEarnings returns the total amount, split count and split list
// credited to one recipient.
func (s *Service) GetRecipientEarnings(ctx context.Context, recipientID uint) (*Earnings, error) {
	_ = ctx
	if _, err := s.users.GetByID(recipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	splits, err := s.payments.ListSplitsByRecipient(recipientID)
	if err != nil {
		return nil, err
	}

	earnings := &Earnings{Splits: splits, PaymentsCount: len(splits)}
	for _, split := range splits {
		earnings.TotalEarnings += split.Amount
	}
	return earnings, nil
}

// ListPayments returns payments enriched with their subscription and payer,
// newest first.
func (s *Service) ListPayments(ctx context.Context, offset, limit int) ([]EnrichedPayment, error) {
	_ = ctx
	payments, err := s.payments.List(offset, limit)
	if err != nil {
		return nil, err
	}

	enriched := make([]EnrichedPayment, 0, len(payments))
	for _, payment := range payments {
		ep := EnrichedPayment{Payment: payment}
		sub, err := s.subs.GetByID(payment.SubscriptionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if sub != nil {
			ep.Subscription = sub
			payer, err := s.users.GetByID(sub.UserID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			ep.Payer = payer
		}
		enriched = append(enriched, ep)
	}
	return enriched, nil
}

// ListEligibleRecipients returns the recipients a settlement started now
// would pay, in the resolver's order.
func (s *Service) ListEligibleRecipients(ctx context.Context) ([]models.User, error) {
	_ = ctx
	return s.users.ListEligibleRecipients()
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		eventID = "hash:" + HashEventPayload(in.PayloadJSON)
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.payments.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.payments.MarkWebhookProcessed(webhookEventID, errMsg)
}

// ProcessWebhookEvent applies one stored provider event to the ledger. For
// payment events this reports the mapped status, which triggers settlement
// on a transition to succeeded; payments seen for the first time are
// recorded on the fly when the payload names a known subscription.
func (s *Service) ProcessWebhookEvent(ctx context.Context, event *models.WebhookEvent) (*models.Payment, []models.PaymentSplit, error) {
	parsed, err := ParseStripePaymentEvent([]byte(event.PayloadJSON))
	if err != nil {
		return nil, nil, err
	}

	status, err := StripeEventToPaymentStatus(event.EventType, parsed.Status)
	if err != nil {
		return nil, nil, err
	}

	payment, splits, err := s.ReportPaymentStatus(ctx, parsed.PaymentIntentID, status)
	if errors.Is(err, ErrPaymentNotFound) && parsed.ProviderSubscriptionID != "" {
		sub, subErr := s.subs.GetByProviderSubscriptionID(parsed.ProviderSubscriptionID)
		if subErr != nil {
			if errors.Is(subErr, gorm.ErrRecordNotFound) {
				return nil, nil, ErrSubscriptionNotFound
			}
			return nil, nil, subErr
		}
		return s.RecordPayment(ctx, NormalizedPayment{
			SubscriptionID:    sub.ID,
			ProviderPaymentID: parsed.PaymentIntentID,
			Amount:            parsed.Amount,
			Currency:          parsed.Currency,
			Status:            status,
			PaidAt:            parsed.PaidAt,
		})
	}
	return payment, splits, err
}
