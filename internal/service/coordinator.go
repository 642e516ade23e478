package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/excellence-awards/nomination-flow/internal/interfaces"
	"github.com/excellence-awards/nomination-flow/internal/models"
	"github.com/excellence-awards/nomination-flow/internal/telemetry"
)

// Scalar fallback keys kept outside the draft so the flow survives a lost or
// unreadable draft across the payment redirect.
const (
	keyNominationID    = "nominationId"
	keyNominationEmail = "nominationEmail"
	keyTransactionID   = "transactionId"
)

// Fee is the flat nomination fee fixed by business rule.
type Fee struct {
	Amount   string
	Currency string
}

// Coordinator sequences the nomination journey end to end: create the
// nomination, persist the draft, hand the browser to the hosted payment page,
// and reconcile the provider's answer against remote and local state. The
// redirect is a suspension point with no in-process continuation; everything
// after it is reconstructed from the draft store and the return query.
type Coordinator struct {
	store      interfaces.DraftStore
	backend    interfaces.NominationBackend
	provider   interfaces.PaymentProvider
	journal    interfaces.FlowJournal
	events     interfaces.EventPublisher
	reconciler *Reconciler
	fee        Fee
	country    string
}

func NewCoordinator(
	store interfaces.DraftStore,
	backend interfaces.NominationBackend,
	provider interfaces.PaymentProvider,
	journal interfaces.FlowJournal,
	events interfaces.EventPublisher,
	fee Fee,
	country string,
) *Coordinator {
	return &Coordinator{
		store:      store,
		backend:    backend,
		provider:   provider,
		journal:    journal,
		events:     events,
		reconciler: NewReconciler(provider),
		fee:        fee,
		country:    country,
	}
}

type SubmissionResult struct {
	NominationID string
	Session      string
	State        models.FlowState
}

// SubmitNomination validates the form, creates the remote nomination and
// persists the draft under the remote identifier. Validation failures block
// the transition before any network call; creation failures leave no local
// state behind, so the user can edit and resubmit.
func (c *Coordinator) SubmitNomination(ctx context.Context, session string, form models.NominationForm) (*SubmissionResult, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}

	remoteID, err := c.backend.Create(ctx, form)
	if err != nil {
		return nil, err
	}
	telemetry.NominationsSubmitted.Inc()

	if c.journal != nil {
		if err := c.journal.InsertInitialState(ctx, remoteID, models.FlowSubmitting); err != nil {
			telemetry.Logger.Warn("Flow journal insert failed",
				zap.String("nomination_id", remoteID), zap.Error(err))
		}
	}
	c.transition(ctx, remoteID, models.FlowSubmitting, models.FlowAwaitingPayment)

	if _, err := c.store.Save(ctx, remoteID, draftValues(form), draftFiles(form)); err != nil {
		// A cold store is tolerated; the remote record is the source of truth.
		telemetry.Logger.Warn("Draft save failed",
			zap.String("nomination_id", remoteID), zap.Error(err))
	}
	c.putValue(ctx, session, keyNominationID, remoteID)
	c.putValue(ctx, session, keyNominationEmail, form.Email)

	return &SubmissionResult{
		NominationID: remoteID,
		Session:      session,
		State:        models.FlowAwaitingPayment,
	}, nil
}

// BeginCheckout mints signed payment parameters for the flat fee and records
// the redirect. If the parameters cannot be produced no redirect occurs and
// the draft is left untouched.
func (c *Coordinator) BeginCheckout(ctx context.Context, session, nominationID string) (*models.PaymentSession, error) {
	var email, firstName, lastName string

	draft, err := c.store.Get(ctx, nominationID)
	if err == nil {
		if draft.Status == models.DraftPaid {
			return nil, models.ValidationError("nomination is already paid")
		}
		if len(draft.FileURLs["tradeLicense"]) == 0 {
			return nil, models.ValidationError("a trade license document is required before payment")
		}
		email = draft.FormValues["email"]
		firstName = draft.FormValues["firstName"]
		lastName = draft.FormValues["lastName"]
	}
	if email == "" {
		email, _ = c.store.GetValue(ctx, session, keyNominationEmail)
	}

	// The remote id is folded into the reference number so the return leg
	// can resolve it without local state; the nanosecond suffix keeps
	// concurrent attempts apart.
	ref := fmt.Sprintf("%s-%d", nominationID, time.Now().UnixNano())

	ps, err := c.provider.CreateParams(ctx, models.CheckoutRequest{
		Amount:            c.fee.Amount,
		Currency:          c.fee.Currency,
		CustomerEmail:     email,
		CustomerFirstName: firstName,
		CustomerLastName:  lastName,
		CustomerAddress:   "NA",
		CustomerCity:      "NA",
		CustomerCountry:   c.country,
		ReferenceNumber:   ref,
	})
	if err != nil {
		return nil, err
	}

	telemetry.CheckoutsStarted.Inc()
	c.transition(ctx, nominationID, models.FlowAwaitingPayment, models.FlowRedirected)
	return ps, nil
}

// HandleReturn runs on the page load the provider redirects back to. It
// verifies the returned result, resolves which nomination it belongs to and
// reconciles remote and local state. Once the provider has accepted the
// charge, bookkeeping failures are logged but never reported as payment
// failure; the provider's decision is authoritative.
func (c *Coordinator) HandleReturn(ctx context.Context, session string, fields map[string]string) *models.ReturnOutcome {
	result := c.reconciler.Reconcile(ctx, fields)
	telemetry.ReconcileOutcomes.WithLabelValues(string(result.Outcome)).Inc()

	nominationID := c.resolveNominationID(ctx, session, fields)
	if nominationID != "" {
		c.transition(ctx, nominationID, models.FlowRedirected, models.FlowReconciling)
		if c.journal != nil && result.Decision != "" {
			if err := c.journal.UpdateDecision(ctx, nominationID, result.Decision); err != nil {
				telemetry.Logger.Warn("Flow journal decision update failed",
					zap.String("nomination_id", nominationID), zap.Error(err))
			}
		}
	}

	if result.Outcome == models.VerifiedSuccess {
		if nominationID == "" {
			telemetry.Logger.Error("Accepted payment could not be matched to a nomination",
				zap.String("transaction_id", result.TransactionID))
			return &models.ReturnOutcome{
				State:         models.FlowDoneError,
				Message:       "Payment was received but the nomination could not be located. Please contact support with transaction " + result.TransactionID + ".",
				TransactionID: result.TransactionID,
				CanRetry:      true,
			}
		}

		info := paymentInfoFromReturn(fields, c.fee)
		if err := c.backend.MarkPaid(ctx, nominationID, info); err != nil {
			telemetry.Logger.Error("Backend payment update failed after accepted charge",
				zap.String("nomination_id", nominationID),
				zap.String("transaction_id", result.TransactionID),
				zap.Error(err))
		}
		if _, err := c.store.MarkPaid(ctx, nominationID, info); err != nil {
			telemetry.Logger.Warn("Local draft payment update failed",
				zap.String("nomination_id", nominationID), zap.Error(err))
		}
		if err := c.store.Delete(ctx, nominationID); err != nil {
			telemetry.Logger.Warn("Draft cleanup failed",
				zap.String("nomination_id", nominationID), zap.Error(err))
		}
		if session != "" {
			if err := c.store.ClearValues(ctx, session, keyNominationID, keyNominationEmail, keyTransactionID); err != nil {
				telemetry.Logger.Warn("Session key cleanup failed",
					zap.String("session", session), zap.Error(err))
			}
		}
		c.transition(ctx, nominationID, models.FlowReconciling, models.FlowDonePaid)

		return &models.ReturnOutcome{
			State:         models.FlowDonePaid,
			Paid:          true,
			Message:       result.Message,
			NominationID:  nominationID,
			TransactionID: result.TransactionID,
		}
	}

	// Failure paths keep the fallback keys in place so a retry can reuse the
	// resolved identifier.
	if session != "" && result.TransactionID != "" {
		c.putValue(ctx, session, keyTransactionID, result.TransactionID)
	}
	if nominationID != "" {
		c.transition(ctx, nominationID, models.FlowReconciling, models.FlowDoneError)
	}

	return &models.ReturnOutcome{
		State:         models.FlowDoneError,
		Message:       result.Message,
		NominationID:  nominationID,
		TransactionID: result.TransactionID,
		CanRetry:      true,
	}
}

// ResolveState reconstructs the flow position from persisted artifacts plus
// the incoming query string. It replaces in-memory continuation across the
// full-page redirect and is pure so tests can drive it directly.
func ResolveState(draft *models.Draft, storedNominationID string, query map[string]string) models.FlowState {
	if query["transaction_id"] != "" || query["decision"] != "" {
		return models.FlowReconciling
	}
	if draft != nil && draft.Status == models.DraftPaid {
		return models.FlowDonePaid
	}
	if draft != nil || storedNominationID != "" {
		return models.FlowAwaitingPayment
	}
	return models.FlowIdle
}

// resolveNominationID resolves the remote identifier for a provider return:
// the reference number carries it as a prefix, the session fallback key holds
// it when the reference is absent, and the by-transaction lookup is the last
// resort.
func (c *Coordinator) resolveNominationID(ctx context.Context, session string, fields map[string]string) string {
	if ref := fields["req_reference_number"]; ref != "" {
		if i := strings.LastIndex(ref, "-"); i > 0 {
			return ref[:i]
		}
		return ref
	}
	if session != "" {
		if id, _ := c.store.GetValue(ctx, session, keyNominationID); id != "" {
			return id
		}
	}
	if tx := fields["transaction_id"]; tx != "" {
		rec, err := c.backend.FindByTransaction(ctx, tx)
		if err != nil {
			telemetry.Logger.Warn("Nomination lookup by transaction failed",
				zap.String("transaction_id", tx), zap.Error(err))
			return ""
		}
		return rec.RemoteID
	}
	return ""
}

// transition journals and publishes one flow state change. Both are
// best-effort; the user-facing flow never blocks on them.
func (c *Coordinator) transition(ctx context.Context, nominationID string, from, to models.FlowState) {
	if c.journal != nil {
		rows, err := c.journal.TransitionState(ctx, nominationID, from, to)
		if err != nil {
			telemetry.Logger.Warn("Flow journal transition failed",
				zap.String("nomination_id", nominationID), zap.Error(err))
		} else if rows == 0 {
			telemetry.Logger.Warn("Flow journal transition skipped",
				zap.String("nomination_id", nominationID),
				zap.String("from_state", string(from)),
				zap.String("to_state", string(to)))
		}
	}
	if c.events != nil {
		if err := c.events.Publish(ctx, nominationID, from, to); err != nil {
			telemetry.Logger.Warn("State change publish failed",
				zap.String("nomination_id", nominationID), zap.Error(err))
		}
	}
	telemetry.Logger.Info("Nomination flow transition",
		zap.String("nomination_id", nominationID),
		zap.String("from_state", string(from)),
		zap.String("to_state", string(to)))
}

func (c *Coordinator) putValue(ctx context.Context, session, key, value string) {
	if session == "" || value == "" {
		return
	}
	if err := c.store.PutValue(ctx, session, key, value); err != nil {
		telemetry.Logger.Warn("Session key write failed",
			zap.String("key", key), zap.Error(err))
	}
}

func validateForm(form models.NominationForm) error {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", form.FirstName},
		{"lastName", form.LastName},
		{"email", form.Email},
		{"phone", form.Phone},
		{"companyName", form.CompanyName},
		{"designation", form.Designation},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return models.ValidationError("missing required field: " + f.name)
		}
	}
	if !form.TermsAccepted {
		return models.ValidationError("terms and conditions must be accepted")
	}
	if len(form.TradeLicenseURLs) == 0 {
		return models.ValidationError("a trade license document is required")
	}
	return nil
}

func draftValues(form models.NominationForm) map[string]string {
	return map[string]string{
		"firstName":   form.FirstName,
		"lastName":    form.LastName,
		"email":       form.Email,
		"phone":       form.Phone,
		"companyName": form.CompanyName,
		"designation": form.Designation,
		"category":    form.Category,
		"message":     form.Message,
	}
}

func draftFiles(form models.NominationForm) map[string][]string {
	files := map[string][]string{
		"tradeLicense": form.TradeLicenseURLs,
	}
	if len(form.SupportingDocumentURLs) > 0 {
		files["supportingDocument"] = form.SupportingDocumentURLs
	}
	return files
}

func paymentInfoFromReturn(fields map[string]string, fee Fee) models.PaymentInfo {
	amount := fields["auth_amount"]
	if amount == "" {
		amount = fields["req_amount"]
	}
	if amount == "" {
		amount = fee.Amount
	}
	currency := fields["req_currency"]
	if currency == "" {
		currency = fee.Currency
	}
	return models.PaymentInfo{
		Amount:        amount,
		Currency:      currency,
		Reference:     fields["req_reference_number"],
		TransactionID: fields["transaction_id"],
		AuthCode:      fields["auth_code"],
		AuthTime:      fields["auth_time"],
		CardType:      fields["card_type_name"],
		PaidAt:        time.Now().UTC(),
	}
}
