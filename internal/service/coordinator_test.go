package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excellence-awards/nomination-flow/internal/interfaces"
	"github.com/excellence-awards/nomination-flow/internal/models"
	"github.com/excellence-awards/nomination-flow/internal/store"
)

type fakeBackend struct {
	createID    string
	createErr   error
	createCalls int
	lastForm    models.NominationForm

	markPaidErr   error
	markPaidCalls int
	lastPaidID    string
	lastInfo      models.PaymentInfo

	findRecord *models.NominationRecord
	findErr    error
	findCalls  int
}

func (f *fakeBackend) Create(ctx context.Context, form models.NominationForm) (string, error) {
	f.createCalls++
	f.lastForm = form
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createID, nil
}

func (f *fakeBackend) MarkPaid(ctx context.Context, remoteID string, info models.PaymentInfo) error {
	f.markPaidCalls++
	f.lastPaidID = remoteID
	f.lastInfo = info
	return f.markPaidErr
}

func (f *fakeBackend) FindByTransaction(ctx context.Context, transactionID string) (*models.NominationRecord, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findRecord, nil
}

func validForm() models.NominationForm {
	return models.NominationForm{
		FirstName:        "Jane",
		LastName:         "Doe",
		Email:            "jane@example.com",
		Phone:            "0501234567",
		CompanyName:      "Acme Trading LLC",
		Designation:      "Director",
		Category:         "Business Excellence",
		TradeLicenseURLs: []string{"https://cdn.example.com/license.pdf"},
		TermsAccepted:    true,
	}
}

func newTestCoordinator(backend *fakeBackend, provider *fakeProvider) (*Coordinator, *store.MemoryDraftStore) {
	s := store.NewMemoryDraftStore(time.Hour)
	c := NewCoordinator(s, backend, provider, nil, nil, Fee{Amount: "500.00", Currency: "AED"}, "AE")
	return c, s
}

func TestHappyPath(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{createID: "abc123"}
	provider := &fakeProvider{verifyOK: true}
	coord, drafts := newTestCoordinator(backend, provider)

	// Submit: nomination created remotely, draft persisted unpaid.
	res, err := coord.SubmitNomination(ctx, "sess1", validForm())
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.NominationID)
	assert.Equal(t, models.FlowAwaitingPayment, res.State)

	draft, err := drafts.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.DraftUnpaid, draft.Status)

	id, _ := drafts.GetValue(ctx, "sess1", "nominationId")
	assert.Equal(t, "abc123", id)

	// Checkout: flat fee, remote id folded into the reference number.
	ps, err := coord.BeginCheckout(ctx, "sess1", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "500.00", provider.lastReq.Amount)
	assert.Equal(t, "AED", provider.lastReq.Currency)
	assert.Equal(t, "jane@example.com", provider.lastReq.CustomerEmail)
	assert.True(t, strings.HasPrefix(ps.ReferenceNumber, "abc123-"))

	// Return: verified accept marks remote and local paid and clears keys.
	fields := acceptFields()
	fields["req_reference_number"] = ps.ReferenceNumber

	outcome := coord.HandleReturn(ctx, "sess1", fields)
	assert.True(t, outcome.Paid)
	assert.Equal(t, models.FlowDonePaid, outcome.State)
	assert.Equal(t, "abc123", outcome.NominationID)
	assert.Equal(t, "7612345", outcome.TransactionID)

	assert.Equal(t, 1, backend.markPaidCalls)
	assert.Equal(t, "abc123", backend.lastPaidID)
	assert.Equal(t, "7612345", backend.lastInfo.TransactionID)
	assert.Equal(t, "500.00", backend.lastInfo.Amount)

	_, err = drafts.Get(ctx, "abc123")
	assert.ErrorIs(t, err, interfaces.ErrDraftNotFound)
	id, _ = drafts.GetValue(ctx, "sess1", "nominationId")
	assert.Empty(t, id)
}

func TestSubmitMissingTradeLicense(t *testing.T) {
	backend := &fakeBackend{createID: "abc123"}
	coord, _ := newTestCoordinator(backend, &fakeProvider{})

	form := validForm()
	form.TradeLicenseURLs = nil

	_, err := coord.SubmitNomination(context.Background(), "sess1", form)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.ErrKind(err))
	assert.Zero(t, backend.createCalls)
}

func TestSubmitMissingRequiredFields(t *testing.T) {
	backend := &fakeBackend{createID: "abc123"}
	coord, _ := newTestCoordinator(backend, &fakeProvider{})

	form := validForm()
	form.Email = "  "

	_, err := coord.SubmitNomination(context.Background(), "sess1", form)
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.ErrKind(err))
	assert.Zero(t, backend.createCalls)
}

func TestSubmitBackendFailureLeavesNoState(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{createErr: models.NewFlowError(models.KindNetwork, "connect refused", nil)}
	coord, drafts := newTestCoordinator(backend, &fakeProvider{})

	_, err := coord.SubmitNomination(ctx, "sess1", validForm())
	require.Error(t, err)
	assert.Equal(t, models.KindNetwork, models.ErrKind(err))

	id, _ := drafts.GetValue(ctx, "sess1", "nominationId")
	assert.Empty(t, id)
}

func TestCheckoutBlockedWithoutTradeLicense(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{createID: "abc123"}
	provider := &fakeProvider{}
	coord, drafts := newTestCoordinator(backend, provider)

	_, err := drafts.Save(ctx, "abc123", map[string]string{"email": "jane@example.com"}, map[string][]string{})
	require.NoError(t, err)

	_, err = coord.BeginCheckout(ctx, "sess1", "abc123")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.ErrKind(err))
	assert.Zero(t, provider.createCalls)
}

func TestCheckoutParamsFailureMeansNoRedirect(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{createID: "abc123"}
	provider := &fakeProvider{
		createErr: models.NewFlowError(models.KindInvalidResponse, "backend returned a non-JSON body", nil),
	}
	coord, drafts := newTestCoordinator(backend, provider)

	_, err := coord.SubmitNomination(ctx, "sess1", validForm())
	require.NoError(t, err)

	ps, err := coord.BeginCheckout(ctx, "sess1", "abc123")
	require.Error(t, err)
	assert.Nil(t, ps)
	assert.Equal(t, models.KindInvalidResponse, models.ErrKind(err))

	// The draft stays unpaid and untouched.
	draft, err := drafts.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.DraftUnpaid, draft.Status)
}

func TestCheckoutAlreadyPaid(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{createID: "abc123"}
	provider := &fakeProvider{}
	coord, drafts := newTestCoordinator(backend, provider)

	_, err := coord.SubmitNomination(ctx, "sess1", validForm())
	require.NoError(t, err)
	_, err = drafts.MarkPaid(ctx, "abc123", models.PaymentInfo{TransactionID: "tx1"})
	require.NoError(t, err)

	_, err = coord.BeginCheckout(ctx, "sess1", "abc123")
	require.Error(t, err)
	assert.Equal(t, models.KindValidation, models.ErrKind(err))
	assert.Zero(t, provider.createCalls)
}

func TestDeclinedPaymentKeepsDraftUnpaid(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{createID: "abc123"}
	provider := &fakeProvider{verifyOK: true}
	coord, drafts := newTestCoordinator(backend, provider)

	_, err := coord.SubmitNomination(ctx, "sess1", validForm())
	require.NoError(t, err)
	ps, err := coord.BeginCheckout(ctx, "sess1", "abc123")
	require.NoError(t, err)

	fields := acceptFields()
	fields["req_reference_number"] = ps.ReferenceNumber
	fields["decision"] = "DECLINE"
	fields["reason_code"] = "205"

	outcome := coord.HandleReturn(ctx, "sess1", fields)
	assert.False(t, outcome.Paid)
	assert.Equal(t, models.FlowDoneError, outcome.State)
	assert.True(t, outcome.CanRetry)
	assert.Zero(t, backend.markPaidCalls)

	// Draft and fallback keys survive for a retry.
	draft, err := drafts.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.DraftUnpaid, draft.Status)
	id, _ := drafts.GetValue(ctx, "sess1", "nominationId")
	assert.Equal(t, "abc123", id)
	tx, _ := drafts.GetValue(ctx, "sess1", "transactionId")
	assert.Equal(t, "7612345", tx)
}

func TestDirectReturnVisit(t *testing.T) {
	backend := &fakeBackend{}
	provider := &fakeProvider{verifyOK: true}
	coord, _ := newTestCoordinator(backend, provider)

	outcome := coord.HandleReturn(context.Background(), "", map[string]string{})
	assert.False(t, outcome.Paid)
	assert.Equal(t, models.FlowDoneError, outcome.State)
	assert.Zero(t, provider.verifyCalls)
	assert.Zero(t, backend.markPaidCalls)
}

func TestHandleReturnIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{createID: "abc123"}
	provider := &fakeProvider{verifyOK: true}
	coord, _ := newTestCoordinator(backend, provider)

	_, err := coord.SubmitNomination(ctx, "sess1", validForm())
	require.NoError(t, err)
	ps, err := coord.BeginCheckout(ctx, "sess1", "abc123")
	require.NoError(t, err)

	fields := acceptFields()
	fields["req_reference_number"] = ps.ReferenceNumber

	first := coord.HandleReturn(ctx, "sess1", fields)
	second := coord.HandleReturn(ctx, "sess1", fields)

	assert.True(t, first.Paid)
	assert.True(t, second.Paid)
	assert.Equal(t, first.State, second.State)
	assert.Equal(t, first.NominationID, second.NominationID)
	// MarkPaid is last-write-wins on the backend; calling it again is safe.
	assert.Equal(t, 2, backend.markPaidCalls)
}

func TestBookkeepingFailureStillSuccess(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		createID:    "abc123",
		markPaidErr: models.NewFlowError(models.KindServer, "update failed", nil),
	}
	provider := &fakeProvider{verifyOK: true}
	coord, _ := newTestCoordinator(backend, provider)

	_, err := coord.SubmitNomination(ctx, "sess1", validForm())
	require.NoError(t, err)
	ps, err := coord.BeginCheckout(ctx, "sess1", "abc123")
	require.NoError(t, err)

	fields := acceptFields()
	fields["req_reference_number"] = ps.ReferenceNumber

	// The provider's accept is authoritative; a failed bookkeeping call is
	// logged, not surfaced as payment failure.
	outcome := coord.HandleReturn(ctx, "sess1", fields)
	assert.True(t, outcome.Paid)
	assert.Equal(t, models.FlowDonePaid, outcome.State)
}

func TestReturnResolvesIDFromSessionKey(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{createID: "abc123"}
	provider := &fakeProvider{verifyOK: true}
	coord, drafts := newTestCoordinator(backend, provider)

	_, err := coord.SubmitNomination(ctx, "sess1", validForm())
	require.NoError(t, err)

	fields := acceptFields()
	delete(fields, "req_reference_number")

	outcome := coord.HandleReturn(ctx, "sess1", fields)
	assert.True(t, outcome.Paid)
	assert.Equal(t, "abc123", outcome.NominationID)

	_, err = drafts.Get(ctx, "abc123")
	assert.ErrorIs(t, err, interfaces.ErrDraftNotFound)
}

func TestReturnResolvesIDByTransactionLookup(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{
		createID:   "abc123",
		findRecord: &models.NominationRecord{RemoteID: "abc123", Email: "jane@example.com"},
	}
	provider := &fakeProvider{verifyOK: true}
	coord, _ := newTestCoordinator(backend, provider)

	fields := acceptFields()
	delete(fields, "req_reference_number")

	// Cold store, no session: the by-transaction search is the last resort.
	outcome := coord.HandleReturn(ctx, "", fields)
	assert.True(t, outcome.Paid)
	assert.Equal(t, "abc123", outcome.NominationID)
	assert.Equal(t, 1, backend.findCalls)
}

func TestReturnAcceptedButUnresolvable(t *testing.T) {
	backend := &fakeBackend{
		findErr: models.NewFlowError(models.KindServer, "not found", nil),
	}
	provider := &fakeProvider{verifyOK: true}
	coord, _ := newTestCoordinator(backend, provider)

	fields := acceptFields()
	delete(fields, "req_reference_number")

	outcome := coord.HandleReturn(context.Background(), "", fields)
	assert.False(t, outcome.Paid)
	assert.Equal(t, models.FlowDoneError, outcome.State)
	assert.Contains(t, outcome.Message, "7612345")
	assert.Zero(t, backend.markPaidCalls)
}

func TestResolveState(t *testing.T) {
	unpaid := &models.Draft{Status: models.DraftUnpaid}
	paid := &models.Draft{Status: models.DraftPaid}

	cases := []struct {
		name   string
		draft  *models.Draft
		stored string
		query  map[string]string
		want   models.FlowState
	}{
		{"nothing persisted", nil, "", map[string]string{}, models.FlowIdle},
		{"draft pending", unpaid, "", map[string]string{}, models.FlowAwaitingPayment},
		{"only fallback key", nil, "abc123", map[string]string{}, models.FlowAwaitingPayment},
		{"paid draft", paid, "", map[string]string{}, models.FlowDonePaid},
		{"provider return", unpaid, "", map[string]string{"transaction_id": "tx1"}, models.FlowReconciling},
		{"return with decision only", nil, "", map[string]string{"decision": "CANCEL"}, models.FlowReconciling},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveState(tc.draft, tc.stored, tc.query))
		})
	}
}
