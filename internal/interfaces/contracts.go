package interfaces

import (
	"context"
	"errors"

	"github.com/excellence-awards/nomination-flow/internal/models"
)

// ErrDraftNotFound is returned by DraftStore lookups when no live draft
// exists for the id. Storage failures degrade to this error as well, so the
// coordinator treats a cold store the same as an empty one.
var ErrDraftNotFound = errors.New("draft not found")

// DraftStore defines the contract for the TTL key-value store holding one
// in-flight nomination draft per flow, plus the scalar fallback keys used
// when the draft itself is unreadable.
type DraftStore interface {
	Save(ctx context.Context, id string, formValues map[string]string, fileURLs map[string][]string) (*models.Draft, error)
	Get(ctx context.Context, id string) (*models.Draft, error)
	MarkPaid(ctx context.Context, id string, info models.PaymentInfo) (*models.Draft, error)
	Delete(ctx context.Context, id string) error

	PutValue(ctx context.Context, session, key, value string) error
	GetValue(ctx context.Context, session, key string) (string, error)
	ClearValues(ctx context.Context, session string, keys ...string) error
}

// NominationBackend is the only interface to the remote nomination resource.
type NominationBackend interface {
	Create(ctx context.Context, form models.NominationForm) (string, error)
	MarkPaid(ctx context.Context, remoteID string, info models.PaymentInfo) error
	FindByTransaction(ctx context.Context, transactionID string) (*models.NominationRecord, error)
}

// PaymentProvider mints signed hosted-checkout parameters and verifies the
// signature over a provider return. Resolved once at startup; the simulated
// implementation exists for non-production testing only.
type PaymentProvider interface {
	Name() string
	CreateParams(ctx context.Context, req models.CheckoutRequest) (*models.PaymentSession, error)
	VerifyResponse(ctx context.Context, fields map[string]string) (bool, error)
}

// FlowJournal defines the contract for the durable per-nomination flow state
// journal.
type FlowJournal interface {
	InsertInitialState(ctx context.Context, nominationID string, state models.FlowState) error
	TransitionState(ctx context.Context, nominationID string, from, to models.FlowState) (int64, error)
	UpdateDecision(ctx context.Context, nominationID, decision string) error
	GetByNominationID(ctx context.Context, nominationID string) (*models.FlowStateInfo, error)
}

// EventPublisher emits flow state-change events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, nominationID string, from, to models.FlowState) error
}
