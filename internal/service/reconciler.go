package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/excellence-awards/nomination-flow/internal/interfaces"
	"github.com/excellence-awards/nomination-flow/internal/models"
	"github.com/excellence-awards/nomination-flow/internal/telemetry"
)

// Reconciler classifies a provider return into one of the terminal outcomes.
// It only reads and verifies; no charge is ever re-triggered here, so running
// it twice for the same transaction is safe.
type Reconciler struct {
	provider interfaces.PaymentProvider
}

func NewReconciler(provider interfaces.PaymentProvider) *Reconciler {
	return &Reconciler{provider: provider}
}

// Reconcile verifies the signature over the returned fields and evaluates
// the success predicate. A result is authoritative only after verification;
// an unverified result must never mark a draft paid.
func (r *Reconciler) Reconcile(ctx context.Context, fields map[string]string) *models.ReconcileResult {
	txID := fields["transaction_id"]
	if txID == "" {
		// Direct navigation to the return URL; the provider completed
		// no transaction, so the verify endpoint is not consulted.
		return &models.ReconcileResult{
			Outcome: models.VerificationError,
			Message: "No completed transaction was found in the payment response.",
		}
	}

	decision := fields["decision"]

	ok, err := r.provider.VerifyResponse(ctx, fields)
	if err != nil {
		telemetry.Logger.Error("Payment response verification errored",
			zap.String("transaction_id", txID),
			zap.Error(err),
		)
		return &models.ReconcileResult{
			Outcome:       models.VerificationError,
			TransactionID: txID,
			Decision:      decision,
			Message:       "The payment result could not be verified.",
		}
	}
	if !ok {
		telemetry.Logger.Warn("Payment response signature invalid",
			zap.String("transaction_id", txID),
			zap.String("decision", decision),
		)
		return &models.ReconcileResult{
			Outcome:       models.VerificationError,
			TransactionID: txID,
			Decision:      decision,
			Message:       "The payment result signature is invalid.",
		}
	}

	if decision == "ACCEPT" && fields["reason_code"] == "100" {
		return &models.ReconcileResult{
			Outcome:       models.VerifiedSuccess,
			TransactionID: txID,
			Decision:      decision,
			Message:       "Payment completed successfully.",
		}
	}

	return &models.ReconcileResult{
		Outcome:       models.VerifiedFailure,
		TransactionID: txID,
		Decision:      decision,
		Message:       failureMessage(decision, fields["message"], fields["reason_code"]),
	}
}

func failureMessage(decision, providerMsg, reasonCode string) string {
	switch decision {
	case "DECLINE":
		if providerMsg != "" {
			return "Payment declined: " + providerMsg
		}
		return "Payment declined (reason " + reasonCode + ")."
	case "ERROR":
		return "The payment could not be processed. Please try again."
	case "CANCEL":
		return "Payment was cancelled."
	default:
		return decision
	}
}
