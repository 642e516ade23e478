package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/excellence-awards/nomination-flow/internal/models"
)

const simulatedSignature = "simulated"

// SimulatedProvider replaces the hosted checkout for non-production testing.
// Its "hosted page" is the service's own simulated endpoint, which bounces
// straight back to the return URL with an accepted result. Wired in only when
// PAYMENT_MODE=simulated.
type SimulatedProvider struct {
	endpointURL string
}

func NewSimulatedProvider(endpointURL string) *SimulatedProvider {
	return &SimulatedProvider{endpointURL: endpointURL}
}

func (p *SimulatedProvider) Name() string { return "simulated" }

func (p *SimulatedProvider) CreateParams(ctx context.Context, req models.CheckoutRequest) (*models.PaymentSession, error) {
	params := map[string]string{
		"access_key":       "simulated",
		"profile_id":       "simulated",
		"transaction_uuid": uuid.NewString(),
		"reference_number": req.ReferenceNumber,
		"amount":           req.Amount,
		"currency":         req.Currency,
		"bill_to_email":    req.CustomerEmail,
		"bill_to_forename": req.CustomerFirstName,
		"bill_to_surname":  req.CustomerLastName,
		"signed_date_time": time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		"signature":        simulatedSignature,
	}
	return &models.PaymentSession{
		ReferenceNumber: req.ReferenceNumber,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Params:          params,
		ProviderURL:     p.endpointURL,
	}, nil
}

func (p *SimulatedProvider) VerifyResponse(ctx context.Context, fields map[string]string) (bool, error) {
	return fields["signature"] == simulatedSignature, nil
}

// AcceptedResult builds the return-redirect query an accepted simulated
// charge produces, mirroring the provider's return field names.
func AcceptedResult(referenceNumber, amount, currency string) map[string]string {
	now := time.Now().UTC()
	return map[string]string{
		"transaction_id":       fmt.Sprintf("sim-%d", now.UnixNano()),
		"decision":             "ACCEPT",
		"reason_code":          "100",
		"message":              "Request was processed successfully",
		"auth_code":            "831000",
		"auth_time":            now.Format("2006-01-02T150405Z"),
		"auth_amount":          amount,
		"req_amount":           amount,
		"req_currency":         currency,
		"req_reference_number": referenceNumber,
		"card_type_name":       "Visa",
		"signature":            simulatedSignature,
		"signed_field_names":   "transaction_id,decision,reason_code",
	}
}
