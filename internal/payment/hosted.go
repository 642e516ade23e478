package payment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/excellence-awards/nomination-flow/internal/client"
	"github.com/excellence-awards/nomination-flow/internal/models"
)

// HostedProvider mints signed parameters for the provider's hosted checkout
// page through the backend signer. The backend is the sole signer; the
// parameter bag is forwarded verbatim because the signature covers the exact
// field values.
type HostedProvider struct {
	baseURL  string
	provider string
	hc       *http.Client
}

func NewHostedProvider(baseURL, provider string, timeout time.Duration) *HostedProvider {
	return &HostedProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		provider: provider,
		hc:       &http.Client{Timeout: timeout},
	}
}

func (p *HostedProvider) Name() string { return p.provider }

func (p *HostedProvider) CreateParams(ctx context.Context, req models.CheckoutRequest) (*models.PaymentSession, error) {
	var resp struct {
		Params         map[string]string `json:"params"`
		CybersourceURL string            `json:"cybersourceUrl"`
	}
	url := p.baseURL + "/api/payments/" + p.provider + "-hosted/create-payment-params"
	if err := client.DoJSON(ctx, p.hc, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Params) == 0 || resp.CybersourceURL == "" {
		return nil, models.NewFlowError(models.KindInvalidResponse,
			"payment params response missing signed fields or provider url", nil)
	}
	return &models.PaymentSession{
		ReferenceNumber: req.ReferenceNumber,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Params:          resp.Params,
		ProviderURL:     resp.CybersourceURL,
	}, nil
}

func (p *HostedProvider) VerifyResponse(ctx context.Context, fields map[string]string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	url := p.baseURL + "/api/payments/" + p.provider + "-hosted/verify-response"
	if err := client.DoJSON(ctx, p.hc, http.MethodPost, url, fields, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}
