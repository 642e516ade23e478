package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/excellence-awards/nomination-flow/internal/models"
)

// messageWordCap bounds the free-text message forwarded to the backend.
const messageWordCap = 100

// NominationClient is the only interface to the remote nomination resource.
type NominationClient struct {
	baseURL            string
	defaultCountryCode string
	hc                 *http.Client
}

func NewNominationClient(baseURL, defaultCountryCode string, timeout time.Duration) *NominationClient {
	return &NominationClient{
		baseURL:            strings.TrimRight(baseURL, "/"),
		defaultCountryCode: defaultCountryCode,
		hc:                 &http.Client{Timeout: timeout},
	}
}

func (c *NominationClient) Create(ctx context.Context, form models.NominationForm) (string, error) {
	payload := map[string]string{
		"firstName":   form.FirstName,
		"lastName":    form.LastName,
		"email":       form.Email,
		"companyName": form.CompanyName,
		"designation": form.Designation,
		"phone":       c.normalizePhone(form.CountryCode, form.Phone),
		"category":    form.Category,
	}
	payload["tradeLicense"] = strings.Join(form.TradeLicenseURLs, ",")
	if len(form.SupportingDocumentURLs) > 0 {
		payload["supportingDocument"] = strings.Join(form.SupportingDocumentURLs, ",")
	}
	if form.Message != "" {
		payload["message"] = capWords(form.Message, messageWordCap)
	}

	var env map[string]json.RawMessage
	if err := DoJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/nominations", payload, &env); err != nil {
		return "", err
	}

	// The backend has answered with _id, id, and objectId across versions.
	for _, key := range []string{"_id", "id", "objectId"} {
		var id string
		if raw, ok := env[key]; ok && json.Unmarshal(raw, &id) == nil && id != "" {
			return id, nil
		}
	}
	return "", models.NewFlowError(models.KindInvalidResponse,
		"create nomination response carried no identifier", nil)
}

func (c *NominationClient) MarkPaid(ctx context.Context, remoteID string, info models.PaymentInfo) error {
	payload := map[string]string{
		"status":                   "paid",
		"paymentAmount":            info.Amount,
		"paymentCurrency":          info.Currency,
		"paymentDate":              info.PaidAt.UTC().Format(time.RFC3339),
		"paymentReference":         info.Reference,
		"paymentStatus":            "completed",
		"paymentMethod":            "card",
		"cybersourceTransactionId": info.TransactionID,
		"authCode":                 info.AuthCode,
		"authTime":                 info.AuthTime,
		"cardType":                 info.CardType,
		"paidAt":                   info.PaidAt.UTC().Format(time.RFC3339),
	}
	url := fmt.Sprintf("%s/api/nominations/%s/payment", c.baseURL, remoteID)
	return DoJSON(ctx, c.hc, http.MethodPatch, url, payload, nil)
}

func (c *NominationClient) FindByTransaction(ctx context.Context, transactionID string) (*models.NominationRecord, error) {
	var env map[string]json.RawMessage
	url := fmt.Sprintf("%s/api/nominations/by-transaction/%s", c.baseURL, transactionID)
	if err := DoJSON(ctx, c.hc, http.MethodGet, url, nil, &env); err != nil {
		return nil, err
	}

	rec := &models.NominationRecord{}
	for _, key := range []string{"_id", "id", "objectId"} {
		var id string
		if raw, ok := env[key]; ok && json.Unmarshal(raw, &id) == nil && id != "" {
			rec.RemoteID = id
			break
		}
	}
	if raw, ok := env["email"]; ok {
		_ = json.Unmarshal(raw, &rec.Email)
	}
	if rec.RemoteID == "" {
		return nil, models.NewFlowError(models.KindInvalidResponse,
			"nomination lookup response carried no identifier", nil)
	}
	return rec, nil
}

// normalizePhone prefixes the country calling code unless the number already
// carries one.
func (c *NominationClient) normalizePhone(countryCode, phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	cc := strings.TrimSpace(countryCode)
	if cc == "" {
		cc = c.defaultCountryCode
	}
	if !strings.HasPrefix(cc, "+") {
		cc = "+" + cc
	}
	return cc + strings.TrimLeft(phone, "0")
}

func capWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
