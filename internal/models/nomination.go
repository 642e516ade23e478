package models

import "time"

type DraftStatus string

const (
	DraftUnpaid DraftStatus = "unpaid"
	DraftPaid   DraftStatus = "paid"
)

// Draft is the locally persisted, pre-reconciliation representation of a
// nomination. It is a cache of the remote nomination record and must
// eventually agree with it.
type Draft struct {
	ID            string              `json:"id"`
	FormValues    map[string]string   `json:"formValues"`
	FileURLs      map[string][]string `json:"fileUrls"`
	Status        DraftStatus         `json:"status"`
	TransactionID string              `json:"transactionId,omitempty"`
	SubmittedAt   time.Time           `json:"submittedAt"`
	ExpiresAt     time.Time           `json:"expiresAt"`
}

// Expired reports whether the draft's TTL has passed at the given instant.
func (d *Draft) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// NominationForm carries the raw submission from the registration form.
type NominationForm struct {
	FirstName              string   `json:"firstName"`
	LastName               string   `json:"lastName"`
	Email                  string   `json:"email"`
	Phone                  string   `json:"phone"`
	CountryCode            string   `json:"countryCode"`
	CompanyName            string   `json:"companyName"`
	Designation            string   `json:"designation"`
	Category               string   `json:"category"`
	Message                string   `json:"message"`
	TradeLicenseURLs       []string `json:"tradeLicense"`
	SupportingDocumentURLs []string `json:"supportingDocuments"`
	TermsAccepted          bool     `json:"acceptTerms"`
}

// PaymentInfo is the payment metadata attached to a nomination once the
// provider has accepted the charge.
type PaymentInfo struct {
	Amount        string    `json:"paymentAmount"`
	Currency      string    `json:"paymentCurrency"`
	Reference     string    `json:"paymentReference"`
	TransactionID string    `json:"cybersourceTransactionId"`
	AuthCode      string    `json:"authCode"`
	AuthTime      string    `json:"authTime"`
	CardType      string    `json:"cardType"`
	PaidAt        time.Time `json:"paidAt"`
}

// Merge folds the payment metadata into a draft's form values. Last write
// wins, which keeps repeated reconciliation runs safe.
func (p PaymentInfo) Merge(values map[string]string) {
	values["paymentAmount"] = p.Amount
	values["paymentCurrency"] = p.Currency
	values["paymentReference"] = p.Reference
	values["transactionId"] = p.TransactionID
	values["authCode"] = p.AuthCode
	values["authTime"] = p.AuthTime
	values["cardType"] = p.CardType
	values["paidAt"] = p.PaidAt.UTC().Format(time.RFC3339)
}

// CheckoutRequest is the input to the hosted payment provider when minting
// signed parameters. Field values are covered by the backend signature and
// must not be altered after the params are obtained.
type CheckoutRequest struct {
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	CustomerEmail     string `json:"customerEmail"`
	CustomerFirstName string `json:"customerFirstName"`
	CustomerLastName  string `json:"customerLastName"`
	CustomerAddress   string `json:"customerAddress"`
	CustomerCity      string `json:"customerCity"`
	CustomerCountry   string `json:"customerCountry"`
	ReferenceNumber   string `json:"referenceNumber"`
}

// PaymentSession is the signed parameter bag for one checkout attempt. It is
// consumed exactly once by the redirect page and never persisted.
type PaymentSession struct {
	ReferenceNumber string
	Amount          string
	Currency        string
	Params          map[string]string
	ProviderURL     string
}

// NominationRecord is the subset of the remote nomination resource needed by
// the reconciliation fallback lookup.
type NominationRecord struct {
	RemoteID string
	Email    string
}

type FlowState string

const (
	FlowIdle            FlowState = "IDLE"
	FlowFormFilled      FlowState = "FORM_FILLED"
	FlowSubmitting      FlowState = "SUBMITTING"
	FlowAwaitingPayment FlowState = "AWAITING_PAYMENT"
	FlowRedirected      FlowState = "REDIRECTED"
	FlowReconciling     FlowState = "RECONCILING"
	FlowDonePaid        FlowState = "DONE_PAID"
	FlowDoneError       FlowState = "DONE_ERROR"
)

// FlowStateInfo represents the journaled state of one nomination flow.
type FlowStateInfo struct {
	State         string
	PreviousState string
	Decision      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ReconcileOutcome string

const (
	VerifiedSuccess   ReconcileOutcome = "VERIFIED_SUCCESS"
	VerifiedFailure   ReconcileOutcome = "VERIFIED_FAILURE"
	VerificationError ReconcileOutcome = "VERIFICATION_ERROR"
)

// ReconcileResult is the terminal classification of one provider return.
type ReconcileResult struct {
	Outcome       ReconcileOutcome
	TransactionID string
	Decision      string
	Message       string
}

// ReturnOutcome is what the return handler presents to the user after
// reconciliation has run.
type ReturnOutcome struct {
	State         FlowState
	Paid          bool
	Message       string
	NominationID  string
	TransactionID string
	CanRetry      bool
}
