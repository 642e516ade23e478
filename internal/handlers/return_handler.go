package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/excellence-awards/nomination-flow/internal/models"
	"github.com/excellence-awards/nomination-flow/internal/payment"
	"github.com/excellence-awards/nomination-flow/internal/service"
)

// ReturnHandler serves the page the payment provider redirects back to.
type ReturnHandler struct {
	coord     *service.Coordinator
	returnURL string
}

func NewReturnHandler(coord *service.Coordinator, returnURL string) *ReturnHandler {
	return &ReturnHandler{coord: coord, returnURL: returnURL}
}

// PaymentReturn flattens the return parameters and hands them to the
// coordinator. Providers deliver the result as a GET query or a form POST,
// so both are accepted.
func (h *ReturnHandler) PaymentReturn(c *gin.Context) {
	fields := make(map[string]string)
	if err := c.Request.ParseForm(); err == nil {
		for k, v := range c.Request.Form {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	}
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}

	session := fields["session"]
	outcome := h.coord.HandleReturn(c.Request.Context(), session, fields)

	body := gin.H{
		"state":         outcome.State,
		"paid":          outcome.Paid,
		"message":       outcome.Message,
		"nominationId":  outcome.NominationID,
		"transactionId": outcome.TransactionID,
	}
	if outcome.State == models.FlowDoneError {
		// Every terminal error screen offers a way forward.
		body["actions"] = []string{"retry", "continue"}
	}
	c.JSON(http.StatusOK, body)
}

// SimulatedPay stands in for the provider's hosted page when the simulated
// payment mode is enabled: it accepts the auto-submitted form and bounces the
// browser back to the return URL with an accepted result.
func (h *ReturnHandler) SimulatedPay(c *gin.Context) {
	reference := c.PostForm("reference_number")
	amount := c.PostForm("amount")
	currency := c.PostForm("currency")

	result := payment.AcceptedResult(reference, amount, currency)

	q := url.Values{}
	for k, v := range result {
		q.Set(k, v)
	}
	if session := c.Query("session"); session != "" {
		q.Set("session", session)
	}

	c.Redirect(http.StatusFound, h.returnURL+"?"+q.Encode())
}
