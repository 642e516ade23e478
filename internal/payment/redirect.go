package payment

import (
	"html/template"
	"sort"
	"strings"

	"github.com/excellence-awards/nomination-flow/internal/models"
)

// The redirect page is a hidden form carrying exactly the signed parameter
// bag, auto-submitted to the provider's hosted endpoint. Serving it to the
// browser is the navigation away from the application.
var redirectTmpl = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><title>Redirecting to secure payment</title></head>
<body onload="document.getElementById('payment_form').submit();">
<p>Redirecting to the secure payment page&hellip;</p>
<form id="payment_form" method="POST" action="{{.Action}}">
{{- range .Fields}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Continue to payment</button></noscript>
</form>
</body>
</html>
`))

type redirectField struct {
	Name  string
	Value string
}

// BuildRedirectPage renders the auto-submitting form for a payment session.
// Field order is stable so identical sessions render identical pages.
func BuildRedirectPage(session *models.PaymentSession) (string, error) {
	fields := make([]redirectField, 0, len(session.Params))
	for name, value := range session.Params {
		fields = append(fields, redirectField{Name: name, Value: value})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	var b strings.Builder
	err := redirectTmpl.Execute(&b, struct {
		Action string
		Fields []redirectField
	}{Action: session.ProviderURL, Fields: fields})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
