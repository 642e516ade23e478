package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/excellence-awards/nomination-flow/internal/models"
)

// DoJSON performs one JSON round trip against a backend endpoint and maps
// failures onto the flow error taxonomy: transport failures are network
// errors, non-JSON bodies (typically an HTML error page from a missing
// endpoint) are invalid responses, and structured 4xx/5xx envelopes are
// server errors. No retries.
func DoJSON(ctx context.Context, hc *http.Client, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return models.NewFlowError(models.KindNetwork, fmt.Sprintf("%s %s failed", method, url), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewFlowError(models.KindNetwork, "reading response body failed", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.NewFlowError(models.KindInvalidResponse,
			"backend returned a non-JSON body, endpoint missing or misconfigured", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := "backend request failed"
		var env struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil && env.Error != "" {
			msg = env.Error
		}
		return models.NewFlowError(models.KindServer,
			fmt.Sprintf("%s (status %d)", msg, resp.StatusCode), nil)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return models.NewFlowError(models.KindInvalidResponse, "decoding response failed", err)
		}
	}
	return nil
}
