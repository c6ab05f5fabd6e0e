package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxDetail bounds how much of an error body is kept in RequestError.Detail.
const maxDetail = 256

// doJSON POSTs body as JSON to url and decodes the envelope into out.
// Non-2xx statuses and transport failures become *RequestError.
func doJSON(ctx context.Context, client *http.Client, url, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("remote.doJSON marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("remote.doJSON new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req) // #nosec G704 -- URL is the user-configured remote base
	if err != nil {
		return &RequestError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetail))
		return &RequestError{Path: path, StatusCode: resp.StatusCode, Detail: errorDetail(snippet)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Path: path, Err: err}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return fmt.Errorf("remote %s: %w: body is not a JSON object", path, ErrDecodeFailed)
	}
	if out == nil {
		out = &json.RawMessage{}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("remote %s: %w: %w", path, ErrDecodeFailed, err)
	}
	return nil
}

// errorDetail prefers the envelope message of an error body over the raw text.
func errorDetail(snippet []byte) string {
	snippet = bytes.TrimSpace(snippet)
	var env struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(snippet, &env) == nil && env.Message != "" {
		return env.Message
	}
	return string(snippet)
}
