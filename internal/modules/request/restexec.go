// README: HTTP-backed action executor against the counterpart server.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"valetlink/internal/types"
)

// TokenSource supplies the bearer session token for outgoing calls.
type TokenSource func(ctx context.Context) (string, error)

type RESTExecutor struct {
	base   string
	token  TokenSource
	client *http.Client
}

func NewRESTExecutor(base string, token TokenSource) *RESTExecutor {
	return &RESTExecutor{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (e *RESTExecutor) Accept(ctx context.Context, id types.ID) error {
	return e.do(ctx, http.MethodPost, fmt.Sprintf("/api/requests/%s/accept", id), nil, nil)
}

func (e *RESTExecutor) MarkCompleted(ctx context.Context, id types.ID) error {
	return e.do(ctx, http.MethodPost, fmt.Sprintf("/api/requests/%s/complete", id), nil, nil)
}

func (e *RESTExecutor) Verify(ctx context.Context, vehicleRef string) error {
	body := map[string]string{"vehicle_ref": vehicleRef}
	return e.do(ctx, http.MethodPost, "/api/vehicles/verify", body, nil)
}

func (e *RESTExecutor) MarkSelfPark(ctx context.Context, id types.ID) error {
	return e.do(ctx, http.MethodPost, fmt.Sprintf("/api/requests/%s/self-park", id), nil, nil)
}

func (e *RESTExecutor) MarkSelfPickup(ctx context.Context, id types.ID) error {
	return e.do(ctx, http.MethodPost, fmt.Sprintf("/api/requests/%s/self-pickup", id), nil, nil)
}

func (e *RESTExecutor) List(ctx context.Context) ([]*Request, error) {
	var out []*Request
	if err := e.do(ctx, http.MethodGet, "/api/worker/requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *RESTExecutor) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ActionError{Kind: ActionValidation, Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.base+path, reader)
	if err != nil {
		return &ActionError{Kind: ActionValidation, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != nil {
		token, err := e.token(ctx)
		if err != nil {
			return &ActionError{Kind: ActionUnknown, Cause: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return &ActionError{Kind: ActionNetwork, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return &ActionError{Kind: ActionUnknown, Cause: err}
			}
		}
		return nil
	case resp.StatusCode == http.StatusConflict:
		return &ActionError{Kind: ActionConflict, Message: readErrorBody(resp.Body)}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &ActionError{Kind: ActionValidation, Message: readErrorBody(resp.Body)}
	default:
		return &ActionError{Kind: ActionUnknown, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, readErrorBody(resp.Body))}
	}
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
