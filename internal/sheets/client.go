package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// envelope is the wire shape of every query/command response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client talks to the remote sheet web app: query calls are GET ?action=...,
// command calls are a single POST endpoint with an action-tagged JSON body.
// A local limiter keeps the engine itself from tripping the remote quota.
type Client struct {
	url     string
	hc      *http.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

func NewClient(scriptURL string, rps float64, log *zap.SugaredLogger) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		url:     scriptURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		log:     log,
	}
}

// Query fetches one table (settings, categories, trucks, inventory, history).
func (c *Client) Query(ctx context.Context, action string) (Table, error) {
	var data [][]Cell
	if err := c.QueryRaw(ctx, action, &data); err != nil {
		return Table{}, err
	}
	return NewTable(data), nil
}

// QueryRaw fetches a query whose data payload is not table-shaped (e.g. the
// precomputed low-stock view) and unmarshals it into v.
func (c *Client) QueryRaw(ctx context.Context, action string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: action, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?action="+url.QueryEscape(action), nil)
	if err != nil {
		return err
	}
	body, err := c.do(action, req)
	if err != nil {
		return err
	}
	env, err := parseEnvelope(action, body)
	if err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", action, err)
	}
	return nil
}

// Command posts one action to the command endpoint. payload fields are
// merged into the body next to the action tag.
func (c *Client) Command(ctx context.Context, action string, payload map[string]any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &TransportError{Op: action, Err: err}
	}
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	// text/plain keeps the web-app endpoint from demanding a CORS preflight
	req.Header.Set("Content-Type", "text/plain")
	respBody, err := c.do(action, req)
	if err != nil {
		return err
	}
	_, err = parseEnvelope(action, respBody)
	return err
}

func (c *Client) do(action string, req *http.Request) ([]byte, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: action, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: action, Err: err}
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", action, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, &TransportError{Op: action, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}
	return body, nil
}

func parseEnvelope(action string, body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, &TransportError{Op: action, Err: fmt.Errorf("malformed envelope: %w", err)}
	}
	if !env.Success {
		return env, &RemoteError{Action: action, Message: env.Error}
	}
	return env, nil
}
