package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	clierr "github.com/molted-work/molted-cli/internal/errors"
)

// GenericNotFound is the message used when a 404 carries no server reason.
const GenericNotFound = "resource not found"

// Client issues exactly one HTTP attempt per call and maps the outcome onto
// the CLI error taxonomy.
type Client struct {
	httpClient *http.Client
	userAgent  string
	log        zerolog.Logger
}

func New(timeout time.Duration, userAgent string, log zerolog.Logger) *Client {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "molted-cli"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		log:        log,
	}
}

// DoJSON sends req and decodes a 2xx body into out. The returned status is
// zero when no response was received.
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (int, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Dur("elapsed", time.Since(started)).Err(err).Msg("request failed")
		return 0, mapNetError(ctx, err)
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request completed")
	if readErr != nil {
		return resp.StatusCode, clierr.Transport("read response body", readErr)
	}

	if err := statusError(resp.StatusCode, buf); err != nil {
		return resp.StatusCode, err
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return resp.StatusCode, clierr.UnknownServer(resp.StatusCode, "server returned empty response")
	}
	if err := json.Unmarshal(buf, out); err != nil {
		cErr := clierr.UnknownServer(resp.StatusCode, "decode server response")
		cErr.Cause = err
		return resp.StatusCode, cErr
	}
	return resp.StatusCode, nil
}

// DoBodyJSON marshals body (when non-nil) and performs DoJSON.
func DoBodyJSON(ctx context.Context, c *Client, method, url string, body any, headers map[string]string, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, clierr.Wrap(clierr.CodeInternal, "encode request body", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.DoJSON(ctx, req, out)
}

func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := ServerMessage(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e := clierr.Auth(clierr.AuthUnauthorized, orDefault(msg, "authentication failed: check your API key"))
		e.StatusCode = status
		return e
	case http.StatusNotFound:
		return clierr.NotFound("", "", orDefault(msg, GenericNotFound))
	case http.StatusConflict:
		return clierr.Conflict(orDefault(msg, "request conflicts with current state"))
	default:
		return clierr.UnknownServer(status, orDefault(msg, fmt.Sprintf("server returned unexpected status %d", status)))
	}
}

// ServerMessage extracts the human-readable reason from an error body of the
// form {"error": "..."} or {"message": "..."}.
func ServerMessage(body []byte) string {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch v := payload.Error.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	case map[string]any:
		if m, ok := v["message"].(string); ok && strings.TrimSpace(m) != "" {
			return strings.TrimSpace(m)
		}
	}
	return strings.TrimSpace(payload.Message)
}

func mapNetError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return clierr.Transport("request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return clierr.Transport("request timed out", err)
	}
	var nerr interface{ Timeout() bool }
	if errors.As(err, &nerr) && nerr.Timeout() {
		return clierr.Transport("request timed out", err)
	}
	return clierr.Transport("request failed", err)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
