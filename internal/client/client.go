// Package client is the HTTP client for the lightcode daemon, shared by the
// CLI and the terminal observer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/MatthewUtzig/lightcode/internal/config"
	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

type Client struct {
	baseURL   string
	tokenPath string
	token     string
	http      *http.Client
}

// New builds a client against the configured daemon address, lazily loading
// the token file on first authenticated call.
func New() (*Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	tokenPath, err := config.TokenPath()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   cfg.DaemonBaseURL(),
		tokenPath: tokenPath,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	_ = c.loadToken()
	return c, nil
}

func NewWithBaseURL(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateSession allocates a fresh session and returns its id.
func (c *Client) CreateSession(ctx context.Context) (uint64, error) {
	var resp CreateSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sessions", nil, true, &resp); err != nil {
		return 0, err
	}
	if resp.Status != engine.StatusOK {
		return 0, reasonError("create session", resp.Reason)
	}
	return resp.SessionID, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]types.SessionSummary, error) {
	var resp ListSessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sessions", nil, true, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// SubmitTurn posts one submission against a session. The result is returned
// as the daemon reported it; callers inspect Status and Reason themselves.
func (c *Client) SubmitTurn(ctx context.Context, sessionID uint64, submission any) (*engine.SubmitResult, error) {
	var result engine.SubmitResult
	path := fmt.Sprintf("/v1/sessions/%d/turns", sessionID)
	if err := c.doJSON(ctx, http.MethodPost, path, submission, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PollEvents fetches every event with seq >= cursor plus the next cursor to
// poll from. Polling the same cursor twice returns the same window.
func (c *Client) PollEvents(ctx context.Context, sessionID, cursor uint64) ([]types.EventRecord, uint64, error) {
	var resp EventsResponse
	path := fmt.Sprintf("/v1/sessions/%d/events?cursor=%d", sessionID, cursor)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, 0, err
	}
	if resp.Status != engine.StatusOK {
		return nil, 0, reasonError("poll events", resp.Reason)
	}
	return resp.Events, resp.NextCursor, nil
}

func (c *Client) CloseSession(ctx context.Context, sessionID uint64) error {
	var result engine.SubmitResult
	path := fmt.Sprintf("/v1/sessions/%d", sessionID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, true, &result); err != nil {
		return err
	}
	if result.Status != engine.StatusOK {
		return reasonError("close session", result.Reason)
	}
	return nil
}

// ReplaySequence folds a controller sequence on the daemon without touching
// any session.
func (c *Client) ReplaySequence(ctx context.Context, payload any) (*engine.SubmitResult, error) {
	var result engine.SubmitResult
	if err := c.doJSON(ctx, http.MethodPost, "/v1/autodrive/sequence", payload, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Usage(ctx context.Context) (*engine.UsageReport, error) {
	var resp UsageResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/usage", nil, true, &resp); err != nil {
		return nil, err
	}
	if resp.Status != engine.StatusOK {
		return nil, reasonError("usage", resp.Reason)
	}
	return &resp.Usage, nil
}

func (c *Client) ShutdownDaemon(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/shutdown", nil, true, nil)
}

func (c *Client) EnsureDaemon(ctx context.Context) error {
	return c.ensureDaemon(ctx, "", false)
}

func (c *Client) EnsureDaemonVersion(ctx context.Context, expectedVersion string, restart bool) error {
	return c.ensureDaemon(ctx, expectedVersion, restart)
}

func (c *Client) ensureDaemon(ctx context.Context, expectedVersion string, restart bool) error {
	resp, err := c.Health(ctx)
	if err == nil && resp.OK {
		if expectedVersion == "" || resp.Version == expectedVersion {
			return nil
		}
		if !restart {
			return fmt.Errorf("daemon version mismatch: %s (expected %s)", resp.Version, expectedVersion)
		}
		if err := c.ShutdownDaemon(ctx); err != nil {
			apiErr := asAPIError(err)
			if apiErr == nil || apiErr.StatusCode != http.StatusNotFound {
				return err
			}
			if resp.PID <= 0 {
				return err
			}
			if killErr := killProcess(resp.PID); killErr != nil {
				return fmt.Errorf("failed to stop stale daemon (pid %d): %w", resp.PID, killErr)
			}
		}
		shutdownDeadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(shutdownDeadline) {
			if _, err := c.Health(ctx); err != nil {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	if err := StartBackgroundDaemon(); err != nil {
		return err
	}

	deadline := time.Now().Add(4 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		resp, err := c.Health(ctx)
		if err == nil && resp.OK {
			if expectedVersion == "" || resp.Version == expectedVersion {
				_ = c.loadToken()
				return nil
			}
			lastErr = fmt.Errorf("daemon version mismatch: %s (expected %s)", resp.Version, expectedVersion)
		} else {
			lastErr = err
		}
		time.Sleep(150 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("daemon not healthy after start")
	}
	return lastErr
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, requireAuth bool, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth {
		if err := c.ensureToken(); err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ensureToken() error {
	if strings.TrimSpace(c.token) == "" {
		if err := c.loadToken(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) loadToken() error {
	if c.tokenPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.token = ""
			return nil
		}
		return err
	}
	c.token = strings.TrimSpace(string(data))
	return nil
}

func reasonError(op, reason string) error {
	if reason == "" {
		reason = "unknown reason"
	}
	return fmt.Errorf("%s failed: %s", op, reason)
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

var killProcess = terminateProcess

func terminateProcess(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		return proc.Kill()
	}
	return proc.Signal(syscall.SIGTERM)
}
