package ankiconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Defaults for a local AnkiConnect add-on.
const (
	DefaultEndpoint = "http://127.0.0.1:8765"
	DefaultVersion  = 6
	DefaultTimeout  = 5 * time.Second
)

const maxResponseBytes = 16 << 20

// Config configures a Client.
type Config struct {
	Endpoint string
	Version  int
	Timeout  time.Duration

	// BreakerFailures is the number of consecutive connectivity failures
	// that opens the circuit. Zero disables the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open.
	BreakerCooldown time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// DefaultConfig returns the configuration for a local AnkiConnect.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:        DefaultEndpoint,
		Version:         DefaultVersion,
		Timeout:         DefaultTimeout,
		BreakerFailures: 5,
		BreakerCooldown: 10 * time.Second,
	}
}

// Client invokes AnkiConnect actions.
type Client struct {
	config  *Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a client. A nil config uses DefaultConfig.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Version == 0 {
		config.Version = DefaultVersion
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	c := &Client{
		config: config,
		http:   config.HTTPClient,
		logger: config.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if config.BreakerFailures > 0 {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ankiconnect",
			MaxRequests: 1,
			Timeout:     config.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= config.BreakerFailures
			},
			IsSuccessful: func(err error) bool {
				return !IsRetryable(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Info("ankiconnect: circuit state changed",
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}
	return c
}

// Endpoint returns the URL the client talks to.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// ProtocolVersion returns the protocol version sent with Call.
func (c *Client) ProtocolVersion() int {
	return c.config.Version
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params"`
}

// Invoke performs one action and returns its raw result. A timeout of zero
// uses the configured default.
func (c *Client) Invoke(ctx context.Context, action string, version int, params any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if params == nil {
		params = struct{}{}
	}
	body, err := json.Marshal(request{Action: action, Version: version, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	start := time.Now()
	result, err := c.execute(func() (json.RawMessage, error) {
		return c.roundTrip(ctx, action, body, timeout)
	})
	c.logger.Debug("ankiconnect: invoke",
		slog.String("action", action),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", err == nil))
	return result, err
}

func (c *Client) execute(fn func() (json.RawMessage, error)) (json.RawMessage, error) {
	if c.breaker == nil {
		return fn()
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &ConnectivityError{Endpoint: c.config.Endpoint, Err: err}
	}
	if err != nil {
		return nil, err
	}
	return out.(json.RawMessage), nil
}

func (c *Client) roundTrip(ctx context.Context, action string, body []byte, timeout time.Duration) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ConnectivityError{Endpoint: c.config.Endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, callCtx, action, timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.transportError(ctx, callCtx, action, timeout, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolViolationError{
			Action: action,
			Reason: fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode),
		}
	}
	return decodeEnvelope(action, data)
}

// transportError classifies a failed exchange. The caller's own
// cancellation is returned as is.
func (c *Client) transportError(parent, callCtx context.Context, action string, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("%s: %w", action, parent.Err())
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Action: action, Timeout: timeout}
	}
	return &ConnectivityError{Endpoint: c.config.Endpoint, Err: err}
}

// decodeEnvelope validates the {result, error} response shape and returns
// the result.
func decodeEnvelope(action string, data []byte) (json.RawMessage, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil || env == nil {
		return nil, &ProtocolViolationError{Action: action, Reason: "response is not a JSON object"}
	}
	if len(env) != 2 {
		return nil, &ProtocolViolationError{Action: action, Reason: "response has an unexpected number of fields"}
	}
	result, ok := env["result"]
	if !ok {
		return nil, &ProtocolViolationError{Action: action, Reason: "response is missing required 'result' field"}
	}
	errValue, ok := env["error"]
	if !ok {
		return nil, &ProtocolViolationError{Action: action, Reason: "response is missing required 'error' field"}
	}
	if msg, failed := errorMessage(errValue); failed {
		return nil, &RemoteApplicationError{Action: action, Message: msg}
	}
	return result, nil
}

// errorMessage interprets the error member. null, false, 0 and "" mean no
// error. Strings are returned as is, anything else as its JSON text.
func errorMessage(raw json.RawMessage) (string, bool) {
	switch string(bytes.TrimSpace(raw)) {
	case "null", "false", "0", `""`:
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), true
}
