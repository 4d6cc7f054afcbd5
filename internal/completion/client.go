package completion

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
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"appstore/internal/config"
)

var (
	// ErrUpstream wraps transport failures, non-2xx statuses and malformed provider bodies.
	ErrUpstream = errors.New("completion provider error")
	// ErrNoAPIKey means the provider key is not configured.
	ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY environment variable is required")
)

// Prefill seeds the trailing assistant turn. The provider does not echo it back.
const Prefill = "function"

// Request is a single-turn completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// Prefill, when set, is sent as the assistant turn and prepended to the output.
	Prefill string
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream,omitempty"`
}

// Client talks to an Anthropic-compatible messages API. It holds no per-request state.
type Client struct {
	http         *http.Client
	stream       *http.Client
	baseURL      string
	apiKey       string
	version      string
	defaultModel string
	maxTokens    int
	logger       zerolog.Logger
}

// NewClient builds a client. Buffered calls use the configured timeout; streams rely on
// the request context instead so long generations are not cut off.
func NewClient(cfg config.CompletionConfig, logger zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{
		http:         &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		stream:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		version:      cfg.Version,
		defaultModel: cfg.DefaultModel,
		maxTokens:    maxTokens,
		logger:       logger.With().Str("component", "completion").Logger(),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

func (c *Client) body(req Request, stream bool) messagesRequest {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	msgs := []message{{Role: "user", Content: []contentBlock{{Type: "text", Text: req.Prompt}}}}
	if req.Prefill != "" {
		msgs = append(msgs, message{Role: "assistant", Content: []contentBlock{{Type: "text", Text: req.Prefill}}})
	}
	return messagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    msgs,
		Stream:      stream,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.version)
	return req, nil
}

// do sends req and fails on transport errors and non-2xx statuses.
func (c *Client) do(hc *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", req.URL.Path).Msg("request to provider failed")
		return nil, fmt.Errorf("%w: Request failed - %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("path", req.URL.Path).
			Str("body", string(text)).
			Msg("provider returned error status")
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return resp, nil
}

// StatusError is a non-2xx provider response. It matches ErrUpstream.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error - %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool { return target == ErrUpstream }

// Generate performs a buffered completion and returns the first content block's text,
// with the prefill re-attached.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/messages", c.body(req, false))
	if err != nil {
		return "", err
	}
	resp, err := c.do(c.http, httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	text := gjson.GetBytes(raw, "content.0.text")
	if text.Type != gjson.String {
		c.logger.Error().Str("body", string(raw)).Msg("no text content in provider response")
		return "", fmt.Errorf("%w: no content in response", ErrUpstream)
	}
	return req.Prefill + text.Str, nil
}

// Stream opens a streaming completion. The caller owns and must close the body.
func (c *Client) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/messages", c.body(req, true))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	resp, err := c.do(c.stream, httpReq)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// AppMetadata is what the provider suggests for a new project.
type AppMetadata struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Version     string  `json:"version"`
	Price       float64 `json:"price"`
	Icon        string  `json:"icon"`
}

// GenerateMetadata asks the provider to name and describe an app for prompt.
func (c *Client) GenerateMetadata(ctx context.Context, prompt, model string) (*AppMetadata, error) {
	text, err := c.Generate(ctx, Request{
		Model:       model,
		Prompt:      MetadataPrompt(prompt),
		MaxTokens:   1024,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	var md AppMetadata
	if err := json.Unmarshal([]byte(extractJSON(text)), &md); err != nil {
		c.logger.Error().Err(err).Str("text", text).Msg("failed to parse metadata JSON")
		return nil, fmt.Errorf("%w: metadata is not valid JSON", ErrUpstream)
	}
	return &md, nil
}

// extractJSON trims anything around the outermost JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
