package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pkt.systems/agstream/internal/logx"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

// Default endpoint paths, relative to the base URL.
const (
	DefaultChatPath      = "/chat"
	DefaultHistoriesPath = "/chat/histories"
	DefaultHistoryPath   = "/chat/history/{thread_id}"
)

const defaultRequestTimeout = 30 * time.Second

// Config describes the chat server endpoints.
type Config struct {
	BaseURL        string
	ChatPath       string
	HistoriesPath  string
	HistoryPath    string
	Headers        map[string]string
	RequestTimeout time.Duration
}

// Client talks to a chat server: one streaming endpoint and two JSON endpoints.
type Client struct {
	cfg          Config
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithJSONClient sets the client used for history requests.
func WithJSONClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithStreamClient sets the client used for streaming chat requests.
func WithStreamClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.streamClient = hc
		}
	}
}

// New validates cfg and returns a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url must include scheme and host: %q", cfg.BaseURL)
	}
	if cfg.ChatPath == "" {
		cfg.ChatPath = DefaultChatPath
	}
	if cfg.HistoriesPath == "" {
		cfg.HistoriesPath = DefaultHistoriesPath
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = DefaultHistoryPath
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	c := &Client{
		cfg:          cfg,
		baseURL:      base,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		streamClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendPayload is the caller side of a chat request. Nil fields get defaults.
type SendPayload struct {
	Content        string
	State          json.RawMessage
	Messages       []schema.Message
	Tools          []schema.Tool
	Context        []schema.ContextItem
	ForwardedProps json.RawMessage
}

// BuildChatRequest fills in run and message ids and empty collections.
func BuildChatRequest(threadID schema.ThreadID, payload SendPayload) schema.ChatRequest {
	req := schema.ChatRequest{
		ThreadID:       threadID,
		RunID:          schema.NewRunID(),
		State:          payload.State,
		Messages:       payload.Messages,
		Tools:          payload.Tools,
		Context:        payload.Context,
		ForwardedProps: payload.ForwardedProps,
	}
	if len(req.State) == 0 {
		req.State = json.RawMessage(`{}`)
	}
	if req.Messages == nil {
		req.Messages = []schema.Message{{
			ID:      schema.NewMessageID(),
			Role:    schema.RoleUser,
			Content: payload.Content,
		}}
	}
	if req.Tools == nil {
		req.Tools = []schema.Tool{}
	}
	if req.Context == nil {
		req.Context = []schema.ContextItem{}
	}
	if len(req.ForwardedProps) == 0 {
		req.ForwardedProps = json.RawMessage(`{}`)
	}
	return req
}

// SendMessage starts a streaming chat request on its own goroutine and
// returns the connection driving it. handler receives the stream events and,
// if it implements LifecycleHandler, the terminal notification.
func (c *Client) SendMessage(ctx context.Context, threadID schema.ThreadID, payload SendPayload, handler any) (*Connection, error) {
	if strings.TrimSpace(string(threadID)) == "" {
		return nil, schema.ErrInvalidThread
	}
	req := BuildChatRequest(threadID, payload)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}
	header := c.headers()
	header.Set("Content-Type", "application/json")

	log := logx.WithRun(logx.CtxThread(ctx, threadID), req.RunID)
	conn := NewConnection(handler, WithHTTPClient(c.streamClient), WithLogger(log))
	target := c.resolve(c.cfg.ChatPath)
	log.Info("client chat start", "messages", len(req.Messages))
	go conn.Connect(ctx, target, RequestOptions{
		Method: http.MethodPost,
		Header: header,
		Body:   body,
	})
	return conn, nil
}

// ListHistories returns the stored conversation list.
func (c *Client) ListHistories(ctx context.Context) ([]schema.HistoryItem, error) {
	var items []schema.HistoryItem
	if err := c.getJSON(ctx, c.cfg.HistoriesPath, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []schema.HistoryItem{}
	}
	return items, nil
}

// GetHistory returns the stored transcript of one thread.
func (c *Client) GetHistory(ctx context.Context, threadID schema.ThreadID) ([]schema.Message, error) {
	if strings.TrimSpace(string(threadID)) == "" {
		return nil, schema.ErrInvalidThread
	}
	path := strings.ReplaceAll(c.cfg.HistoryPath, "{thread_id}", url.PathEscape(string(threadID)))
	var messages []schema.Message
	if err := c.getJSON(ctx, path, &messages); err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", schema.ErrThreadNotFound, threadID)
		}
		return nil, err
	}
	if messages == nil {
		messages = []schema.Message{}
	}
	return messages, nil
}

func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	target := c.resolve(path)
	log := pslog.Ctx(ctx).With("url", target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = c.headers()
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("client request failed", "err", err)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := newHTTPError(resp)
		log.Warn("client request rejected", "status", resp.StatusCode, "reason", statusReason(resp.StatusCode), "body", herr.Body)
		return herr
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	log.Debug("client request done", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) headers() http.Header {
	header := http.Header{}
	for key, value := range c.cfg.Headers {
		header.Set(key, value)
	}
	return header
}

func statusReason(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad request parameters"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusInternalServerError:
		return "server error"
	default:
		return http.StatusText(status)
	}
}
