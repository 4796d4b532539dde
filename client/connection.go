package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"pkt.systems/agstream/internal/stream"
	"pkt.systems/pslog"
)

// State is the lifecycle state of a Connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateCompleted
	StateAborted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateErrored
}

// LifecycleHandler is the optional capability notified when a stream ends.
// Neither method is called for an aborted connection.
type LifecycleHandler interface {
	OnError(err error)
	OnComplete()
}

// AbortHandler is the optional capability notified when the Connect context
// is cancelled or expires. An explicit Abort does not call it.
type AbortHandler interface {
	OnAbort()
}

// RequestOptions customizes the streaming request.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

// ErrNoBody reports a successful response that carried no body.
var ErrNoBody = errors.New("response has no body")

const readChunkSize = 32 * 1024

// Connection runs one streaming request and feeds its events to a handler.
type Connection struct {
	httpClient *http.Client
	handler    any
	lifecycle  LifecycleHandler
	onAbort    AbortHandler
	logger     pslog.Logger

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithHTTPClient sets the client used for the request. It should not carry a
// whole-request timeout.
func WithHTTPClient(client *http.Client) ConnectionOption {
	return func(c *Connection) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger overrides the logger taken from the Connect context.
func WithLogger(logger pslog.Logger) ConnectionOption {
	return func(c *Connection) {
		c.logger = logger
	}
}

// NewConnection binds handler to a new idle connection. The handler may
// implement any of the stream capability interfaces and LifecycleHandler.
func NewConnection(handler any, opts ...ConnectionOption) *Connection {
	c := &Connection{
		httpClient: http.DefaultClient,
		handler:    handler,
		done:       make(chan struct{}),
	}
	c.lifecycle, _ = handler.(LifecycleHandler)
	c.onAbort, _ = handler.(AbortHandler)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the connection has stopped: Connect returned, or the
// connection was aborted before Connect ran.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Abort cancels the connection. It is safe to call at any time and more than once.
func (c *Connection) Abort() {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = StateAborted
	if c.cancel != nil {
		c.cancel()
	}
	log := c.logger
	c.mu.Unlock()
	if prev == StateIdle {
		c.finish()
	}
	if log != nil {
		log.Debug("connection aborted", "from", prev)
	}
}

// Connect performs the request and streams the response until it ends, is
// aborted, or fails. It returns the terminal state. Connect only runs once;
// later calls return the current state.
func (c *Connection) Connect(ctx context.Context, url string, opts RequestOptions) State {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return state
	}
	logger := c.logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	log := logger.With("url", url)
	c.logger = log
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateConnecting
	c.mu.Unlock()
	defer c.finish()
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return c.fail(log, fmt.Errorf("build request: %w", err))
	}
	for key, values := range opts.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "text/event-stream")

	log.Debug("connection request start", "method", method)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return c.aborted(log)
		}
		return c.fail(log, fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(log, newHTTPError(resp))
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return c.fail(log, ErrNoBody)
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.state = StateStreaming
	c.mu.Unlock()
	log.Debug("connection streaming", "status", resp.StatusCode)

	framer := stream.NewFramer()
	dispatcher := stream.NewDispatcher(c.handler, logger)
	buf := make([]byte, readChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, line := range framer.Write(buf[:n]) {
				if reqCtx.Err() != nil {
					return c.aborted(log)
				}
				dispatcher.HandleLine(line)
			}
		}
		if readErr == nil {
			continue
		}
		if reqCtx.Err() != nil {
			return c.aborted(log)
		}
		if errors.Is(readErr, io.EOF) {
			for _, line := range framer.Flush() {
				if reqCtx.Err() != nil {
					return c.aborted(log)
				}
				dispatcher.HandleLine(line)
			}
			return c.complete(log)
		}
		return c.fail(log, fmt.Errorf("read stream: %w", readErr))
	}
}

func (c *Connection) complete(log pslog.Logger) State {
	c.mu.Lock()
	if c.state.Terminal() {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.state = StateCompleted
	c.mu.Unlock()
	log.Debug("connection completed")
	if c.lifecycle != nil {
		c.lifecycle.OnComplete()
	}
	return StateCompleted
}

func (c *Connection) fail(log pslog.Logger, err error) State {
	c.mu.Lock()
	if c.state.Terminal() {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.state = StateErrored
	c.mu.Unlock()
	log.Warn("connection failed", "err", err)
	if c.lifecycle != nil {
		c.lifecycle.OnError(err)
	}
	return StateErrored
}

// aborted records a cancellation seen by the request or the read loop. When
// the context, not Abort, caused it the handler is told through OnAbort.
func (c *Connection) aborted(log pslog.Logger) State {
	c.mu.Lock()
	cancelled := !c.state.Terminal()
	if cancelled {
		c.state = StateAborted
	}
	state := c.state
	c.mu.Unlock()
	log.Debug("connection stopped", "state", state, "context_cancelled", cancelled)
	if cancelled && c.onAbort != nil {
		c.onAbort.OnAbort()
	}
	return state
}

func (c *Connection) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// HTTPError reports a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %s", e.Status)
	}
	return fmt.Sprintf("http status %s: %s", e.Status, e.Body)
}

const errorBodyLimit = 4096

func newHTTPError(resp *http.Response) *HTTPError {
	herr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	if herr.Status == "" {
		herr.Status = fmt.Sprintf("%d", resp.StatusCode)
	}
	if resp.Body != nil {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		herr.Body = strings.TrimSpace(string(data))
	}
	return herr
}
