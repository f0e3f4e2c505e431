package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"kigurumi-cli/metrics"
)

const (
	DefaultEndpoint  = "https://script.google.com/macros/s/AKfycbyEHl9JPivz818Wq63xyxiHL2wq_eBODviMwE14SaJ4DzD_aFR_1dhl_2oG8l6bomfv/exec"
	defaultUserAgent = "kigurumi-cli/1.0"
	callbackPrefix   = "callback"
	maxReplyBytes    = 8 << 20

	TimeoutDefault   = 10 * time.Second
	TimeoutRead      = 15 * time.Second
	TimeoutBootstrap = 3 * time.Second
)

// Outcomes reported in CallRecord.
const (
	OutcomeOK        = "ok"
	OutcomeTimeout   = "timeout"
	OutcomeLoadFault = "load_fault"
	OutcomeCanceled  = "canceled"
	OutcomeError     = "error"
)

// Client talks to the reservation backend over its JSONP endpoint. Every call
// is registered under a fresh callback name; the reply body names the callback
// it answers and is routed back through that registry.
type Client struct {
	HTTP      *http.Client
	Endpoint  string
	UserAgent string
	Logger    *zap.Logger
	// Observer, when set, receives one record per completed call.
	Observer func(CallRecord)

	mu      sync.Mutex
	pending map[string]*pendingCall
}

// Call is an in-flight backend action. Done receives the call exactly once.
type Call struct {
	Action   string
	Callback string
	Reply    json.RawMessage
	Error    error
	Done     chan *Call

	started time.Time
}

// CallRecord describes a finished call without its payload.
type CallRecord struct {
	Action    string
	Callback  string
	Outcome   string
	Duration  time.Duration
	StartedAt time.Time
}

type pendingCall struct {
	call   *Call
	timer  *time.Timer
	cancel context.CancelFunc
}

func NewClient(endpoint string, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Endpoint:  endpoint,
		UserAgent: defaultUserAgent,
		Logger:    logger,
		pending:   map[string]*pendingCall{},
	}
}

// Go starts action asynchronously. The returned call completes with the reply,
// ErrTimeout once timeout elapses, ErrLoadFault when the request fails, or the
// context error, whichever comes first.
func (c *Client) Go(ctx context.Context, action string, payload any, timeout time.Duration) *Call {
	if timeout <= 0 {
		timeout = TimeoutDefault
	}
	call := &Call{
		Action:   action,
		Callback: NewCallbackName(callbackPrefix),
		Done:     make(chan *Call, 1),
		started:  time.Now(),
	}

	reqCtx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(reqCtx, action, call.Callback, payload)
	if err != nil {
		cancel()
		call.Error = err
		call.Done <- call
		return call
	}

	p := &pendingCall{call: call, cancel: cancel}
	c.mu.Lock()
	if c.pending == nil {
		c.pending = map[string]*pendingCall{}
	}
	c.pending[call.Callback] = p
	p.timer = time.AfterFunc(timeout, func() {
		c.finish(call.Callback, nil, fmt.Errorf("%w: %s after %s", ErrTimeout, action, timeout))
	})
	c.mu.Unlock()

	c.Logger.Debug("backend call issued",
		zap.String("action", action),
		zap.String("callback", call.Callback),
		zap.Duration("timeout", timeout))

	go c.load(req, call.Callback)
	return call
}

// Invoke runs action and blocks until it completes.
func (c *Client) Invoke(ctx context.Context, action string, payload any, timeout time.Duration) (json.RawMessage, error) {
	call := <-c.Go(ctx, action, payload, timeout).Done
	return call.Reply, call.Error
}

// Pending returns the number of registered callbacks still waiting for a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) load(req *http.Request, callback string) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			c.finish(callback, nil, ctxErr)
			return
		}
		c.finish(callback, nil, fmt.Errorf("%w: %v", ErrLoadFault, err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		c.finish(callback, nil, fmt.Errorf("%w: read reply: %v", ErrLoadFault, err))
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.finish(callback, nil, fmt.Errorf("%w: %s: %s", ErrLoadFault, resp.Status, bytes.TrimSpace(truncate(body, 200))))
		return
	}

	name, reply, err := parseReply(body)
	if err != nil {
		c.finish(callback, nil, fmt.Errorf("%w: %v", ErrLoadFault, err))
		return
	}
	if !c.finish(name, reply, nil) {
		c.Logger.Debug("reply for unknown or completed callback", zap.String("callback", name))
	}
}

// finish completes the pending call registered under name. Only the first
// caller for a given name wins; later calls return false and do nothing.
func (c *Client) finish(name string, reply json.RawMessage, err error) bool {
	c.mu.Lock()
	p, ok := c.pending[name]
	if ok {
		delete(c.pending, name)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}

	p.timer.Stop()
	p.cancel()

	call := p.call
	call.Reply = reply
	call.Error = err
	c.observe(call)
	call.Done <- call
	return true
}

func (c *Client) observe(call *Call) {
	duration := time.Since(call.started)
	outcome := Outcome(call.Error)
	metrics.TransportCallsTotal.WithLabelValues(call.Action, outcome).Inc()
	metrics.TransportCallDuration.WithLabelValues(call.Action).Observe(duration.Seconds())
	if call.Error != nil {
		c.Logger.Warn("backend call failed",
			zap.String("action", call.Action),
			zap.String("callback", call.Callback),
			zap.Duration("duration", duration),
			zap.Error(call.Error))
	} else {
		c.Logger.Debug("backend call completed",
			zap.String("action", call.Action),
			zap.String("callback", call.Callback),
			zap.Duration("duration", duration))
	}
	if c.Observer != nil {
		c.Observer(CallRecord{
			Action:    call.Action,
			Callback:  call.Callback,
			Outcome:   outcome,
			Duration:  duration,
			StartedAt: call.started,
		})
	}
}

// Outcome classifies a call error for journaling and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrLoadFault):
		return OutcomeLoadFault
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

func (c *Client) newRequest(ctx context.Context, action, callback string, payload any) (*http.Request, error) {
	base, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, err
	}
	query := base.Query()
	query.Set("action", action)
	query.Set("callback", callback)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", action, err)
		}
		query.Set("data", string(data))
	}
	base.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/javascript, */*;q=0.8")
	return req, nil
}

var callbackSeq atomic.Uint64

// NewCallbackName returns prefix_<unix millis>_<random hex>.
func NewCallbackName(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return prefix + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + strconv.FormatUint(callbackSeq.Add(1), 10)
	}
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// parseReply splits a `name(json);` body into the callback name and its argument.
func parseReply(body []byte) (string, json.RawMessage, error) {
	s := bytes.TrimSpace(body)
	s = bytes.TrimSpace(bytes.TrimPrefix(s, []byte("/**/")))
	s = bytes.TrimSpace(bytes.TrimSuffix(s, []byte(";")))

	open := bytes.IndexByte(s, '(')
	if open <= 0 || s[len(s)-1] != ')' {
		return "", nil, fmt.Errorf("reply is not a callback invocation: %q", truncate(s, 80))
	}
	name := string(bytes.TrimSpace(s[:open]))
	if !validCallbackName(name) {
		return "", nil, fmt.Errorf("invalid callback name %q", name)
	}
	arg := bytes.TrimSpace(s[open+1 : len(s)-1])
	if !json.Valid(arg) {
		return "", nil, fmt.Errorf("callback %s argument is not JSON", name)
	}
	return name, json.RawMessage(arg), nil
}

func validCallbackName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
