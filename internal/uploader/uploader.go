// Package uploader delivers encrypted payloads to the receiving server.
package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	v1 "github.com/lia-lab/lia-sync/internal/api/v1"
	"github.com/lia-lab/lia-sync/internal/core/storage"
	"github.com/lia-lab/lia-sync/internal/payload"
)

const (
	DefaultPath     = "/data/receive"
	requestIDHeader = "X-Request-ID"
)

// ErrTransport wraps local delivery failures such as a refused connection.
// An HTTP error status from the server is not a transport failure.
var ErrTransport = errors.New("upload transport failure")

// Config holds uploader settings.
type Config struct {
	BaseURL string
	Path    string

	// Timeout bounds one request. Zero leaves it to the transport.
	Timeout time.Duration
}

// Result describes a completed dispatch.
type Result struct {
	RequestID  string
	StatusCode int
	Duration   time.Duration
}

// OK reports whether the server answered 2xx.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Dispatch is an in-flight upload. Callers that need the outcome call Wait;
// callers that don't may drop it.
type Dispatch struct {
	RequestID string

	done chan struct{}
	res  Result
	err  error
}

// Wait blocks until the upload completes or ctx ends. The returned error is
// non-nil only for transport failures or ctx expiry.
func (d *Dispatch) Wait(ctx context.Context) (Result, error) {
	select {
	case <-d.done:
		return d.res, d.err
	case <-ctx.Done():
		return Result{RequestID: d.RequestID}, ctx.Err()
	}
}

// Completed returns a Dispatch that has already finished with res and err.
// Senders that deliver synchronously, and test doubles, return one.
func Completed(res Result, err error) *Dispatch {
	d := &Dispatch{RequestID: res.RequestID, done: make(chan struct{}), res: res, err: err}
	close(d.done)
	return d
}

// Client posts payloads with the bearer token stored in the auth namespace.
type Client struct {
	http *resty.Client
	path string
	kv   storage.KVStore

	inflight sync.WaitGroup
}

// New creates a Client. kv supplies the bearer token.
func New(cfg Config, kv storage.KVStore) *Client {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	return &Client{http: rc, path: path, kv: kv}
}

// Send serializes p and starts the POST in the background.
//
// Serialization and token lookup happen before Send returns, so their
// failures are reported here and nothing is sent. The request itself outlives
// ctx cancellation; use Dispatch.Wait to observe it.
func (c *Client) Send(ctx context.Context, p v1.HealthPayloadEncrypted) (*Dispatch, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payload.ErrSerialization, err)
	}

	token, _, err := storage.GetOptional(ctx, c.kv, storage.NamespaceAuth, storage.KeyJWTToken)
	if err != nil {
		return nil, fmt.Errorf("read auth token: %w", err)
	}

	d := &Dispatch{RequestID: uuid.NewString(), done: make(chan struct{})}

	req := c.http.R().
		SetContext(context.WithoutCancel(ctx)).
		SetHeader(requestIDHeader, d.RequestID).
		SetBody(body)
	if token != "" {
		req.SetAuthToken(token)
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer close(d.done)
		d.res, d.err = c.do(req, d.RequestID, len(body))
	}()

	return d, nil
}

func (c *Client) do(req *resty.Request, requestID string, size int) (Result, error) {
	start := time.Now()
	resp, err := req.Post(c.path)
	res := Result{RequestID: requestID, Duration: time.Since(start)}

	if err != nil {
		slog.Error("[Uploader] Upload failed", "request_id", requestID, "error", err)
		return res, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	res.StatusCode = resp.StatusCode()
	if !res.OK() {
		slog.Warn("[Uploader] Server rejected upload",
			"request_id", requestID,
			"status", res.StatusCode,
			"body", truncate(resp.String(), 256),
		)
		return res, nil
	}

	slog.Info("[Uploader] Upload delivered",
		"request_id", requestID,
		"status", res.StatusCode,
		"bytes", size,
		"duration", res.Duration,
	)
	return res, nil
}

// Drain waits for background uploads to finish or ctx to end.
func (c *Client) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
