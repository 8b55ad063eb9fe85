// Package odoo is the XML-RPC client the gateway uses to reach Odoo's
// external API (common, object and db services).
package odoo

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"
	"go.uber.org/zap"
)

// Observer receives one notification per RPC call, used for metrics
type Observer interface {
	ObserveRPC(service, model, method string, elapsed time.Duration, err error)
}

// Session binds the credentials execute_kw needs for one Odoo user.
// Secret is either the user's password or one of their API keys.
type Session struct {
	DB     string
	UID    int
	Login  string
	Secret string
}

// Valid reports whether the session carries usable credentials
func (s Session) Valid() bool {
	return s.DB != "" && s.UID > 0 && s.Secret != ""
}

// Client talks to a single Odoo server. It is safe for concurrent use: the
// database and user are carried per call, not per client.
type Client struct {
	baseURL       string
	transport     http.RoundTripper
	timeout       time.Duration
	skipTLSVerify bool
	logger        *zap.Logger
	observer      Observer

	common *xmlrpc.Client
	object *xmlrpc.Client
	db     *xmlrpc.Client
}

// Option configures a Client
type Option func(*Client)

// WithTransport sets the HTTP transport used for all services
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithTimeout bounds the time to wait for an Odoo response
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithSkipTLSVerify disables certificate checks. Development only.
func WithSkipTLSVerify(skip bool) Option {
	return func(c *Client) {
		c.skipTLSVerify = skip
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver registers a call observer
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a client for the Odoo server at rawURL
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Odoo URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid Odoo URL scheme %q, must be http or https", parsed.Scheme)
	}

	c := &Client{
		baseURL: strings.TrimRight(rawURL, "/"),
		timeout: 60 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = c.timeout
		if c.skipTLSVerify {
			c.logger.Warn("TLS certificate verification disabled for Odoo connections")
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for development
		}
		c.transport = tr
	}

	if c.common, err = xmlrpc.NewClient(c.baseURL+"/xmlrpc/2/common", c.transport); err != nil {
		return nil, fmt.Errorf("failed to create common client: %w", err)
	}
	if c.object, err = xmlrpc.NewClient(c.baseURL+"/xmlrpc/2/object", c.transport); err != nil {
		return nil, fmt.Errorf("failed to create object client: %w", err)
	}
	if c.db, err = xmlrpc.NewClient(c.baseURL+"/xmlrpc/2/db", c.transport); err != nil {
		return nil, fmt.Errorf("failed to create db client: %w", err)
	}
	return c, nil
}

// URL returns the Odoo base URL
func (c *Client) URL() string {
	return c.baseURL
}

// Close releases the underlying RPC clients
func (c *Client) Close() error {
	return errors.Join(c.common.Close(), c.object.Close(), c.db.Close())
}

// Authenticate checks credentials against a database and returns the user id
func (c *Client) Authenticate(ctx context.Context, db, login, password string) (int, error) {
	reply, err := c.call(ctx, c.common, "common", "authenticate",
		[]any{db, login, password, map[string]any{}}, "", "")
	if err != nil {
		c.logger.Warn("Odoo authentication call failed",
			zap.String("db", db),
			zap.String("login", login),
			zap.Error(err),
		)
		return 0, err
	}
	// Odoo answers false instead of faulting on bad credentials
	uid := AsInt(reply)
	if uid <= 0 {
		return 0, ErrAuthenticationFailed
	}
	return uid, nil
}

// ServerVersion returns the server_version payload of the common service
func (c *Client) ServerVersion(ctx context.Context) (map[string]any, error) {
	reply, err := c.call(ctx, c.common, "common", "version", []any{}, "", "")
	if err != nil {
		return nil, err
	}
	m, ok := reply.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: version returned %T", ErrInvalidResponse, reply)
	}
	return m, nil
}

// Execute runs execute_kw for the session's user
func (c *Client) Execute(ctx context.Context, sess Session, model, method string, args []any, kwargs map[string]any) (any, error) {
	if !sess.Valid() {
		return nil, ErrAuthenticationFailed
	}
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	params := []any{sess.DB, sess.UID, sess.Secret, model, method, args, kwargs}
	return c.call(ctx, c.object, "object", "execute_kw", params, model, method)
}

// ListDatabases returns the databases visible to the db service
func (c *Client) ListDatabases(ctx context.Context) ([]string, error) {
	reply, err := c.call(ctx, c.db, "db", "list", []any{}, "", "list")
	if err != nil {
		return nil, err
	}
	list, _ := reply.([]any)
	out := make([]string, 0, len(list))
	for _, name := range list {
		out = append(out, AsString(name))
	}
	return out, nil
}

// DuplicateDatabase asks Odoo to copy source into target. Odoo checks the
// master password and raises when the source still has open connections.
func (c *Client) DuplicateDatabase(ctx context.Context, masterPwd, source, target string, neutralize bool) error {
	_, err := c.call(ctx, c.db, "db", "duplicate_database",
		[]any{masterPwd, source, target, neutralize}, "", "duplicate_database")
	return err
}

// DatabaseExists reports whether name is a known database
func (c *Client) DatabaseExists(ctx context.Context, name string) (bool, error) {
	reply, err := c.call(ctx, c.db, "db", "db_exist", []any{name}, "", "db_exist")
	if err != nil {
		return false, err
	}
	b, _ := reply.(bool)
	return b, nil
}

// call performs a blocking RPC on a goroutine so ctx cancellation is honoured
func (c *Client) call(ctx context.Context, rpc *xmlrpc.Client, service, method string, params []any, model, label string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		reply any
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		var reply any
		err := rpc.Call(method, params, &reply)
		done <- result{reply: reply, err: err}
	}()

	if label == "" {
		label = method
	}

	select {
	case <-ctx.Done():
		c.observe(service, model, label, time.Since(start), ctx.Err())
		return nil, ctx.Err()
	case res := <-done:
		err := parseFault(model, label, res.err)
		c.observe(service, model, label, time.Since(start), err)
		if err != nil {
			c.logger.Debug("Odoo RPC failed",
				zap.String("service", service),
				zap.String("model", model),
				zap.String("method", label),
				zap.Error(err),
			)
			return nil, err
		}
		return res.reply, nil
	}
}

func (c *Client) observe(service, model, method string, elapsed time.Duration, err error) {
	if c.observer != nil {
		c.observer.ObserveRPC(service, model, method, elapsed, err)
	}
}
