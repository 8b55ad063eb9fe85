// Package webhook delivers signed change notifications to the configured
// receiver and mirrors them onto the event stream.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/safee-analytics/odoo/internal/domain/webhook"
	"github.com/safee-analytics/odoo/internal/infrastructure/config"
	"github.com/safee-analytics/odoo/internal/infrastructure/messaging"
	"github.com/safee-analytics/odoo/internal/infrastructure/telemetry"
)

// Defaults applied when the configuration leaves a field empty
const (
	DefaultTimeout   = 10 * time.Second
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// ErrQueueFull is returned by Enqueue when the event was dropped
var ErrQueueFull = errors.New("webhook queue is full")

// ErrStopped is returned by Enqueue after Stop
var ErrStopped = errors.New("webhook dispatcher stopped")

// Metrics is the slice of telemetry the dispatcher reports to
type Metrics interface {
	WebhookDelivered(channel string, success bool)
	WebhookDropped()
	SetWebhookQueueDepth(n int)
}

type noopMetrics struct{}

func (noopMetrics) WebhookDelivered(string, bool) {}
func (noopMetrics) WebhookDropped()               {}
func (noopMetrics) SetWebhookQueueDepth(int)      {}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithHTTPClient replaces the outbound client
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// WithDeliveryLog records every attempt in repo
func WithDeliveryLog(repo webhook.DeliveryRepository) Option {
	return func(d *Dispatcher) {
		d.deliveries = repo
	}
}

// WithPublisher mirrors each signed payload onto a Kafka topic
func WithPublisher(p messaging.Publisher) Option {
	return func(d *Dispatcher) {
		d.publisher = p
	}
}

// WithMetrics reports deliveries and queue depth
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher sends events from a bounded queue with a fixed pool of workers.
// Deliveries are fire-and-forget: a failed POST is logged, never retried.
type Dispatcher struct {
	settings   webhook.Settings
	timeout    time.Duration
	workers    int
	client     *http.Client
	limiter    *rate.Limiter
	deliveries webhook.DeliveryRepository
	publisher  messaging.Publisher
	metrics    Metrics
	logger     *zap.Logger

	queue   chan webhook.Event
	mu      sync.RWMutex
	stopped bool
	started bool
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher from the webhook section of the config.
// Call Start before enqueueing.
func NewDispatcher(cfg config.WebhookConfig, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		settings: webhook.Settings{
			Enabled:        cfg.Enabled,
			URL:            cfg.URL,
			Secret:         cfg.Secret,
			OrganizationID: cfg.OrganizationID,
		},
		timeout: cfg.Timeout,
		workers: cfg.Workers,
		metrics: noopMetrics{},
		logger:  zap.NewNop(),
	}
	if d.timeout <= 0 {
		d.timeout = DefaultTimeout
	}
	if d.workers <= 0 {
		d.workers = DefaultWorkers
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	d.queue = make(chan webhook.Event, size)
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = &http.Client{Timeout: d.timeout}
	}
	return d
}

// Settings returns the delivery settings
func (d *Dispatcher) Settings() webhook.Settings {
	return d.settings
}

// Start launches the workers
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("Webhook dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
		zap.Bool("enabled", d.settings.Enabled),
	)
}

// Enqueue schedules e for delivery. Disabled or incomplete settings skip the
// event and return nil. A full queue drops it.
func (d *Dispatcher) Enqueue(e webhook.Event) error {
	if !d.settings.Enabled {
		return nil
	}
	if !d.settings.Complete() {
		d.logger.Warn("Webhook settings incomplete, skipping event",
			zap.String("event", string(e.Type)),
			zap.String("model", e.Model),
		)
		return nil
	}
	if _, ok := e.Endpoint(); !ok {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- e:
		d.metrics.SetWebhookQueueDepth(len(d.queue))
		return nil
	default:
		d.metrics.WebhookDropped()
		d.logger.Warn("Webhook queue full, dropping event",
			zap.String("event", string(e.Type)),
			zap.String("model", e.Model),
			zap.Int("record_id", e.RecordID),
		)
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for the workers to drain it, or for ctx
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Webhook dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("Webhook dispatcher stop timed out", zap.Int("pending", len(d.queue)))
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for e := range d.queue {
		d.metrics.SetWebhookQueueDepth(len(d.queue))
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		d.Deliver(ctx, e)
		cancel()
	}
}

// Deliver signs e and sends it right away on every configured channel. The
// HTTP delivery record is returned; nil when the event has no endpoint.
func (d *Dispatcher) Deliver(ctx context.Context, e webhook.Event) *webhook.Delivery {
	endpoint, ok := e.Endpoint()
	if !ok {
		return nil
	}
	if e.OrganizationID == "" {
		e.OrganizationID = d.settings.OrganizationID
	}

	ctx, span := telemetry.StartClientSpan(ctx, "webhook.deliver",
		telemetry.AttrEvent, string(e.Type),
		telemetry.AttrModel, e.Model,
		telemetry.AttrDatabase, e.Database,
	)
	defer span.End()

	payload, err := e.Payload()
	if err != nil {
		telemetry.RecordError(span, err)
		d.logger.Error("Failed to serialize webhook payload", zap.Error(err))
		return nil
	}
	signature := webhook.Sign(webhook.DeriveOrgSecret(d.settings.Secret, d.settings.OrganizationID), payload)

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			telemetry.RecordError(span, err)
			d.logger.Warn("Webhook rate limit wait aborted", zap.Error(err))
			return nil
		}
	}

	delivery := d.post(ctx, e, d.settings.Target(endpoint), payload, signature)
	if delivery.Error != "" {
		telemetry.RecordError(span, errors.New(delivery.Error))
	}
	d.publish(ctx, e, payload, signature)
	return delivery
}

func (d *Dispatcher) post(ctx context.Context, e webhook.Event, target string, payload []byte, signature string) *webhook.Delivery {
	delivery := webhook.NewDelivery(webhook.ChannelHTTP, e, target)
	start := time.Now()

	status, err := d.send(ctx, target, payload, signature)
	delivery.Finish(status, time.Since(start), err)

	fields := []zap.Field{
		zap.String("event", string(e.Type)),
		zap.String("model", e.Model),
		zap.Int("record_id", e.RecordID),
		zap.String("target", target),
		zap.Int("status", status),
	}
	switch {
	case err != nil:
		d.logger.Warn("Webhook delivery failed", append(fields, zap.Error(err))...)
	case delivery.Success:
		d.logger.Info("Webhook delivered", fields...)
	default:
		d.logger.Warn("Webhook receiver returned non-200 status", fields...)
	}

	d.record(ctx, delivery)
	return delivery
}

func (d *Dispatcher) send(ctx context.Context, target string, payload []byte, signature string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.SignatureHeader, signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (d *Dispatcher) publish(ctx context.Context, e webhook.Event, payload []byte, signature string) {
	if d.publisher == nil {
		return
	}
	delivery := webhook.NewDelivery(webhook.ChannelKafka, e, d.publisher.Topic())
	start := time.Now()
	err := d.publisher.Publish(ctx, []byte(e.Key()), payload, map[string]string{
		webhook.SignatureHeader: signature,
		"event":                 string(e.Type),
	})
	delivery.Finish(0, time.Since(start), err)
	if err != nil {
		d.logger.Warn("Failed to publish webhook event",
			zap.String("topic", d.publisher.Topic()),
			zap.String("key", e.Key()),
			zap.Error(err),
		)
	}
	d.record(ctx, delivery)
}

func (d *Dispatcher) record(ctx context.Context, delivery *webhook.Delivery) {
	d.metrics.WebhookDelivered(string(delivery.Channel), delivery.Success)
	if d.deliveries == nil {
		return
	}
	if err := d.deliveries.Save(context.WithoutCancel(ctx), delivery); err != nil {
		d.logger.Warn("Failed to record webhook delivery", zap.Error(err))
	}
}

// Verify checks a receiver-side signature against the configured secret
func (d *Dispatcher) Verify(payload []byte, signature string) bool {
	if d.settings.Secret == "" || d.settings.OrganizationID == "" {
		return false
	}
	return webhook.Verify(webhook.DeriveOrgSecret(d.settings.Secret, d.settings.OrganizationID), payload, signature)
}

// Deliveries lists the delivery log
func (d *Dispatcher) Deliveries(ctx context.Context, filter webhook.DeliveryFilter) ([]*webhook.Delivery, error) {
	if d.deliveries == nil {
		return nil, nil
	}
	return d.deliveries.List(ctx, filter)
}
