// Package dbmanager runs Odoo database maintenance: closing connections and
// duplicating databases as tracked jobs.
package dbmanager

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/duplication"
	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/domain/webhook"
	"github.com/safee-analytics/odoo/internal/infrastructure/config"
	"github.com/safee-analytics/odoo/internal/infrastructure/telemetry"
)

// Defaults for an unset configuration
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
	DefaultJobTimeout  = 30 * time.Minute
)

// RestartReason is stored on jobs a previous process left unfinished
const RestartReason = "interrupted by gateway restart"

// DatabaseService is the Odoo db service the manager drives
type DatabaseService interface {
	DuplicateDatabase(ctx context.Context, masterPwd, source, target string, neutralize bool) error
}

// BackendTerminator closes PostgreSQL sessions on a database
type BackendTerminator interface {
	TerminateBackends(ctx context.Context, dbName string) (int, error)
}

// Notifier queues the completion webhook
type Notifier interface {
	Enqueue(e webhook.Event) error
}

// Metrics counts finished jobs
type Metrics interface {
	DuplicationFinished(status string)
}

// DuplicateInput is one duplication request
type DuplicateInput struct {
	MasterPassword string
	SourceDB       string
	NewDB          string
	Neutralize     bool
}

// Service owns the duplication jobs of this process
type Service struct {
	cfg      config.DBManagerConfig
	odoo     DatabaseService
	admin    BackendTerminator
	jobs     duplication.Repository
	notifier Notifier
	metrics  Metrics
	logger   *zap.Logger

	mu   sync.RWMutex
	live map[uuid.UUID]*duplication.Job
	wg   sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewService creates the manager. notifier and metrics may be nil.
func NewService(
	cfg config.DBManagerConfig,
	odoo DatabaseService,
	admin BackendTerminator,
	jobs duplication.Repository,
	notifier Notifier,
	metrics Metrics,
	logger *zap.Logger,
) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:      cfg,
		odoo:     odoo,
		admin:    admin,
		jobs:     jobs,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		live:     make(map[uuid.UUID]*duplication.Job),
		baseCtx:  baseCtx,
		cancel:   cancel,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recover fails jobs a previous process left running
func (s *Service) Recover(ctx context.Context) error {
	n, err := s.jobs.FailRunning(ctx, RestartReason)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Warn("Marked interrupted duplication jobs as failed", zap.Int64("count", n))
	}
	return nil
}

// CheckMasterPassword compares pwd with the configured master password
func (s *Service) CheckMasterPassword(pwd string) error {
	if !s.cfg.Enabled {
		return shared.NewForbiddenError("Database manager is disabled")
	}
	if s.cfg.MasterPassword == "" || subtle.ConstantTimeCompare([]byte(pwd), []byte(s.cfg.MasterPassword)) != 1 {
		return shared.NewUnauthorizedError("Unauthorized")
	}
	return nil
}

// CloseConnections terminates every session on dbName
func (s *Service) CloseConnections(ctx context.Context, masterPwd, dbName string) (int, error) {
	if err := s.CheckMasterPassword(masterPwd); err != nil {
		return 0, err
	}
	if err := duplication.ValidateDatabaseName(dbName); err != nil {
		return 0, err
	}
	ctx, span := telemetry.StartSpan(ctx, "dbmanager.close_connections", telemetry.AttrDatabase, dbName)
	defer span.End()

	n, err := s.admin.TerminateBackends(ctx, dbName)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, shared.WrapDomainError(shared.ErrUnavailable.Code, "Failed to close connections", err)
	}
	return n, nil
}

// Duplicate runs a duplication inside the caller's request and returns the
// finished job.
func (s *Service) Duplicate(ctx context.Context, input DuplicateInput) (duplication.Job, error) {
	job, err := s.prepare(ctx, input)
	if err != nil {
		return duplication.Job{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()
	s.run(ctx, job, input.MasterPassword)
	return s.snapshot(job), nil
}

// DuplicateAsync starts the job on its own goroutine and returns it pending
func (s *Service) DuplicateAsync(ctx context.Context, input DuplicateInput) (duplication.Job, error) {
	job, err := s.prepare(ctx, input)
	if err != nil {
		return duplication.Job{}, err
	}
	snap := s.snapshot(job)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.JobTimeout)
		defer cancel()
		s.run(ctx, job, input.MasterPassword)
	}()
	return snap, nil
}

func (s *Service) prepare(ctx context.Context, input DuplicateInput) (*duplication.Job, error) {
	if err := s.CheckMasterPassword(input.MasterPassword); err != nil {
		return nil, err
	}
	job, err := duplication.NewJob(input.SourceDB, input.NewDB, input.Neutralize)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.live[job.ID] = job
	s.mu.Unlock()
	s.persist(ctx, job)
	return job, nil
}

func (s *Service) run(ctx context.Context, job *duplication.Job, masterPwd string) {
	ctx, span := telemetry.StartSpan(ctx, "dbmanager.duplicate",
		telemetry.AttrJobID, job.ID.String(),
		telemetry.AttrDatabase, job.SourceDB,
	)
	defer span.End()
	log := s.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("source_db", job.SourceDB),
		zap.String("new_db", job.NewDB),
	)

	s.mutate(job, func(j *duplication.Job) error { return j.Start() })
	s.persist(ctx, job)
	log.Info("Duplication started")

	var failure error
	for attempt := 1; ; attempt++ {
		if _, err := s.admin.TerminateBackends(ctx, job.SourceDB); err != nil {
			log.Warn("Failed to terminate backends before duplication", zap.Error(err))
		}
		s.mutate(job, func(j *duplication.Job) error { j.RecordAttempt(); return nil })

		err := s.odoo.DuplicateDatabase(ctx, masterPwd, job.SourceDB, job.NewDB, job.Neutralize)
		if err == nil {
			failure = nil
			break
		}
		failure = err
		if !duplication.IsBusyError(err) || attempt >= s.cfg.MaxAttempts {
			break
		}
		log.Warn("Source database busy, retrying duplication",
			zap.Int("attempt", attempt),
			zap.Duration("retry_delay", s.cfg.RetryDelay),
		)
		s.persist(ctx, job)
		if err := s.sleep(ctx, s.cfg.RetryDelay); err != nil {
			failure = errors.Join(failure, err)
			break
		}
	}

	if failure != nil {
		telemetry.RecordError(span, failure)
		s.mutate(job, func(j *duplication.Job) error { return j.Fail(failure) })
		log.Error("Duplication failed", zap.Error(failure))
	} else {
		s.mutate(job, func(j *duplication.Job) error { return j.Succeed() })
		log.Info("Duplication succeeded")
	}

	snap := s.snapshot(job)
	// Finished jobs are served from the repository once stored. A job that
	// could not be stored stays live so it can still be polled.
	if err := s.persist(context.WithoutCancel(ctx), job); err == nil {
		s.forget(job.ID)
	}
	if s.metrics != nil {
		s.metrics.DuplicationFinished(string(snap.Status))
	}
	s.notify(snap, log)
}

func (s *Service) notify(job duplication.Job, log *zap.Logger) {
	if s.notifier == nil {
		return
	}
	e := webhook.NewSystemEvent(webhook.EventDatabaseDuplicated, job.NewDB, map[string]any{
		"job_id":    job.ID.String(),
		"source_db": job.SourceDB,
		"new_db":    job.NewDB,
		"status":    string(job.Status),
		"error":     job.Error,
	})
	if err := s.notifier.Enqueue(e); err != nil {
		log.Warn("Failed to queue duplication webhook", zap.Error(err))
	}
}

func (s *Service) mutate(job *duplication.Job, fn func(*duplication.Job) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(job); err != nil {
		s.logger.Warn("Invalid job transition", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}

func (s *Service) snapshot(job *duplication.Job) duplication.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return job.Snapshot()
}

func (s *Service) persist(ctx context.Context, job *duplication.Job) error {
	snap := s.snapshot(job)
	if err := s.jobs.Save(ctx, &snap); err != nil {
		s.logger.Warn("Failed to persist duplication job", zap.String("job_id", job.ID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) forget(id uuid.UUID) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

// Job returns the status of a job, live state first
func (s *Service) Job(ctx context.Context, id uuid.UUID) (duplication.Job, error) {
	s.mu.RLock()
	job, ok := s.live[id]
	if ok {
		snap := job.Snapshot()
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	stored, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return duplication.Job{}, shared.NewNotFoundError("Job not found")
		}
		return duplication.Job{}, err
	}
	return *stored, nil
}

// Shutdown waits for running jobs. When ctx ends first the jobs are
// cancelled and Shutdown returns ctx's error.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("Shutdown deadline reached with duplication jobs running")
		return ctx.Err()
	}
}
