package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/instance"
	"github.com/angelmondragon/moviestore/pkg/logger"
	"github.com/angelmondragon/moviestore/pkg/outbox"
	"github.com/angelmondragon/moviestore/pkg/pubsub"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type pinger interface {
	Ping(context.Context) error
}

type outboxRepository interface {
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
	MarkTerminal(ctx context.Context, id uuid.UUID, cause error, maxAttempts int) error
}

// publisher is satisfied by *pubsub.EventsTopic.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) (string, error)
}

type publishObserver interface {
	Observe(eventType string, elapsed time.Duration, err error)
}

// errMalformedEnvelope marks events that can never be published.
var errMalformedEnvelope = errors.New("malformed payload envelope")

// outcome is what happened to a single outbox row during a batch.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDropped
)

func (o outcome) String() string {
	switch o {
	case outcomePublished:
		return "published"
	case outcomeRetry:
		return "retry"
	default:
		return "dropped"
	}
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         pinger
	PubSub     pinger
	Repository outboxRepository
	Publisher  publisher
	Metrics    publishObserver
}

// Service relays committed outbox rows to the Pub/Sub events topic.
type Service struct {
	logg        *logger.Logger
	db          pinger
	pubsub      pinger
	repo        outboxRepository
	publisher   publisher
	metrics     publishObserver
	workerID    string
	batchSize   int
	maxAttempts int
	pace        *pacer
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Publisher == nil:
		return nil, errors.New("events publisher is required")
	}

	cfg := params.Config.Outbox
	return &Service{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		repo:        params.Repository,
		publisher:   params.Publisher,
		metrics:     params.Metrics,
		workerID:    instance.GetID(),
		batchSize:   orDefault(cfg.BatchSize, defaultBatchSize),
		maxAttempts: orDefault(cfg.MaxAttempts, defaultMaxAttempts),
		pace:        newPacer(time.Duration(orDefault(cfg.PollIntervalMS, defaultPollMs))*time.Millisecond, maxBackoff),
	}, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next poll; batch errors back off through the pacer.
func (s *Service) Run(ctx context.Context) error {
	deps := []struct {
		name string
		dep  pinger
	}{{"database", s.db}, {"pubsub", s.pubsub}}
	for _, d := range deps {
		if err := d.dep.Ping(ctx); err != nil {
			s.logg.Error(ctx, d.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", d.name, err)
		}
	}
	ctx = s.logg.WithField(ctx, "worker_id", s.workerID)

	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		busy, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = s.pace.failed()
		case busy:
			s.pace.reset()
			continue
		default:
			wait = s.pace.idle()
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// processBatch reports whether it saw any events. A failed publish only
// affects its own row; the rest of the batch still goes out.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	events, err := s.repo.FetchUnpublished(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("fetch outbox events: %w", err)
	}
	for _, event := range events {
		if err := s.relay(ctx, event); err != nil {
			return true, err
		}
	}
	return len(events) > 0, nil
}

// relay publishes one row and records the result on it. Only bookkeeping
// failures are returned; publish failures stay on the row for the next poll.
func (s *Service) relay(ctx context.Context, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	decodeErr := json.Unmarshal(event.Payload, &envelope)

	var (
		result     outcome
		publishErr error
		markErr    error
	)
	switch {
	case decodeErr != nil || envelope.EventID == "":
		result = outcomeDropped
		cause := errMalformedEnvelope
		if decodeErr != nil {
			cause = fmt.Errorf("%w: %v", errMalformedEnvelope, decodeErr)
		}
		markErr = s.repo.MarkTerminal(ctx, event.ID, cause, s.maxAttempts)
	default:
		started := time.Now()
		_, publishErr = s.publisher.Publish(ctx, pubsub.EventMessage(event, envelope.EventID))
		if s.metrics != nil {
			s.metrics.Observe(string(event.EventType), time.Since(started), publishErr)
		}
		if publishErr != nil {
			result = outcomeRetry
			markErr = s.repo.MarkFailed(ctx, event.ID, publishErr)
		} else {
			result = outcomePublished
			markErr = s.repo.MarkPublished(ctx, event.ID)
		}
	}

	logCtx := s.logg.WithFields(ctx, eventFields(event, envelope, result, publishErr))
	switch result {
	case outcomePublished:
		s.logg.Info(logCtx, "outbox event published")
	case outcomeRetry:
		s.logg.Warn(logCtx, "outbox publish failed")
	default:
		s.logg.Warn(logCtx, "outbox event will not be retried")
	}

	if markErr != nil {
		return fmt.Errorf("mark %s %s: %w", result, event.ID, markErr)
	}
	return nil
}

func eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, result outcome, publishErr error) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"outcome":        result.String(),
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if publishErr != nil {
		fields["attempt_count"] = event.AttemptCount + 1
		fields["error"] = publishErr.Error()
	} else if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// pacer spaces polls: the base interval while idle, doubling up to a cap
// while batches keep failing. Every wait gets up to jitterWindow added so
// replicas drift apart.
type pacer struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
	rnd     *rand.Rand
}

func newPacer(base, max time.Duration) *pacer {
	return &pacer{
		base:    base,
		max:     max,
		current: base,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *pacer) reset() { p.current = p.base }

func (p *pacer) idle() time.Duration {
	p.reset()
	return p.jitter(p.base)
}

func (p *pacer) failed() time.Duration {
	p.current *= 2
	if p.current <= 0 || p.current > p.max {
		p.current = p.max
	}
	return p.jitter(p.current)
}

func (p *pacer) jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(p.rnd.Int63n(int64(jitterWindow)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
