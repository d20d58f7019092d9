package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/enums"
	"github.com/angelmondragon/moviestore/pkg/logger"
	"github.com/angelmondragon/moviestore/pkg/outbox"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			newEvent(t, enums.EventOrderPlaced, enums.AggregateOrder),
			newEvent(t, enums.EventPetitionCreated, enums.AggregatePetition),
		},
	}
	pub := &fakePublisher{
		errs: []error{errors.New("transient"), nil},
	}
	observer := &fakeObserver{}
	service := newTestService(t, repo, pub, observer)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows: %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows: %v", repo.published)
	}
	if observer.failures != 1 || observer.successes != 1 {
		t.Fatalf("unexpected metrics: %+v", observer)
	}
}

func TestServiceProcessBatchAttributesMessage(t *testing.T) {
	event := newEvent(t, enums.EventReviewReported, enums.AggregateReview)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}
	attrs := pub.messages[0].Attributes
	if attrs["event_type"] != "review_reported" || attrs["aggregate_type"] != "review" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("aggregate id not forwarded")
	}
	if string(pub.messages[0].Data) != string(event.Payload) {
		t.Fatalf("payload should be forwarded verbatim")
	}
	if pub.messages[0].OrderingKey != "review/"+event.AggregateID.String() {
		t.Fatalf("unexpected ordering key %q", pub.messages[0].OrderingKey)
	}
}

func TestServiceProcessBatchMarksMalformedEnvelopeTerminal(t *testing.T) {
	event := newEvent(t, enums.EventOrderPlaced, enums.AggregateOrder)
	event.Payload = json.RawMessage(`{"version":1}`)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected terminal mark, got %v", repo.terminal)
	}
	if repo.terminalAttempts != defaultMaxAttempts {
		t.Fatalf("terminal attempts should use the configured max, got %d", repo.terminalAttempts)
	}
	if len(pub.messages) != 0 {
		t.Fatalf("malformed events must not be published")
	}
}

func TestServiceProcessBatchEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, nil)
	processed, err := service.processBatch(context.Background())
	if err != nil || processed {
		t.Fatalf("expected idle batch, got processed=%v err=%v", processed, err)
	}
}

func TestServiceProcessBatchFetchError(t *testing.T) {
	service := newTestService(t, &fakeRepo{fetchErr: errors.New("db down")}, &fakePublisher{}, nil)
	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected fetch error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := service.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRunFailsWhenDependencyDown(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, nil)
	service.pubsub = fakePinger{err: errors.New("no topic")}

	if err := service.Run(context.Background()); err == nil {
		t.Fatalf("expected readiness error")
	}
}

func TestPacerBacksOffAndResets(t *testing.T) {
	p := newPacer(time.Second, 5*time.Second)

	within := func(got, want time.Duration) bool {
		return got >= want && got < want+jitterWindow
	}
	if got := p.failed(); !within(got, 2*time.Second) {
		t.Fatalf("unexpected first backoff %s", got)
	}
	if got := p.failed(); !within(got, 4*time.Second) {
		t.Fatalf("unexpected second backoff %s", got)
	}
	if got := p.failed(); !within(got, 5*time.Second) {
		t.Fatalf("backoff should cap, got %s", got)
	}
	if got := p.idle(); !within(got, time.Second) {
		t.Fatalf("idle wait should drop back to the base interval, got %s", got)
	}
	if got := p.failed(); !within(got, 2*time.Second) {
		t.Fatalf("backoff should restart after an idle poll, got %s", got)
	}
}

func TestServiceRelayReportsBookkeepingFailure(t *testing.T) {
	repo := &fakeRepo{
		events:     []models.OutboxEvent{newEvent(t, enums.EventOrderPlaced, enums.AggregateOrder)},
		publishErr: errors.New("row locked"),
	}
	service := newTestService(t, repo, &fakePublisher{}, nil)

	processed, err := service.processBatch(context.Background())
	if err == nil || !processed {
		t.Fatalf("expected bookkeeping error, got processed=%v err=%v", processed, err)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, observer publishObserver) *Service {
	t.Helper()
	params := ServiceParams{
		Config:     &config.Config{Outbox: config.OutboxConfig{PollIntervalMS: 5}},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}),
		DB:         fakePinger{},
		PubSub:     fakePinger{},
		Repository: repo,
		Publisher:  pub,
	}
	if observer != nil {
		params.Metrics = observer
	}
	service, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func newEvent(tb testing.TB, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) models.OutboxEvent {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   uuid.New(),
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
}

type fakeRepo struct {
	events           []models.OutboxEvent
	fetchErr         error
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
	publishErr       error
}

func (f *fakeRepo) FetchUnpublished(context.Context, int, int) ([]models.OutboxEvent, error) {
	return f.events, f.fetchErr
}

func (f *fakeRepo) MarkPublished(_ context.Context, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(_ context.Context, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminal(_ context.Context, id uuid.UUID, _ error, maxAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = maxAttempts
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakePublisher struct {
	errs     []error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) (string, error) {
	f.messages = append(f.messages, msg)
	if len(f.errs) == 0 {
		return "server-id", nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return "server-id", err
}

type fakeObserver struct {
	successes int
	failures  int
}

func (f *fakeObserver) Observe(_ string, _ time.Duration, err error) {
	if err != nil {
		f.failures++
		return
	}
	f.successes++
}
