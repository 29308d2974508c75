package main

import (
	"context"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tefamart/tefamart-backend/pkg/config"
	"github.com/tefamart/tefamart-backend/pkg/db/models"
	"github.com/tefamart/tefamart-backend/pkg/enums"
	"github.com/tefamart/tefamart-backend/pkg/logger"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakePubSub struct {
	err error
}

func (f *fakePubSub) Ping(context.Context) error            { return f.err }
func (f *fakePubSub) EventsPublisher() *gcppubsub.Publisher { return nil }

type fakeOutboxRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
	gotLimit  int
	gotMax    int
}

func (f *fakeOutboxRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	f.gotLimit = limit
	f.gotMax = maxAttempts
	return f.events, f.fetchErr
}

func (f *fakeOutboxRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeResult struct {
	err error
}

func (f fakeResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "msg-id", nil
}

type fakePublisher struct {
	results  map[uuid.UUID]error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	id, _ := uuid.Parse(msg.Attributes["aggregate_id"])
	return fakeResult{err: f.results[id]}
}

func newTestService(t *testing.T, repo *fakeOutboxRepo, pub *fakePublisher) *Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         &fakePinger{},
		PubSub:     &fakePubSub{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func outboxEvent(aggregateID uuid.UUID) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.OutboxEventBidAccepted,
		AggregateType: enums.OutboxAggregateAuction,
		AggregateID:   aggregateID,
		Payload:       []byte(`{"amount":"150000"}`),
		CreatedAt:     time.Now().UTC(),
	}
}

func TestProcessBatchPublishesInOrder(t *testing.T) {
	first := outboxEvent(uuid.New())
	second := outboxEvent(uuid.New())
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{results: map[uuid.UUID]error{}}

	svc := newTestService(t, repo, pub)
	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !processed {
		t.Fatal("expected work to be reported")
	}

	if len(pub.messages) != 2 {
		t.Fatalf("published %d messages", len(pub.messages))
	}
	if pub.messages[0].Attributes["aggregate_id"] != first.AggregateID.String() {
		t.Fatal("events must publish in fetch order")
	}
	if pub.messages[0].Attributes["event_type"] != string(enums.OutboxEventBidAccepted) {
		t.Fatalf("attributes = %v", pub.messages[0].Attributes)
	}
	if len(repo.published) != 2 || len(repo.failed) != 0 {
		t.Fatalf("published=%d failed=%d", len(repo.published), len(repo.failed))
	}
}

func TestProcessBatchMarksFailuresAndContinues(t *testing.T) {
	bad := outboxEvent(uuid.New())
	good := outboxEvent(uuid.New())
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{bad, good}}
	pub := &fakePublisher{results: map[uuid.UUID]error{
		bad.AggregateID: errors.New("topic unavailable"),
	}}

	svc := newTestService(t, repo, pub)
	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !processed {
		t.Fatal("expected work to be reported")
	}

	if len(repo.failed) != 1 || repo.failed[0] != bad.ID {
		t.Fatalf("failed = %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != good.ID {
		t.Fatalf("one failure must not block the rest: %v", repo.published)
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	repo := &fakeOutboxRepo{}
	svc := newTestService(t, repo, &fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed {
		t.Fatal("an empty queue reports no work so the loop sleeps")
	}
	if repo.gotLimit != defaultBatchSize || repo.gotMax != defaultMaxAttempts {
		t.Fatalf("fetch called with limit=%d max=%d", repo.gotLimit, repo.gotMax)
	}
}

func TestRunFailsWhenDependenciesUnreachable(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         &fakePinger{err: errors.New("connection refused")},
		PubSub:     &fakePubSub{},
		Repository: &fakeOutboxRepo{},
		Publisher:  &fakePublisher{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected readiness failure")
	}
}

func TestNextBackoffDoublesToCeiling(t *testing.T) {
	floor := 500 * time.Millisecond
	backoff := floor
	for i := 0; i < 10; i++ {
		backoff = nextBackoff(backoff, floor, maxBackoff)
	}
	if backoff != maxBackoff {
		t.Fatalf("backoff = %s, want ceiling %s", backoff, maxBackoff)
	}
	if next := nextBackoff(0, floor, maxBackoff); next != floor {
		t.Fatalf("backoff below floor = %s", next)
	}
}
