package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"outreach-service/internal/constants"
	"outreach-service/internal/contextkeys"
	"outreach-service/internal/contracts"
	"outreach-service/internal/core/domain"
	"outreach-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	mu   sync.Mutex
	keys []string
	msgs []amqp.Publishing
	err  error
}

func (p *capturingPublisher) Publish(_ context.Context, key string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.msgs = append(p.msgs, msg)
	return nil
}

type fakeRun struct {
	criteria []domain.SearchCriteria
	err      error
}

func (f *fakeRun) Execute(_ context.Context, c domain.SearchCriteria) (*domain.IngestionReport, error) {
	f.criteria = append(f.criteria, c)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.IngestionReport{RunID: uuid.New(), StartedAt: time.Now()}, nil
}

type fakeMatch struct{ calls int }

func (f *fakeMatch) Execute(context.Context, time.Time) (*domain.TaskRunReport, error) {
	f.calls++
	return &domain.TaskRunReport{}, nil
}

func newTestAdapter(run *fakeRun, match *fakeMatch) *IngestionRequestConsumerAdapter {
	a := &IngestionRequestConsumerAdapter{useCase: run, logger: contextkeys.NoopLogger()}
	if match != nil {
		a.matcher = match
	}
	return a
}

func TestIngestionRequest_ValidMessageRunsIngestion(t *testing.T) {
	run, match := &fakeRun{}, &fakeMatch{}
	a := newTestAdapter(run, match)

	body := []byte(`{"match_after":true,"criteria":{"city":"Milano","max_price":400000}}`)
	err := a.handleDelivery(context.Background(), amqp.Delivery{Body: body})
	require.NoError(t, err)

	require.Len(t, run.criteria, 1)
	assert.Equal(t, "Milano", run.criteria[0].City)
	require.NotNil(t, run.criteria[0].MaxPrice)
	assert.Equal(t, int64(400000), *run.criteria[0].MaxPrice)
	assert.Equal(t, 1, match.calls)
}

func TestIngestionRequest_InvalidMessageIsPermanent(t *testing.T) {
	run := &fakeRun{}
	a := newTestAdapter(run, nil)

	err := a.handleDelivery(context.Background(), amqp.Delivery{Body: []byte(`{"criteria":{}}`)})
	assert.ErrorIs(t, err, rabbitmq_consumer.ErrPermanent)
	assert.Empty(t, run.criteria)
}

func TestIngestionRequest_AlreadyRunningIsAcked(t *testing.T) {
	a := newTestAdapter(&fakeRun{err: domain.ErrAlreadyRunning}, nil)
	err := a.handleDelivery(context.Background(), amqp.Delivery{Body: []byte(`{"criteria":{"city":"Roma"}}`)})
	assert.NoError(t, err)
}

func TestIngestionRequest_RunFailureIsRetried(t *testing.T) {
	a := newTestAdapter(&fakeRun{err: errors.New("store down")}, nil)
	err := a.handleDelivery(context.Background(), amqp.Delivery{Body: []byte(`{"criteria":{"city":"Roma"}}`)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, rabbitmq_consumer.ErrPermanent)
}

func TestTaskEventPublisher_PublishesValidEvent(t *testing.T) {
	pub := &capturingPublisher{}
	a, err := NewTaskEventPublisherAdapter(pub)
	require.NoError(t, err)

	task := domain.NewTask(domain.TaskCallAgency, uuid.New(), uuid.New(), time.Now())
	task.Title = "Call agency"
	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-1")
	a.Notify(ctx, domain.TaskEvent{Type: domain.TaskEventCreated, Task: task})

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, constants.RoutingKeyTaskCreated, pub.keys[0])
	assert.Equal(t, "trace-1", pub.msgs[0].Headers["x-trace-id"])
	assert.NoError(t, contracts.ValidateEvent(constants.EventTaskCreated, constants.EventVersionV1, pub.msgs[0].Body))

	a.Notify(ctx, domain.TaskEvent{Type: "OTHER", Task: task})
	assert.Len(t, pub.msgs, 1)
}

func TestIngestionReportPublisher(t *testing.T) {
	pub := &capturingPublisher{}
	a, err := NewIngestionReportPublisherAdapter(pub)
	require.NoError(t, err)

	alpha := domain.NewAdapterReport("alpha", 20)
	alpha.Fetched, alpha.Imported = 3, 2
	alpha.AddError("alpha/3: invalid listing")
	beta := domain.NewAdapterReport("beta", 20)
	beta.MarkSourceFailed("503 service unavailable")
	report := &domain.IngestionReport{RunID: uuid.New(), StartedAt: time.Now(), FinishedAt: time.Now(), Adapters: []*domain.AdapterReport{alpha, beta}}

	require.NoError(t, a.PublishReport(context.Background(), report))
	require.Len(t, pub.msgs, 1)
	assert.NoError(t, contracts.ValidateEvent(constants.EventIngestionReport, constants.EventVersionV1, pub.msgs[0].Body))

	var dto IngestionReportDTO
	require.NoError(t, json.Unmarshal(pub.msgs[0].Body, &dto))
	assert.Equal(t, 3, dto.Totals.Fetched)
	assert.Equal(t, 1, dto.Totals.SourceFailures)
	assert.Zero(t, dto.Adapters[0].SourceFailures)
	assert.Equal(t, 1, dto.Adapters[1].SourceFailures)

	pub.err = errors.New("channel closed")
	assert.Error(t, a.PublishReport(context.Background(), report))
}

func TestLoggerBridgeFields(t *testing.T) {
	fields := toFields("queue", "q1", 42, "skipped", "dangling")
	assert.Equal(t, "q1", fields["queue"])
	assert.Len(t, fields, 1)
}
