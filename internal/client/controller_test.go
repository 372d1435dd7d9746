package client_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/casestudio/internal/client"
	"github.com/JaimeStill/casestudio/internal/schema"
	"github.com/JaimeStill/casestudio/pkg/telemetry"
)

var logger = slog.New(slog.DiscardHandler)

// call is one Subscribe invocation driven by the test.
type call struct {
	prompt schema.Prompt
	ctx    context.Context
	events chan schema.StreamEvent
	ack    chan struct{}
	result chan error
}

// send delivers ev and waits until the controller has applied it.
func (c *call) send(t *testing.T, ev schema.StreamEvent) {
	t.Helper()
	select {
	case c.events <- ev:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not accept event")
	}
	<-c.ack
}

type fakeSubscriber struct {
	calls      chan *call
	ignoreDone bool
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{calls: make(chan *call, 8)}
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, p schema.Prompt, emit func(schema.StreamEvent) error) error {
	c := &call{
		prompt: p,
		ctx:    ctx,
		events: make(chan schema.StreamEvent),
		ack:    make(chan struct{}),
		result: make(chan error, 1),
	}
	f.calls <- c

	done := ctx.Done()
	if f.ignoreDone {
		done = nil
	}

	for {
		select {
		case ev := <-c.events:
			err := emit(ev)
			c.ack <- struct{}{}
			if err != nil {
				return err
			}
			if ev.Terminal() {
				return nil
			}
		case err := <-c.result:
			return err
		case <-done:
			return ctx.Err()
		}
	}
}

func (f *fakeSubscriber) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("no subscription opened")
		return nil
	}
}

type sinkRecorder struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (s *sinkRecorder) Track(e telemetry.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *sinkRecorder) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.events))
	for i, e := range s.events {
		names[i] = e.Name
	}
	return names
}

func (s *sinkRecorder) last() telemetry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func ptr[T any](v T) *T { return &v }

var (
	first  = schema.HeadlinePrompt{Topic: "Improve onboarding", Style: schema.StyleInsightful, VariantCount: 2}
	second = schema.HeadlinePrompt{Topic: "Reduce churn", Style: schema.StylePunchy, VariantCount: 1}
)

func headlineResult(h string, variations ...string) schema.HeadlineResponse {
	return schema.HeadlineResponse{Headline: h, Variations: variations}
}

func TestControllerStartsIdle(t *testing.T) {
	ctrl := client.NewController(newFakeSubscriber(), nil, logger)
	assert.Equal(t, client.StatusIdle, ctrl.State().Status)
}

func TestGenerateSuccess(t *testing.T) {
	sub := newFakeSubscriber()
	sink := &sinkRecorder{}
	ctrl := client.NewController(sub, sink, logger)

	ctrl.Generate(first)
	state := ctrl.State()
	assert.Equal(t, client.StatusLoading, state.Status)
	assert.Equal(t, first, state.Request)

	c := sub.next(t)
	assert.Equal(t, first, c.prompt)

	partial := schema.HeadlinePartial{Headline: ptr("Unlock")}
	c.send(t, schema.InProgress(schema.TypeHeadline, partial))

	state = ctrl.State()
	assert.Equal(t, client.StatusLoading, state.Status)
	assert.Equal(t, partial, state.Snapshot)

	result := headlineResult("Unlock faster onboarding", "A", "B")
	c.send(t, schema.Complete(result))
	ctrl.Wait()

	state = ctrl.State()
	assert.Equal(t, client.StatusSuccess, state.Status)
	assert.Nil(t, state.Snapshot)
	assert.Equal(t, result, state.Result)

	assert.Equal(t, []string{client.EventRequested, client.EventCompleted}, sink.names())
	done := sink.last()
	assert.Equal(t, "headline", done.Key)
	assert.Equal(t, 2, done.Metadata["variations"])
	assert.Positive(t, done.Metadata["size"])
}

func TestStaleEventsIgnored(t *testing.T) {
	sub := newFakeSubscriber()
	sub.ignoreDone = true
	ctrl := client.NewController(sub, nil, logger)

	ctrl.Generate(first)
	stale := sub.next(t)

	ctrl.Generate(second)
	current := sub.next(t)

	assert.Error(t, stale.ctx.Err(), "superseded subscription should be cancelled")

	stale.send(t, schema.InProgress(schema.TypeHeadline, schema.HeadlinePartial{Headline: ptr("old")}))
	stale.send(t, schema.Complete(headlineResult("Old headline", "old")))

	state := ctrl.State()
	assert.Equal(t, client.StatusLoading, state.Status)
	assert.Equal(t, second, state.Request)
	assert.Nil(t, state.Snapshot)

	current.send(t, schema.InProgress(schema.TypeHeadline, schema.HeadlinePartial{Headline: ptr("new")}))
	assert.Equal(t, ptr("new"), ctrl.State().Snapshot.(schema.HeadlinePartial).Headline)

	result := headlineResult("Cut churn now", "Keep customers")
	current.send(t, schema.Complete(result))
	ctrl.Wait()

	state = ctrl.State()
	assert.Equal(t, client.StatusSuccess, state.Status)
	assert.Equal(t, result, state.Result)
}

func TestEventsWithForeignTagIgnored(t *testing.T) {
	sub := newFakeSubscriber()
	ctrl := client.NewController(sub, nil, logger)

	ctrl.Generate(first)
	c := sub.next(t)

	c.send(t, schema.InProgress(schema.TypeSummary, schema.SummaryPartial{Summary: ptr("x")}))
	assert.Nil(t, ctrl.State().Snapshot)

	c.result <- nil
	ctrl.Wait()
	assert.Equal(t, client.StatusError, ctrl.State().Status)
}

func TestErrorEvent(t *testing.T) {
	sub := newFakeSubscriber()
	sink := &sinkRecorder{}
	ctrl := client.NewController(sub, sink, logger)

	ctrl.Generate(first)
	c := sub.next(t)
	c.send(t, schema.InProgress(schema.TypeHeadline, schema.HeadlinePartial{Headline: ptr("Draft")}))
	c.send(t, schema.Failure(schema.TypeHeadline, "Generation failed. Please try again.", schema.ReasonFailed))
	ctrl.Wait()

	state := ctrl.State()
	assert.Equal(t, client.StatusError, state.Status)
	assert.Equal(t, "Generation failed. Please try again.", state.Error)
	assert.Equal(t, schema.ReasonFailed, state.Reason)
	assert.Equal(t, first, state.Request)

	failed := sink.last()
	assert.Equal(t, client.EventFailed, failed.Name)
	assert.Equal(t, "failed", failed.Metadata["reason"])
}

func TestSubscriptionFailure(t *testing.T) {
	sub := newFakeSubscriber()
	ctrl := client.NewController(sub, nil, logger)

	ctrl.Generate(first)
	c := sub.next(t)
	c.result <- &client.APIError{StatusCode: 401, Message: "authentication required"}
	ctrl.Wait()

	state := ctrl.State()
	assert.Equal(t, client.StatusError, state.Status)
	assert.Equal(t, "authentication required", state.Error)
	assert.Equal(t, schema.ReasonFailed, state.Reason)
}

func TestRetry(t *testing.T) {
	sub := newFakeSubscriber()
	ctrl := client.NewController(sub, nil, logger)

	ctrl.Retry()
	assert.Equal(t, client.StatusIdle, ctrl.State().Status)
	assert.Empty(t, sub.calls)

	ctrl.Generate(first)
	c := sub.next(t)
	c.send(t, schema.Failure(schema.TypeHeadline, "boom", schema.ReasonFailed))
	ctrl.Wait()

	ctrl.Retry()
	retry := sub.next(t)
	assert.Equal(t, first, retry.prompt)

	state := ctrl.State()
	assert.Equal(t, client.StatusLoading, state.Status)
	assert.Empty(t, state.Error)

	retry.send(t, schema.Complete(headlineResult("Works now", "yes")))
	ctrl.Wait()
	assert.Equal(t, client.StatusSuccess, ctrl.State().Status)
}

func TestReset(t *testing.T) {
	sub := newFakeSubscriber()
	ctrl := client.NewController(sub, nil, logger)

	ctrl.Generate(first)
	c := sub.next(t)
	c.send(t, schema.InProgress(schema.TypeHeadline, schema.HeadlinePartial{Headline: ptr("Draft")}))

	ctrl.Reset()
	ctrl.Wait()

	assert.Error(t, c.ctx.Err())
	assert.Equal(t, client.State{Status: client.StatusIdle}, ctrl.State())

	ctrl.Retry()
	assert.Empty(t, sub.calls, "reset clears the last request")
}

func TestOnChange(t *testing.T) {
	sub := newFakeSubscriber()
	ctrl := client.NewController(sub, nil, logger)

	var (
		mu       sync.Mutex
		statuses []client.Status
	)
	ctrl.OnChange(func(s client.State) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, s.Status)
	})

	ctrl.Generate(first)
	c := sub.next(t)
	c.send(t, schema.InProgress(schema.TypeHeadline, nil))
	c.send(t, schema.Complete(headlineResult("Done", "x")))
	ctrl.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []client.Status{client.StatusLoading, client.StatusLoading, client.StatusSuccess}, statuses)
}

func TestListenersObserveStatesInOrder(t *testing.T) {
	sub := newFakeSubscriber()
	ctrl := client.NewController(sub, nil, logger)

	var restarted sync.Once
	ctrl.OnChange(func(s client.State) {
		if s.Status == client.StatusSuccess && s.Request == schema.Prompt(first) {
			restarted.Do(func() { ctrl.Generate(second) })
		}
	})

	var (
		mu   sync.Mutex
		seen []client.State
	)
	ctrl.OnChange(func(s client.State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	ctrl.Generate(first)
	sub.next(t).send(t, schema.Complete(headlineResult("First", "x")))
	c := sub.next(t)

	mu.Lock()
	require.Len(t, seen, 3)
	assert.Equal(t, client.StatusLoading, seen[0].Status)
	assert.Equal(t, schema.Prompt(first), seen[0].Request)
	assert.Equal(t, client.StatusSuccess, seen[1].Status)
	assert.Equal(t, schema.Prompt(first), seen[1].Request)
	assert.Equal(t, client.StatusLoading, seen[2].Status)
	assert.Equal(t, schema.Prompt(second), seen[2].Request)
	assert.Equal(t, ctrl.State().Status, seen[2].Status)
	mu.Unlock()

	c.send(t, schema.Complete(headlineResult("Second", "y")))
	ctrl.Wait()

	mu.Lock()
	defer mu.Unlock()
	last := seen[len(seen)-1]
	assert.Equal(t, client.StatusSuccess, last.Status)
	assert.Equal(t, schema.Prompt(second), last.Request)
	assert.Equal(t, ctrl.State(), last)
}

func TestPanickingListenerIsContained(t *testing.T) {
	sub := newFakeSubscriber()
	ctrl := client.NewController(sub, nil, logger)

	var calls int
	ctrl.OnChange(func(client.State) { panic("listener bug") })
	ctrl.OnChange(func(client.State) { calls++ })

	require.NotPanics(t, func() { ctrl.Generate(first) })
	sub.next(t).send(t, schema.Complete(headlineResult("Done", "x")))
	ctrl.Wait()

	assert.Equal(t, 2, calls)
	require.NotPanics(t, ctrl.Reset)
	assert.Equal(t, 3, calls)
}

func TestPanickingSinkDoesNotBlock(t *testing.T) {
	sub := newFakeSubscriber()
	sink := telemetry.Func(func(telemetry.Event) { panic("collector down") })
	ctrl := client.NewController(sub, sink, logger)

	require.NotPanics(t, func() { ctrl.Generate(first) })
	c := sub.next(t)
	c.send(t, schema.Complete(headlineResult("Still works", "x")))
	ctrl.Wait()

	assert.Equal(t, client.StatusSuccess, ctrl.State().Status)
}
