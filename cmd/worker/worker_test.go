package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

func TestApply_AccountEvents(t *testing.T) {
	st := store.NewMock()

	if err := Apply(st, models.Event{Kind: models.EventAccountRegistered}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if err := Apply(st, models.Event{Kind: models.EventAccountRegistered}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if err := Apply(st, models.Event{Kind: models.EventAccountDeleted}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	total, _ := st.TotalCount("accounts")
	if total != 1 {
		t.Fatalf("expected 1 account counted, got %d", total)
	}
}

func TestApply_GroupEvents(t *testing.T) {
	st := store.NewMock()

	Apply(st, models.Event{Kind: models.EventGroupCreated})
	Apply(st, models.Event{Kind: models.EventGroupDeleted})

	total, _ := st.TotalCount("groups")
	if total != 0 {
		t.Fatalf("expected group count back to 0, got %d", total)
	}
}

func TestApply_PostEvents(t *testing.T) {
	st := store.NewMock()
	occurred := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	Apply(st, models.Event{Kind: models.EventPostCreated, AuthorID: "a1", Occurred: occurred})
	Apply(st, models.Event{Kind: models.EventPostCreated, AuthorID: "a1", Occurred: occurred})
	Apply(st, models.Event{Kind: models.EventPostDeleted, AuthorID: "a1", Occurred: occurred})

	days, _ := st.PostsByDayCounts()
	if days["2025-06-01"] != 1 {
		t.Fatalf("expected 1 post on 2025-06-01, got %d", days["2025-06-01"])
	}

	authors, _ := st.PostsByAuthorCounts()
	if authors["a1"] != 1 {
		t.Fatalf("expected 1 post by a1, got %d", authors["a1"])
	}
}

// A deletion event carries the post's creation time, so a post deleted on a
// later day drains the bucket its creation filled instead of going negative
// on the deletion day.
func TestApply_PostDeletedAcrossDays(t *testing.T) {
	st := store.NewMock()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	Apply(st, models.Event{Kind: models.EventPostCreated, AuthorID: "a1", Occurred: created})
	Apply(st, models.Event{Kind: models.EventPostDeleted, AuthorID: "a1", Occurred: created})

	days, _ := st.PostsByDayCounts()
	if days["2025-06-01"] != 0 {
		t.Fatalf("expected creation-day bucket drained to 0, got %d", days["2025-06-01"])
	}
	for day, n := range days {
		if n != 0 {
			t.Fatalf("unexpected count %d for day %s", n, day)
		}
	}

	authors, _ := st.PostsByAuthorCounts()
	if authors["a1"] != 0 {
		t.Fatalf("expected author count back to 0, got %d", authors["a1"])
	}
}

// Unknown kinds are skipped, never an error. Old consumers must survive
// new producer versions.
func TestApply_UnknownKind(t *testing.T) {
	st := store.NewMock()

	if err := Apply(st, models.Event{Kind: "something_new"}); err != nil {
		t.Fatalf("unknown kind should be a no-op, got %v", err)
	}
}

func TestApply_StoreFailure(t *testing.T) {
	st := store.NewMock()
	st.ShouldFail = true

	if err := Apply(st, models.Event{Kind: models.EventAccountRegistered}); err == nil {
		t.Fatal("expected error from failing store")
	}
}

// end-to-end: queued Kafka messages drive the counters
func TestWorker_ProcessesQueuedEvents(t *testing.T) {
	st := store.NewMock()

	var messages []kafka.Message
	for _, ev := range []models.Event{
		{Kind: models.EventAccountRegistered, AccountID: "a1"},
		{Kind: models.EventAccountRegistered, AccountID: "a2"},
		{Kind: models.EventPostCreated, AuthorID: "a1", Occurred: time.Now()},
	} {
		data, _ := json.Marshal(ev)
		messages = append(messages, kafka.Message{Key: []byte(ev.Kind), Value: data})
	}
	// Invalid JSON is logged and skipped, not fatal.
	messages = append(messages, kafka.Message{Value: []byte("{not json")})

	reader := &MockKafkaReader{Messages: messages}
	w := New(st, reader, 2, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	total, _ := st.TotalCount("accounts")
	if total != 2 {
		t.Fatalf("expected 2 accounts counted, got %d", total)
	}
	authors, _ := st.PostsByAuthorCounts()
	if authors["a1"] != 1 {
		t.Fatalf("expected 1 post by a1, got %d", authors["a1"])
	}
}

// read errors back off instead of crashing the loop
func TestWorker_ReadErrorBackoff(t *testing.T) {
	st := store.NewMock()
	reader := &MockKafkaReader{ShouldFail: true}
	w := New(st, reader, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("worker did not stop after context cancellation")
	}
}
