package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	appkafka "github.com/yuvalovgit/Project-application-creation/internal/broker"
	"github.com/yuvalovgit/Project-application-creation/internal/logger"
	"github.com/yuvalovgit/Project-application-creation/internal/models"
	"github.com/yuvalovgit/Project-application-creation/internal/store"
)

var logg = logger.New()

// Worker consumes domain events from Kafka and maintains the dashboard
// counter tables in Cassandra concurrently.
type Worker struct {
	store        store.StoreInterface
	reader       appkafka.KafkaReader
	workerCount  int
	jobQueueSize int
}

// New creates a new concurrent Worker using pre-initialized dependencies.
func New(store store.StoreInterface, reader appkafka.KafkaReader, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	return &Worker{
		store:        store,
		reader:       reader,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing.
func (w *Worker) Run(ctx context.Context) {
	if w.workerCount <= 0 {
		w.workerCount = 1
	}
	if w.jobQueueSize <= 0 {
		w.jobQueueSize = 10
	}

	logg.Info("worker", "Starting "+fmt.Sprint(w.workerCount)+" workers with queue size "+fmt.Sprint(w.jobQueueSize))

	jobs := make(chan []byte, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}(i)
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully")
}

// readLoop reads Kafka messages and pushes them into a job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- []byte) {
	var retry int
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
				logg.Error("worker", "Kafka read error, backing off", err)
				if !waitWithContext(ctx, backoff) {
					return
				}
				retry++
				continue
			}
			retry = 0

			if len(msg.Value) == 0 {
				if !waitWithContext(ctx, 50*time.Millisecond) {
					return
				}
				continue
			}

			select {
			case jobs <- msg.Value:
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
				logg.Info("worker", "Queue full, waiting to enqueue Kafka message")
			}
		}
	}
}

// processLoop decodes events and applies counter updates.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-jobs:
			if !ok {
				return
			}

			var ev models.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				logg.Error("worker", "Invalid JSON in Kafka message", err)
				continue
			}

			if err := Apply(w.store, ev); err != nil {
				logg.Error("worker", "Failed to apply event "+ev.Kind, err)
			}
		}
	}
}

// Apply maps one domain event onto the counter tables.
func Apply(st store.StoreInterface, ev models.Event) error {
	switch ev.Kind {
	case models.EventAccountRegistered:
		return st.IncrTotal("accounts", 1)
	case models.EventAccountDeleted:
		return st.IncrTotal("accounts", -1)
	case models.EventGroupCreated:
		return st.IncrTotal("groups", 1)
	case models.EventGroupDeleted:
		return st.IncrTotal("groups", -1)
	case models.EventPostCreated:
		if err := st.IncrPostsByDay(ev.Occurred.Format("2006-01-02"), 1); err != nil {
			return err
		}
		return st.IncrPostsByAuthor(ev.AuthorID, 1)
	case models.EventPostDeleted:
		// Occurred carries the post's creation time, so the decrement
		// drains the bucket the creation filled.
		if err := st.IncrPostsByDay(ev.Occurred.Format("2006-01-02"), -1); err != nil {
			return err
		}
		return st.IncrPostsByAuthor(ev.AuthorID, -1)
	default:
		logg.Info("worker", "Skipping unknown event kind "+ev.Kind)
		return nil
	}
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down Kafka reader and Cassandra session.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}

	logg.Info("worker", "Closing Cassandra session")
	w.store.Close()
	return nil
}
