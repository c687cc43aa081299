package worker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/riskengine/internal/adapters/mq/queue"
	"github.com/okian/riskengine/internal/adapters/mq/worker"
	"github.com/okian/riskengine/internal/domain/assess"
	"github.com/okian/riskengine/internal/domain/model"
	logging "github.com/okian/riskengine/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logging.Init(logging.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// mockAssessor returns one result per proposal description.
type mockAssessor struct {
	delay    time.Duration
	degraded map[string]bool
	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (m *mockAssessor) Run(ctx context.Context, p model.Proposal) assess.Outcome {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peak.Load()
		if n <= peak || m.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
		}
	}

	if m.degraded[p.Description] {
		err := errors.New("ranking failed")
		return assess.Outcome{
			State:  assess.StateDegraded,
			Err:    err,
			Result: model.NewResult(time.Now(), []model.RiskAssessment{model.ErrorAssessment(err.Error())}),
		}
	}
	return assess.Outcome{
		State:  assess.StateAssembled,
		Result: model.NewResult(time.Now(), []model.RiskAssessment{{RiskID: "R.AIR.001", Controls: []model.Control{}}}),
	}
}

// failingSink rejects every result.
type failingSink struct{ calls atomic.Int64 }

func (f *failingSink) Deliver(context.Context, model.JobResult) error {
	f.calls.Add(1)
	return errors.New("sink unavailable")
}

func submit(q *queue.InMemoryQueue, n int) {
	for i := range n {
		name := fmt.Sprintf("proposal-%02d", i)
		if !q.Enqueue(context.Background(), model.Job{ID: name, Seq: i, Name: name, Proposal: model.Proposal{Description: name}}) {
			panic("enqueue failed")
		}
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a channel", t, func() {
		jobs := make(chan model.Job, 4)
		assessor := &mockAssessor{degraded: map[string]bool{"bad": true}}
		sink := worker.NewCollector(4)
		w := worker.NewInMemoryWorker(jobs, assessor, sink, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When jobs arrive and the channel closes", func() {
			jobs <- model.Job{ID: "a", Seq: 1, Proposal: model.Proposal{Description: "good"}}
			jobs <- model.Job{ID: "b", Seq: 0, Proposal: model.Proposal{Description: "bad"}}
			close(jobs)

			select {
			case <-w.Done():
			case <-time.After(time.Second):
			}

			convey.Convey("Then every job is delivered with its outcome", func() {
				results := sink.Results()
				convey.So(len(results), convey.ShouldEqual, 2)
				convey.So(results[0].Job.ID, convey.ShouldEqual, "b")
				convey.So(results[0].Outcome, convey.ShouldEqual, assess.OutcomeDegraded)
				convey.So(results[0].Err, convey.ShouldNotBeNil)
				convey.So(results[1].Outcome, convey.ShouldEqual, assess.OutcomeAssembled)
			})
		})

		convey.Convey("When shut down while idle", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a sink that fails", t, func() {
		jobs := make(chan model.Job, 2)
		sink := &failingSink{}
		w := worker.NewInMemoryWorker(jobs, &mockAssessor{}, sink)
		go w.Run(context.Background())

		jobs <- model.Job{ID: "a", Proposal: model.Proposal{Description: "x"}}
		jobs <- model.Job{ID: "b", Proposal: model.Proposal{Description: "y"}}
		close(jobs)
		<-w.Done()

		convey.Convey("Then the worker keeps going", func() {
			convey.So(sink.calls.Load(), convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given a busy worker and a short shutdown deadline", t, func() {
		jobs := make(chan model.Job, 1)
		w := worker.NewInMemoryWorker(jobs, &mockAssessor{delay: 500 * time.Millisecond}, worker.NewCollector(1))
		go w.Run(context.Background())
		jobs <- model.Job{ID: "slow", Proposal: model.Proposal{Description: "x"}}
		time.Sleep(20 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := w.Shutdown(ctx)

		convey.Convey("Then shutdown reports the timeout", func() {
			convey.So(errors.Is(err, worker.ErrShutdownTimeout), convey.ShouldBeTrue)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool of three workers over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		assessor := &mockAssessor{delay: 10 * time.Millisecond}
		sink := worker.NewCollector(20)
		pool := worker.NewPool(3, q, assessor, sink)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When a batch is submitted and the queue closed", func() {
			pool.Start(context.Background())
			submit(q, 20)
			convey.So(q.Close(), convey.ShouldBeNil)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := pool.Wait(ctx)

			convey.Convey("Then every job is processed once, in submission order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Processed(), convey.ShouldEqual, 20)
				convey.So(assessor.calls.Load(), convey.ShouldEqual, 20)
				results := sink.Results()
				convey.So(len(results), convey.ShouldEqual, 20)
				for i, r := range results {
					convey.So(r.Job.Seq, convey.ShouldEqual, i)
				}
			})

			convey.Convey("And no more than three ran at once", func() {
				convey.So(assessor.peak.Load(), convey.ShouldBeLessThanOrEqualTo, 3)
				convey.So(assessor.peak.Load(), convey.ShouldBeGreaterThan, 1)
			})
		})

		convey.Convey("When shut down", func() {
			pool.Start(context.Background())
			err := pool.Shutdown(context.Background())

			convey.Convey("Then the queue is closed and workers exit", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), &mockAssessor{}, worker.NewCollector(0))

		convey.Convey("Then one worker per CPU is used", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestCollector(t *testing.T) {
	convey.Convey("Given concurrent deliveries", t, func() {
		c := worker.NewCollector(0)
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(seq int) {
				defer wg.Done()
				_ = c.Deliver(context.Background(), model.JobResult{
					Job:    model.Job{Seq: 9 - seq},
					Result: model.NewResult(time.Now(), []model.RiskAssessment{}),
				})
			}(i)
		}
		wg.Wait()

		convey.Convey("Then results come back sorted by sequence", func() {
			results := c.Results()
			convey.So(len(results), convey.ShouldEqual, 10)
			for i, r := range results {
				convey.So(r.Job.Seq, convey.ShouldEqual, i)
			}
		})

		convey.Convey("And a result without risks is rejected", func() {
			err := c.Deliver(context.Background(), model.JobResult{})
			convey.So(errors.Is(err, worker.ErrNilResult), convey.ShouldBeTrue)
		})
	})
}
