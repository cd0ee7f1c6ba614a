// Package ingest implements the producer-side collaborator that feeds the
// outbound queue's real_receiver channel (spec.md §6): it coalesces
// individually submitted fragments into per-lane bursts, delivered
// atomically, matching the "bursts are atomic (all or nothing)" ingress
// semantic. The original implementation's real_traffic_stream producer
// is not specified in detail by spec.md, which treats real_receiver as a
// pre-formed bursts channel; this package supplies a concrete,
// exercisable producer, grounded on github.com/joeycumines/go-microbatch.
package ingest

import (
	"context"
	"time"

	"github.com/joeycumines/go-microbatch"

	"github.com/nymtech/nym-client-outqueue/mixmsg"
)

// job is one fragment pending batching, tagged with its destination lane.
type job struct {
	lane mixmsg.TransmissionLane
	msg  mixmsg.RealMessage
}

// Submitter batches individually submitted fragments into mixmsg.Burst
// values and delivers them on Bursts(), one Burst per lane represented in
// a given micro-batch.
type Submitter struct {
	batcher *microbatch.Batcher[job]
	out     chan mixmsg.Burst
}

// Option configures a Submitter at construction.
type Option func(*config)

type config struct {
	maxSize       int
	flushInterval time.Duration
	outBuffer     int
}

// WithMaxBatchSize overrides the maximum number of fragments coalesced
// before a burst is flushed early, regardless of FlushInterval.
func WithMaxBatchSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// WithFlushInterval overrides the maximum latency before an incomplete
// batch is flushed.
func WithFlushInterval(d time.Duration) Option {
	return func(c *config) { c.flushInterval = d }
}

// WithOutputBuffer overrides the capacity of the bounded Bursts channel,
// modeling the bounded real_receiver channel from spec.md §6.
func WithOutputBuffer(n int) Option {
	return func(c *config) { c.outBuffer = n }
}

// NewSubmitter constructs a running Submitter. Call Close when done.
func NewSubmitter(opts ...Option) *Submitter {
	c := config{
		maxSize:       32,
		flushInterval: 10 * time.Millisecond,
		outBuffer:     16,
	}
	for _, opt := range opts {
		opt(&c)
	}

	s := &Submitter{out: make(chan mixmsg.Burst, c.outBuffer)}
	s.batcher = microbatch.NewBatcher[job](&microbatch.BatcherConfig{
		MaxSize:       c.maxSize,
		FlushInterval: c.flushInterval,
	}, s.process)
	return s
}

// process is the microbatch.BatchProcessor: it regroups the flushed batch
// by lane, preserving submission order within each lane, and delivers one
// Burst per lane onto the bounded output channel.
func (s *Submitter) process(ctx context.Context, jobs []job) error {
	order := make([]mixmsg.TransmissionLane, 0, len(jobs))
	grouped := make(map[mixmsg.TransmissionLane][]mixmsg.RealMessage)
	for _, j := range jobs {
		if _, seen := grouped[j.lane]; !seen {
			order = append(order, j.lane)
		}
		grouped[j.lane] = append(grouped[j.lane], j.msg)
	}
	for _, lane := range order {
		burst := mixmsg.Burst{Lane: lane, Messages: grouped[lane]}
		select {
		case s.out <- burst:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Submit schedules msg for delivery on lane, returning once it has been
// accepted into a pending batch. It does not wait for the batch to flush;
// callers that need that guarantee can use SubmitAndWait.
func (s *Submitter) Submit(ctx context.Context, lane mixmsg.TransmissionLane, msg mixmsg.RealMessage) error {
	_, err := s.batcher.Submit(ctx, job{lane: lane, msg: msg})
	return err
}

// SubmitAndWait schedules msg for delivery on lane and blocks until its
// containing batch has been fully processed (i.e. its Burst has been
// handed to the output channel, or the batch failed).
func (s *Submitter) SubmitAndWait(ctx context.Context, lane mixmsg.TransmissionLane, msg mixmsg.RealMessage) error {
	result, err := s.batcher.Submit(ctx, job{lane: lane, msg: msg})
	if err != nil {
		return err
	}
	return result.Wait(ctx)
}

// Bursts exposes the receive side the engine's real_receiver endpoint
// reads from.
func (s *Submitter) Bursts() <-chan mixmsg.Burst {
	return s.out
}

// Close stops accepting new fragments and waits for any in-flight batch
// to finish.
func (s *Submitter) Close() error {
	return s.batcher.Close()
}
