package engine

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Lynx32/forge/internal/eventlog"
)

// ErrQueueFull is returned when the input queue is at capacity
var ErrQueueFull = errors.New("engine: input queue full")

// InputQueue collects inputs between ticks. Safe for concurrent producers.
type InputQueue struct {
	mu      sync.Mutex
	pending []Input
	limit   int
}

func NewInputQueue(limit int) *InputQueue {
	return &InputQueue{limit: limit}
}

// Push appends inputs atomically: either all fit or none are queued
func (q *InputQueue) Push(inputs ...Input) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 && len(q.pending)+len(inputs) > q.limit {
		return ErrQueueFull
	}
	q.pending = append(q.pending, inputs...)
	return nil
}

// Drain removes and returns everything queued, in arrival order
func (q *InputQueue) Drain() []Input {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	return out
}

func (q *InputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// TickReport summarises one completed runner step
type TickReport struct {
	Tick     int64
	Hash     uint64
	Inputs   int
	Entities int
	Events   int
	Duration time.Duration
	Err      error
}

// Runner drives an engine at a fixed tick rate: drain queued inputs, Update,
// wait, SynchronizeState, journal, DispatchEvents.
type Runner struct {
	engine  *Engine
	codec   *InputCodec
	queue   *InputQueue
	journal *eventlog.Journal

	tickRate int
	onTick   func(TickReport)

	mu       sync.Mutex
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewRunner creates a runner. journal may be nil.
func NewRunner(e *Engine, codec *InputCodec, queue *InputQueue, journal *eventlog.Journal, tickRate int) *Runner {
	if tickRate <= 0 {
		tickRate = 30
	}
	return &Runner{
		engine:   e,
		codec:    codec,
		queue:    queue,
		journal:  journal,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// OnTick sets the observer called after every step. Set it before Start.
func (r *Runner) OnTick(fn func(TickReport)) { r.onTick = fn }

func (r *Runner) Engine() *Engine { return r.engine }

func (r *Runner) Queue() *InputQueue { return r.queue }

// Start begins the tick loop
func (r *Runner) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.ticker = time.NewTicker(time.Second / time.Duration(r.tickRate))
	r.mu.Unlock()

	go func() {
		defer close(r.doneChan)
		for {
			select {
			case <-r.ticker.C:
				r.Step()
			case <-r.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Simulation started at %d TPS", r.tickRate)
}

// Stop ends the loop after the current step completes
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.ticker.Stop()
	close(r.stopChan)
	r.mu.Unlock()

	<-r.doneChan
	log.Println("🛑 Simulation stopped")
}

// Step runs one full tick. The loop calls it; tests may call it directly
// when the runner is not started.
func (r *Runner) Step() TickReport {
	start := time.Now()
	inputs := r.queue.Drain()
	report := TickReport{Inputs: len(inputs)}

	tick, err := r.engine.Update(inputs)
	if err != nil {
		report.Err = err
		log.Printf("⚠️ Tick skipped: %v", err)
		r.report(report, start)
		return report
	}
	if err := tick.Wait(); err != nil {
		report.Err = err
		log.Printf("⚠️ Tick %d: %v", tick.Number(), err)
	}
	if err := r.engine.SynchronizeState(); err != nil {
		report.Err = errors.Join(report.Err, err)
		log.Printf("⚠️ Tick %d synchronize: %v", tick.Number(), err)
	}

	view := r.engine.View()
	report.Tick = view.Tick
	report.Hash = view.Hash
	report.Entities = view.EntityCount()

	if r.journal != nil {
		payload, err := r.codec.EncodeJSON(inputs)
		if err != nil {
			log.Printf("⚠️ Tick %d journal encode: %v", view.Tick, err)
		} else {
			r.journal.Append(eventlog.Entry{Tick: view.Tick, Inputs: payload, Hash: view.Hash})
		}
	}

	report.Events = r.engine.DispatchEvents()
	r.report(report, start)
	return report
}

func (r *Runner) report(report TickReport, start time.Time) {
	report.Duration = time.Since(start)
	if r.onTick != nil {
		r.onTick(report)
	}
}
