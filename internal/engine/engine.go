// Package engine drives deterministic simulation ticks over runtime entities.
//
// A tick is Update (apply inputs, run systems), then SynchronizeState
// (publish an immutable View), then DispatchEvents (deliver buffered events
// on the caller's goroutine). Only one Update may be in flight at a time.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/level"
)

var (
	ErrUpdateInFlight       = errors.New("engine: update already in flight")
	ErrNothingToSynchronize = errors.New("engine: no completed update to synchronize")
)

// State of the update protocol
type State int32

const (
	StateIdle State = iota
	StateUpdating
	StateUpdated
	StateSynchronizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUpdating:
		return "updating"
	case StateUpdated:
		return "updated"
	case StateSynchronizing:
		return "synchronizing"
	default:
		return "unknown"
	}
}

// Config holds engine tuning
type Config struct {
	Workers        int // Entity system parallelism; 0 means unbounded
	EventQueueSize int // Notifier ring size
}

func DefaultConfig() Config {
	return Config{Workers: 4, EventQueueSize: entity.DefaultQueueSize}
}

// Tick is the completion handle returned by Update
type Tick struct {
	number int64
	done   chan struct{}
	err    error
}

// Number is the tick's sequence number, valid once Done is closed
func (t *Tick) Number() int64 { return t.number }

// Done is closed when the tick has completed
func (t *Tick) Done() <-chan struct{} { return t.done }

// Wait blocks until the tick completes and returns the errors it produced.
// A tick with errors still completes and can be synchronized.
func (t *Tick) Wait() error {
	<-t.done
	return t.err
}

// Engine owns the live simulation state
type Engine struct {
	cfg       Config
	templates *level.TemplateGroup
	systems   []System

	state atomic.Int32

	// dataMu guards everything below it while a tick runs or a snapshot is taken
	dataMu    sync.Mutex
	tick      int64
	global    *entity.RuntimeEntity
	entities  []*entity.RuntimeEntity
	byID      map[entity.ID]*entity.RuntimeEntity
	entityIDs level.IDGenerator
	pending   *View

	inflightMu sync.Mutex
	inflight   *Tick

	// staging collects events from an in-flight tick; they move to notifier
	// when the tick completes so dispatch only ever sees finished ticks.
	staging  *entity.EventNotifier
	notifier *entity.EventNotifier

	view    atomic.Pointer[View]
	viewSeq atomic.Uint64
}

// NewEngine builds an engine from a snapshot and template group. Neither
// argument is retained.
func NewEngine(snap *level.Snapshot, templates *level.TemplateGroup, cfg Config, systems ...System) (*Engine, error) {
	if err := validateSystems(systems); err != nil {
		return nil, err
	}
	if cfg.EventQueueSize <= 0 {
		cfg.EventQueueSize = entity.DefaultQueueSize
	}
	if templates == nil {
		templates = level.NewTemplateGroup()
	}
	if snap == nil {
		snap = level.NewSnapshot()
	}

	e := &Engine{
		cfg:       cfg,
		templates: cloneTemplates(templates),
		systems:   systems,
		tick:      snap.Tick,
		byID:      make(map[entity.ID]*entity.RuntimeEntity, len(snap.Entities)),
		entityIDs: snap.EntityIDs,
		staging:   entity.NewEventNotifier(cfg.EventQueueSize),
		notifier:  entity.NewEventNotifier(cfg.EventQueueSize),
	}

	global, err := entity.Spawn(snap.Global, e.staging)
	if err != nil {
		return nil, fmt.Errorf("engine: global entity: %w", err)
	}
	e.global = global

	for _, ce := range snap.Entities {
		if _, dup := e.byID[ce.ID()]; dup || ce.ID() == level.GlobalEntityID {
			return nil, fmt.Errorf("engine: duplicate entity id %d", ce.ID())
		}
		re, err := entity.Spawn(ce, e.staging)
		if err != nil {
			return nil, fmt.Errorf("engine: entity %d: %w", ce.ID(), err)
		}
		e.addEntity(re)
		e.entityIDs.Consume(int64(ce.ID()))
	}

	hash, err := hashState(e.global, e.entities)
	if err != nil {
		return nil, err
	}
	e.view.Store(e.buildView(hash))
	return e, nil
}

// CreateEngine loads serialized state and builds an engine. Any failure is
// logged and reported as false; no partial engine is returned.
func CreateEngine(snapshotJSON, templateJSON []byte, reg *entity.Registry, cfg Config, systems ...System) (*Engine, bool) {
	e, err := createEngine(snapshotJSON, templateJSON, reg, cfg, systems...)
	if err != nil {
		log.Printf("⚠️ Failed to create engine: %v", err)
		return nil, false
	}
	return e, true
}

func createEngine(snapshotJSON, templateJSON []byte, reg *entity.Registry, cfg Config, systems ...System) (*Engine, error) {
	templates := level.NewTemplateGroup()
	if len(templateJSON) > 0 {
		var err error
		if templates, err = level.LoadTemplateGroup(templateJSON, reg); err != nil {
			return nil, err
		}
	}
	snap, err := level.LoadSnapshot(snapshotJSON, reg)
	if err != nil {
		return nil, err
	}
	return NewEngine(snap, templates, cfg, systems...)
}

func cloneTemplates(g *level.TemplateGroup) *level.TemplateGroup {
	c := &level.TemplateGroup{TemplateIDs: g.TemplateIDs, Templates: make([]*level.Template, len(g.Templates))}
	for i, t := range g.Templates {
		c.Templates[i] = t.Clone()
	}
	return c
}

func (e *Engine) addEntity(re *entity.RuntimeEntity) {
	e.entities = append(e.entities, re)
	e.byID[re.ID()] = re
}

func (e *Engine) State() State { return State(e.state.Load()) }

// Update starts the next tick on a new goroutine. inputs are applied in
// order before any system runs. Calling Update again before the tick has
// been synchronized returns ErrUpdateInFlight.
func (e *Engine) Update(inputs []Input) (*Tick, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateUpdating)) {
		return nil, fmt.Errorf("%w (state %s)", ErrUpdateInFlight, e.State())
	}

	t := &Tick{done: make(chan struct{})}
	e.inflightMu.Lock()
	e.inflight = t
	e.inflightMu.Unlock()

	go func() {
		defer close(t.done)

		e.dataMu.Lock()
		t.number = e.tick + 1
		t.err = e.runTick(t.number, inputs)
		e.dataMu.Unlock()

		e.state.Store(int32(StateUpdated))
	}()
	return t, nil
}

// runTick does the work of one Update. Caller holds dataMu.
func (e *Engine) runTick(number int64, inputs []Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, fmt.Errorf("engine: tick %d panicked: %v", number, r))
		}
	}()

	e.commit()
	e.tick = number
	w := &World{engine: e, tick: number}

	var errs []error
	for i, in := range inputs {
		if ierr := in.Apply(w); ierr != nil {
			errs = append(errs, fmt.Errorf("input %d (%s): %w", i, in.Kind(), ierr))
		}
	}
	if serr := runSystems(w, e.systems, e.cfg.Workers); serr != nil {
		errs = append(errs, serr)
	}
	e.removeDestroyed(number)

	hash, herr := hashState(e.global, e.entities)
	if herr != nil {
		errs = append(errs, herr)
	}
	e.pending = e.buildView(hash)
	e.staging.TransferTo(e.notifier)

	return errors.Join(errs...)
}

// commit rotates current into previous on every entity touched last tick
func (e *Engine) commit() {
	e.global.Commit()
	for _, ent := range e.entities {
		ent.Commit()
	}
}

func (e *Engine) removeDestroyed(tick int64) {
	live := e.entities[:0]
	for _, ent := range e.entities {
		if ent.Destroyed() {
			delete(e.byID, ent.ID())
			e.staging.Submit(EntityDestroyed{Entity: ent.ID(), Tick: tick})
			continue
		}
		live = append(live, ent)
	}
	clear(e.entities[len(live):])
	e.entities = live
}

// SynchronizeState publishes the completed tick's View. If the tick is still
// running it waits for it first.
func (e *Engine) SynchronizeState() error {
	if e.State() == StateUpdating {
		e.waitInflight()
	}
	if !e.state.CompareAndSwap(int32(StateUpdated), int32(StateSynchronizing)) {
		return fmt.Errorf("%w (state %s)", ErrNothingToSynchronize, e.State())
	}

	e.dataMu.Lock()
	v := e.pending
	e.pending = nil
	e.dataMu.Unlock()

	if v != nil {
		e.view.Store(v)
	}
	e.state.Store(int32(StateIdle))
	return nil
}

// DispatchEvents delivers the events of every completed tick to subscribers
// on the calling goroutine and returns how many were delivered.
func (e *Engine) DispatchEvents() int {
	before := e.notifier.Dropped()
	n := e.notifier.Dispatch()
	if dropped := e.notifier.Dropped() - before; dropped > 0 {
		log.Printf("⚠️ Event queue overflow: %d events dropped", dropped)
	}
	return n
}

// EventNotifier is where subscribers register
func (e *Engine) EventNotifier() *entity.EventNotifier { return e.notifier }

// View returns the last published state. It never blocks.
func (e *Engine) View() *View { return e.view.Load() }

func (e *Engine) waitInflight() {
	e.inflightMu.Lock()
	t := e.inflight
	e.inflightMu.Unlock()
	if t != nil {
		<-t.done
	}
}

// TakeSnapshot waits for any in-flight tick and deep-copies the engine state
// into a standalone snapshot.
func (e *Engine) TakeSnapshot() (*level.Snapshot, error) {
	e.waitInflight()

	e.dataMu.Lock()
	defer e.dataMu.Unlock()

	snap := level.NewSnapshot()
	snap.Tick = e.tick
	snap.EntityIDs = e.entityIDs

	global, err := entity.ContentCopy(e.global)
	if err != nil {
		return nil, err
	}
	snap.Global = global

	for _, ent := range e.entities {
		ce, err := entity.ContentCopy(ent)
		if err != nil {
			return nil, err
		}
		snap.Entities = append(snap.Entities, ce)
	}
	return snap, nil
}

// Templates returns a copy of the engine's template group
func (e *Engine) Templates() *level.TemplateGroup { return cloneTemplates(e.templates) }

// VerificationHash digests all entity data after any in-flight tick. Two
// engines fed identical inputs from identical state return equal hashes.
func (e *Engine) VerificationHash() (uint64, error) {
	e.waitInflight()

	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	return hashState(e.global, e.entities)
}
