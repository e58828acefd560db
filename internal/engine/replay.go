package engine

import (
	"fmt"
	"log"

	"github.com/Lynx32/forge/internal/eventlog"
)

// DivergenceError reports the first tick whose hash differs from the journal
type DivergenceError struct {
	Tick     int64
	Expected uint64
	Actual   uint64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("engine: diverged at tick %d: expected hash %016x, got %016x", e.Tick, e.Expected, e.Actual)
}

// Replay feeds journaled inputs through e one tick at a time and checks each
// resulting hash. Entries for ticks the engine has already passed are
// skipped. It returns the number of ticks replayed.
func Replay(e *Engine, codec *InputCodec, entries []eventlog.Entry) (int, error) {
	replayed := 0
	for _, entry := range entries {
		start := e.View().Tick
		if entry.Tick <= start {
			continue
		}
		if entry.Tick != start+1 {
			return replayed, fmt.Errorf("engine: journal gap: engine at tick %d, next entry is tick %d", start, entry.Tick)
		}

		inputs, err := codec.DecodeJSON(entry.Inputs)
		if err != nil {
			return replayed, fmt.Errorf("engine: tick %d: %w", entry.Tick, err)
		}

		tick, err := e.Update(inputs)
		if err != nil {
			return replayed, err
		}
		if err := tick.Wait(); err != nil {
			// Rejected inputs were rejected in the recorded run too
			log.Printf("⚠️ Replay tick %d: %v", entry.Tick, err)
		}
		if err := e.SynchronizeState(); err != nil {
			return replayed, err
		}
		e.DispatchEvents()
		replayed++

		if got := e.View().Hash; got != entry.Hash {
			return replayed, &DivergenceError{Tick: entry.Tick, Expected: entry.Hash, Actual: got}
		}
	}
	return replayed, nil
}
