package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Lynx32/forge/internal/engine"
	"github.com/Lynx32/forge/internal/entity"
	"github.com/Lynx32/forge/internal/level"
)

// MaxInputBodyBytes caps a single POST /api/input body
const MaxInputBodyBytes = 1 << 20

// StateResponse is the body of GET /api/state.
// Hash is rendered as hex so JavaScript clients keep all 64 bits.
type StateResponse struct {
	Tick        int64               `json:"tick"`
	Hash        string              `json:"hash"`
	Sequence    uint64              `json:"sequence"`
	Timestamp   time.Time           `json:"timestamp"`
	EntityCount int                 `json:"entityCount"`
	Global      engine.EntityView   `json:"global"`
	Entities    []engine.EntityView `json:"entities"`
}

// HashResponse is the body of GET /api/hash and of websocket tick messages
type HashResponse struct {
	Tick int64  `json:"tick"`
	Hash string `json:"hash"`
}

func formatHash(h uint64) string { return fmt.Sprintf("%016x", h) }

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	v := h.engine.View()
	writeJSON(w, StateResponse{
		Tick:        v.Tick,
		Hash:        formatHash(v.Hash),
		Sequence:    v.Sequence,
		Timestamp:   v.Timestamp,
		EntityCount: v.EntityCount(),
		Global:      v.Global,
		Entities:    v.Entities,
	})
}

func (h *routerHandlers) handleGetHash(w http.ResponseWriter, r *http.Request) {
	v := h.engine.View()
	writeJSON(w, HashResponse{Tick: v.Tick, Hash: formatHash(v.Hash)})
}

func (h *routerHandlers) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "Invalid entity id", http.StatusBadRequest)
		return
	}
	ev := h.engine.View().Entity(entity.ID(id))
	if ev == nil {
		writeError(w, "Entity not found", http.StatusNotFound)
		return
	}
	writeJSON(w, ev)
}

func (h *routerHandlers) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.TakeSnapshot()
	if err != nil {
		log.Printf("❌ Snapshot failed: %v", err)
		writeError(w, "Snapshot failed", http.StatusInternalServerError)
		return
	}
	data, err := level.SaveSnapshot(snap)
	if err != nil {
		log.Printf("❌ Snapshot encode failed: %v", err)
		writeError(w, "Snapshot failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *routerHandlers) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SnapshotSchema())
}

func (h *routerHandlers) handleGetInputKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"kinds": h.codec.Kinds()})
}

func (h *routerHandlers) handlePostInput(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxInputBodyBytes))
	if err != nil {
		RecordInputs("invalid", 1)
		writeError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	inputs, err := h.codec.DecodeJSON(body)
	if err != nil {
		RecordInputs("invalid", 1)
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(inputs) == 0 {
		writeError(w, "No inputs", http.StatusBadRequest)
		return
	}

	if n := len(inputs); n > h.limiter.Burst() {
		RecordInputs("rate_limited", n)
		writeError(w, fmt.Sprintf("Batch of %d inputs exceeds limit of %d", n, h.limiter.Burst()), http.StatusRequestEntityTooLarge)
		return
	}
	if !h.limiter.AllowN(GetClientIP(r), len(inputs)) {
		RecordInputs("rate_limited", len(inputs))
		RecordConnectionRejected("rate_limit")
		w.Header().Set("Retry-After", "1")
		writeError(w, "Too many inputs", http.StatusTooManyRequests)
		return
	}

	if err := h.queue.Push(inputs...); err != nil {
		if errors.Is(err, engine.ErrQueueFull) {
			RecordInputs("queue_full", len(inputs))
			w.Header().Set("Retry-After", "1")
			writeError(w, "Input queue full", http.StatusServiceUnavailable)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	RecordInputs("accepted", len(inputs))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]int{
		"accepted": len(inputs),
		"queued":   h.queue.Len(),
	})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
