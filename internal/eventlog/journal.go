// Package eventlog records the inputs applied on every tick, with the
// resulting verification hash, to an append-only JSONL file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	BufferSize         = 1024                   // Circular buffer size
	BatchFlushSize     = 64                     // Entries per batch write
	BatchFlushInterval = 100 * time.Millisecond // How often to flush
	maxLineSize        = 16 << 20
)

// EntryVersion for backwards compatibility in replay
const EntryVersion uint8 = 1

// Entry is one tick: the encoded inputs fed to Update and the hash the
// engine reported after SynchronizeState.
type Entry struct {
	Version   uint8           `json:"version"`
	Sequence  uint64          `json:"sequence"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Tick      int64           `json:"tick"`
	Inputs    json.RawMessage `json:"inputs"`
	Hash      uint64          `json:"hash"`
}

// Journal buffers entries in a ring and writes them in batches from a
// background goroutine
type Journal struct {
	buffer    [BufferSize]Entry
	writeHead uint64 // guarded by bufMu
	readHead  uint64 // guarded by bufMu
	bufMu     sync.Mutex

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// File output
	out      io.Writer
	closer   io.Closer
	outMu    sync.Mutex

	droppedCount atomic.Uint64
	writtenCount atomic.Uint64
}

func NewJournal() *Journal {
	return &Journal{stopChan: make(chan struct{})}
}

// Start opens filePath for append and begins the writer goroutine. An
// empty path keeps entries in memory only.
func (j *Journal) Start(filePath string) error {
	if j.running.Load() {
		return nil
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		j.out = file
		j.closer = file
	}

	j.startWriter()
	return nil
}

// StartWriter is Start for an arbitrary destination
func (j *Journal) StartWriter(w io.Writer) {
	if j.running.Load() {
		return
	}
	j.out = w
	j.startWriter()
}

func (j *Journal) startWriter() {
	j.running.Store(true)
	j.writerWg.Add(1)
	go j.writerLoop()
}

// Stop flushes pending entries and closes the file
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.outMu.Lock()
		if j.closer != nil {
			if err := j.closer.Close(); err != nil {
				log.Printf("⚠️ Journal close failed: %v", err)
			}
		}
		j.outMu.Unlock()
	})
}

// Append queues an entry. Returns false if the journal is not running.
// When the ring is full the oldest unwritten entry is dropped.
func (j *Journal) Append(entry Entry) bool {
	if !j.running.Load() {
		return false
	}

	j.bufMu.Lock()
	if j.writeHead-j.readHead >= BufferSize {
		j.readHead++
		j.droppedCount.Add(1)
	}
	j.writeHead++
	entry.Version = EntryVersion
	entry.Sequence = j.writeHead
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().UnixNano()
	}
	j.buffer[j.writeHead%BufferSize] = entry
	j.bufMu.Unlock()
	return true
}

// writerLoop batches and writes entries asynchronously
func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, BatchFlushSize)

	for {
		select {
		case <-j.stopChan:
			// Final flush, drain everything
			for {
				batch = j.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				j.flushBatch(batch)
			}

		case <-ticker.C:
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
		}
	}
}

// collectBatch reads available entries from the ring in order
func (j *Journal) collectBatch(batch []Entry) []Entry {
	j.bufMu.Lock()
	defer j.bufMu.Unlock()

	for j.readHead < j.writeHead && len(batch) < BatchFlushSize {
		j.readHead++
		batch = append(batch, j.buffer[j.readHead%BufferSize])
	}
	return batch
}

// flushBatch writes newline-delimited JSON
func (j *Journal) flushBatch(batch []Entry) {
	j.outMu.Lock()
	defer j.outMu.Unlock()

	if j.out == nil {
		return
	}

	for _, entry := range batch {
		data, err := json.Marshal(entry)
		if err != nil {
			log.Printf("⚠️ Journal encode tick %d: %v", entry.Tick, err)
			continue
		}
		data = append(data, '\n')
		if _, err := j.out.Write(data); err != nil {
			log.Printf("⚠️ Journal write tick %d: %v", entry.Tick, err)
			return
		}
		j.writtenCount.Add(1)
	}
}

// Written counts entries that reached the output
func (j *Journal) Written() uint64 { return j.writtenCount.Load() }

func (j *Journal) Dropped() uint64 { return j.droppedCount.Load() }

// ReadEntries parses a JSONL journal
func ReadEntries(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var entries []Entry
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadFile parses the journal at path
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEntries(f)
}
