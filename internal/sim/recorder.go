package sim

import (
	"context"

	"github.com/forgesim/server/internal/core/system"
	"github.com/google/uuid"
)

// TickRecord is what the engine hands to a Recorder once a tick has been
// published.
type TickRecord struct {
	RunID    uuid.UUID
	Tick     uint64
	Inputs   []system.Input
	Checksum uint64
	Active   int
}

// Recorder persists published ticks, e.g. to a journal used to audit or
// replay a run.
type Recorder interface {
	Record(ctx context.Context, rec TickRecord) error
}

// MemoryRecorder keeps records in memory.
type MemoryRecorder struct {
	Records []TickRecord
}

func (m *MemoryRecorder) Record(_ context.Context, rec TickRecord) error {
	m.Records = append(m.Records, rec)
	return nil
}

// Checksums returns the recorded checksums in tick order.
func (m *MemoryRecorder) Checksums() []uint64 {
	out := make([]uint64, len(m.Records))
	for i, r := range m.Records {
		out[i] = r.Checksum
	}
	return out
}
