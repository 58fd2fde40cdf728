package changefeed

import (
	"log/slog"
	"sync"

	"github.com/specialistvlad/fieldgraph/internal/field"
)

// LogObserver logs every batch at debug level.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) FieldsChanged(ev *field.ChangeEvent) {
	p := EncodePayload(ev)
	for _, c := range p.Changes {
		o.logger.Debug("Field changed.", "module", p.Module, "field", c.Field, "index", c.Index, "flags", c.Flags)
	}
}

// Recorder keeps every batch it receives.
type Recorder struct {
	mu      sync.Mutex
	batches []Payload
}

func (r *Recorder) FieldsChanged(ev *field.ChangeEvent) {
	p := EncodePayload(ev)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, p)
}

// Batches returns the recorded batches in arrival order.
func (r *Recorder) Batches() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Payload, len(r.batches))
	copy(out, r.batches)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = nil
}

var (
	_ field.Observer = (*LogObserver)(nil)
	_ field.Observer = (*Recorder)(nil)
)
