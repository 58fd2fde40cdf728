package changefeed

import (
	"github.com/specialistvlad/fieldgraph/internal/field"
)

// Payload is the wire form of one change batch.
type Payload struct {
	// Run identifies the publishing process; it is empty outside a
	// Publisher.
	Run     string          `json:"run,omitempty"`
	Module  string          `json:"module"`
	Changes []ChangePayload `json:"changes"`
}

type ChangePayload struct {
	Field string   `json:"field"`
	Index int      `json:"index"`
	Flags []string `json:"flags"`
}

// EncodePayload converts a change batch, keeping the batch order.
func EncodePayload(ev *field.ChangeEvent) Payload {
	p := Payload{Changes: make([]ChangePayload, 0, len(ev.Changes))}
	if ev.Module != nil {
		p.Module = ev.Module.Name()
	}
	for _, c := range ev.Changes {
		p.Changes = append(p.Changes, ChangePayload{
			Field: c.Name,
			Index: c.ID,
			Flags: c.Flags.Names(),
		})
	}
	return p
}
