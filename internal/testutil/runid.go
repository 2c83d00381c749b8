package testutil

// FixedRunID returns the same run ID every time.
//
// Unlike store.FixedGenerator, which hands out IDs in sequence and panics
// when they run out, FixedRunID never exhausts. Golden scenarios use it so a
// scenario's ledger rows always carry the scenario name.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id. An empty id becomes
// "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run ID.
//
// Implements store.IDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}
