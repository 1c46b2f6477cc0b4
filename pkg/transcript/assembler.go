// Package transcript accumulates incrementally delivered conversation
// text and commits it, one atomic flush per completed turn, into an
// append-only role-tagged log.
package transcript

import "sync"

// Role identifies the speaker of a transcript entry.
type Role string

const (
	// RoleUser marks text spoken or typed by the operator.
	RoleUser Role = "user"
	// RoleModel marks text produced by the remote assistant.
	RoleModel Role = "model"
)

// Entry is one committed line of the conversation. Entries are
// immutable once appended.
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Assembler holds the per-turn accumulators and the committed log.
// Fragments for the input (user) and output (model) sides arrive
// independently; a turn-complete signal flushes both sides as one
// atomic step. Safe for concurrent use from transport callbacks and
// controller calls.
type Assembler struct {
	mu      sync.Mutex
	input   string
	output  string
	entries []Entry
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// AddInput appends an input-side fragment. The fragment is visible
// immediately through InterimInput.
func (a *Assembler) AddInput(fragment string) {
	if fragment == "" {
		return
	}
	a.mu.Lock()
	a.input += fragment
	a.mu.Unlock()
}

// AddOutput appends an output-side fragment. The fragment is visible
// immediately through InterimOutput.
func (a *Assembler) AddOutput(fragment string) {
	if fragment == "" {
		return
	}
	a.mu.Lock()
	a.output += fragment
	a.mu.Unlock()
}

// CommitTurn flushes both accumulators into the log: a non-empty input
// side commits as RoleUser first, then a non-empty output side as
// RoleModel. Both accumulators clear together; a partial flush is not
// possible. The newly committed entries are returned in order.
func (a *Assembler) CommitTurn() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var committed []Entry
	if a.input != "" {
		committed = append(committed, Entry{Role: RoleUser, Text: a.input})
	}
	if a.output != "" {
		committed = append(committed, Entry{Role: RoleModel, Text: a.output})
	}
	a.input = ""
	a.output = ""
	a.entries = append(a.entries, committed...)
	return committed
}

// Append commits a single entry directly, bypassing the accumulators.
// Used for typed text input, which is not delivered incrementally.
func (a *Assembler) Append(role Role, text string) {
	if text == "" {
		return
	}
	a.mu.Lock()
	a.entries = append(a.entries, Entry{Role: role, Text: text})
	a.mu.Unlock()
}

// InterimInput returns the not-yet-committed input-side text.
func (a *Assembler) InterimInput() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input
}

// InterimOutput returns the not-yet-committed output-side text.
func (a *Assembler) InterimOutput() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.output
}

// ResetInterim discards both accumulators without committing. The
// committed log is untouched; this is the disconnect path.
func (a *Assembler) ResetInterim() {
	a.mu.Lock()
	a.input = ""
	a.output = ""
	a.mu.Unlock()
}

// Entries returns a copy of the committed log in commit order.
func (a *Assembler) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Entry(nil), a.entries...)
}

// Len returns the number of committed entries.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Clear empties the committed log. Accumulators are untouched.
func (a *Assembler) Clear() {
	a.mu.Lock()
	a.entries = nil
	a.mu.Unlock()
}
