package transcript

import "testing"

func TestAtomicTurnFlush(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		output []string
		want   []Entry
	}{
		{
			name:   "both sides",
			input:  []string{"what time ", "is checkout"},
			output: []string{"Checkout is ", "at 11am."},
			want: []Entry{
				{Role: RoleUser, Text: "what time is checkout"},
				{Role: RoleModel, Text: "Checkout is at 11am."},
			},
		},
		{
			name:   "output only",
			output: []string{"Welcome to the Harborview."},
			want: []Entry{
				{Role: RoleModel, Text: "Welcome to the Harborview."},
			},
		},
		{
			name:  "input only",
			input: []string{"hello?"},
			want: []Entry{
				{Role: RoleUser, Text: "hello?"},
			},
		},
		{
			name: "both empty",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAssembler()
			for _, f := range tt.input {
				a.AddInput(f)
			}
			for _, f := range tt.output {
				a.AddOutput(f)
			}

			committed := a.CommitTurn()
			if len(committed) != len(tt.want) {
				t.Fatalf("expected %d committed entries, got %d", len(tt.want), len(committed))
			}
			for i, want := range tt.want {
				if committed[i] != want {
					t.Errorf("entry %d: expected %+v, got %+v", i, want, committed[i])
				}
			}

			// Both accumulators clear together.
			if a.InterimInput() != "" || a.InterimOutput() != "" {
				t.Error("expected both accumulators empty after commit")
			}
			if a.Len() != len(tt.want) {
				t.Errorf("expected log length %d, got %d", len(tt.want), a.Len())
			}
		})
	}
}

func TestInterimVisibility(t *testing.T) {
	a := NewAssembler()

	a.AddInput("room ")
	a.AddInput("204")
	a.AddOutput("One ")

	if got := a.InterimInput(); got != "room 204" {
		t.Errorf("expected interim input %q, got %q", "room 204", got)
	}
	if got := a.InterimOutput(); got != "One " {
		t.Errorf("expected interim output %q, got %q", "One ", got)
	}
	if a.Len() != 0 {
		t.Error("fragments must not reach the log before turn completion")
	}
}

func TestDirectAppend(t *testing.T) {
	a := NewAssembler()
	a.AddOutput("pending fragment")

	a.Append(RoleUser, "typed message")

	entries := a.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0] != (Entry{Role: RoleUser, Text: "typed message"}) {
		t.Errorf("unexpected entry %+v", entries[0])
	}
	// Direct append leaves accumulators alone.
	if got := a.InterimOutput(); got != "pending fragment" {
		t.Errorf("expected accumulator untouched, got %q", got)
	}
}

func TestResetInterimPreservesLog(t *testing.T) {
	a := NewAssembler()
	a.AddInput("first question")
	a.AddOutput("first answer")
	a.CommitTurn()
	a.AddInput("half a thou")

	a.ResetInterim()

	if a.InterimInput() != "" || a.InterimOutput() != "" {
		t.Error("expected accumulators cleared")
	}
	if a.Len() != 2 {
		t.Errorf("expected committed log preserved (2 entries), got %d", a.Len())
	}
}

func TestClearEmptiesLogOnly(t *testing.T) {
	a := NewAssembler()
	a.Append(RoleUser, "hi")
	a.AddOutput("partial")

	a.Clear()

	if a.Len() != 0 {
		t.Errorf("expected empty log, got %d entries", a.Len())
	}
	if got := a.InterimOutput(); got != "partial" {
		t.Errorf("expected accumulator untouched by Clear, got %q", got)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	a := NewAssembler()
	a.Append(RoleUser, "original")

	entries := a.Entries()
	entries[0].Text = "mutated"

	if got := a.Entries()[0].Text; got != "original" {
		t.Errorf("log entry mutated through returned slice: %q", got)
	}
}
