// Package roster defines the read-only guest snapshot consumed at
// session start, the rendering of that snapshot into the assistant's
// system instructions, and the directive grammar through which the
// assistant reports actionable content back to the desk.
package roster

import (
	"context"
	"fmt"
	"strings"
)

// Guest is one row of the front-desk roster. The voice core never
// mutates guests; updates flow out through sinks.
type Guest struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Room        string   `yaml:"room" json:"room"`
	Status      string   `yaml:"status" json:"status"`
	Preferences []string `yaml:"preferences,omitempty" json:"preferences,omitempty"`
	Notes       []string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// SnapshotProvider yields the current roster. The session controller
// calls it exactly once per session start; later roster changes do not
// reach an already-open session.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) ([]Guest, error)
}

// StaticProvider is a fixed in-memory roster, used by the CLI and tests.
type StaticProvider []Guest

// Snapshot implements SnapshotProvider.
func (p StaticProvider) Snapshot(context.Context) ([]Guest, error) {
	return append([]Guest(nil), p...), nil
}

// NoteSink receives a room note detected in the conversation.
type NoteSink func(guestID, note string)

// FieldSink receives a partial guest-field update detected in the
// conversation.
type FieldSink func(guestID string, fields map[string]string)

// RenderInstructions builds the immutable system-instruction string for
// one session from a roster snapshot. The rendered text establishes the
// assistant's authoritative data for the conversation and the directive
// grammar it must use to report actionable content.
func RenderInstructions(guests []Guest) string {
	var b strings.Builder

	b.WriteString("You are the front-desk voice assistant of this hotel. ")
	b.WriteString("Answer questions about today's arrivals, departures and in-house guests ")
	b.WriteString("using only the roster below. If a guest is not on the roster, say so; ")
	b.WriteString("never invent reservations.\n\n")

	b.WriteString("Current roster:\n")
	if len(guests) == 0 {
		b.WriteString("(no guests on the roster)\n")
	}
	for _, g := range guests {
		fmt.Fprintf(&b, "- [%s] %s, room %s, status %s", g.ID, g.Name, orDash(g.Room), orDash(g.Status))
		if len(g.Preferences) > 0 {
			fmt.Fprintf(&b, ", preferences: %s", strings.Join(g.Preferences, "; "))
		}
		if len(g.Notes) > 0 {
			fmt.Fprintf(&b, ", notes: %s", strings.Join(g.Notes, "; "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nWhen the conversation produces something the desk must act on, ")
	b.WriteString("append a directive on its own line at the end of your reply:\n")
	b.WriteString("  @note{<guest id>|<free-text note for housekeeping or maintenance>}\n")
	b.WriteString("  @update{<guest id>|<field>=<value>,<field>=<value>}\n")
	b.WriteString("Valid update fields: room, status. ")
	b.WriteString("Use directives only for guests on the roster, and keep the spoken part ")
	b.WriteString("of the reply natural; directives are machine-read and not spoken.\n")

	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
