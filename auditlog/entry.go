package auditlog

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Action is the kind of operation recorded by an Entry
type Action string

// Recorded actions
const (
	ActionIncrement  Action = "increment"
	ActionZero       Action = "zero"
	ActionDecrement  Action = "decrement"
	ActionRestore    Action = "restore"
	ActionExport     Action = "export"
	ActionSync       Action = "sync"
	ActionLogs       Action = "logs"
	ActionExportLogs Action = "export_logs"
	ActionSet        Action = "set"
)

// Identity identifies a user, either as the actor or the subject of an entry
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// System is the actor of scheduler-driven actions
var System = Identity{ID: "system", Name: "system"}

// String returns the display name when known, the ID otherwise
func (i Identity) String() string {
	if i.Name != "" {
		return i.Name
	}

	return i.ID
}

// Entry is one immutable record of the log
type Entry struct {
	Time    time.Time `json:"time"`
	Actor   Identity  `json:"actor"`
	Subject Identity  `json:"subject"`
	Action  Action    `json:"action"`
	Value   int       `json:"value"`
	Message string    `json:"message"`
}

// Text returns the message of the entry or, when empty, a description built from its fields
func (e Entry) Text() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Subject.ID == "" {
		return fmt.Sprintf("%s ran %s", e.Actor, e.Action)
	}

	return fmt.Sprintf("%s ran %s on %s (value %d)", e.Actor, e.Action, e.Subject, e.Value)
}

// formatLine renders the entry as a single text line without the trailing newline
func formatLine(e Entry) string {
	msg := strings.ReplaceAll(e.Text(), "\n", " ")
	return fmt.Sprintf("[%s] [%s] %s", e.Time.Format(time.RFC3339), strings.ToUpper(string(e.Action)), msg)
}

var lineRegex = regexp.MustCompile(`^\[([^\]]+)\] \[([A-Z_]+)\] (.*)$`)

// parseLine parses a text line back into an entry. Lines not matching the format are kept
// whole as the message
func parseLine(line string) (e Entry) {
	m := lineRegex.FindStringSubmatch(line)
	if m == nil {
		return Entry{Message: line}
	}

	t, err := time.Parse(time.RFC3339, m[1])
	if err != nil {
		return Entry{Message: line}
	}

	return Entry{Time: t, Action: Action(strings.ToLower(m[2])), Message: m[3]}
}
