package counter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Schema is the shape of the store document. A deployment uses a single schema for its
// whole lifetime
type Schema string

// Supported schemas
const (
	// SchemaSimple stores one count per user: {"<user_id>": <count>}
	SchemaSimple Schema = "simple"
	// SchemaKillsDeaths stores two counts per user: {"kills": {...}, "deaths": {...}}
	SchemaKillsDeaths Schema = "kills_deaths"
)

// ParseSchema returns the Schema matching name
func ParseSchema(name string) (s Schema, err error) {
	switch Schema(name) {
	case SchemaSimple, SchemaKillsDeaths:
		return Schema(name), nil
	default:
		return "", fmt.Errorf("unknown store schema [%s], expected [%s] or [%s]", name, SchemaSimple, SchemaKillsDeaths)
	}
}

// Field is one of the counts of a record
type Field string

// Record fields. The simple schema only has Kills which is "the count"
const (
	Kills  Field = "kills"
	Deaths Field = "deaths"
)

// Valid returns true if the field exists in the schema
func (s Schema) Valid(f Field) bool {
	if s == SchemaSimple {
		return f == Kills
	}

	return f == Kills || f == Deaths
}

// Record is the value held for one user. Counts are never negative
type Record struct {
	Kills  int
	Deaths int
}

// Get returns the value of a field
func (r Record) Get(f Field) int {
	if f == Deaths {
		return r.Deaths
	}

	return r.Kills
}

// with returns a copy of the record with field set to value
func (r Record) with(f Field, value int) Record {
	if f == Deaths {
		r.Deaths = value
	} else {
		r.Kills = value
	}

	return r
}

// Snapshot is an immutable view of the whole mapping. Keys keep their insertion order:
// file order when parsed, arrival order for keys added afterwards
type Snapshot struct {
	schema  Schema
	order   []string
	records map[string]Record
}

// emptySnapshot returns a snapshot with no records
func emptySnapshot(schema Schema) *Snapshot {
	return &Snapshot{schema: schema, order: []string{}, records: map[string]Record{}}
}

// Schema returns the schema of the snapshot
func (s Snapshot) Schema() Schema {
	return s.schema
}

// Len returns the number of users in the snapshot
func (s Snapshot) Len() int {
	return len(s.order)
}

// IsEmpty returns true if the snapshot holds no user
func (s Snapshot) IsEmpty() bool {
	return len(s.order) == 0
}

// Get returns the record of a user. A missing user has a zero record
func (s Snapshot) Get(userID string) Record {
	return s.records[userID]
}

// Keys returns the user ids in insertion order
func (s Snapshot) Keys() []string {
	keys := make([]string, len(s.order))
	copy(keys, s.order)

	return keys
}

// with returns a new snapshot with the record of userID replaced. The receiver is not modified
func (s Snapshot) with(userID string, r Record) *Snapshot {
	ns := &Snapshot{schema: s.schema, order: s.order, records: make(map[string]Record, len(s.records)+1)}
	for k, v := range s.records {
		ns.records[k] = v
	}

	if _, ok := s.records[userID]; !ok {
		ns.order = make([]string, len(s.order), len(s.order)+1)
		copy(ns.order, s.order)
		ns.order = append(ns.order, userID)
	}

	ns.records[userID] = r
	return ns
}

// MarshalJSON encodes the snapshot in its schema's document shape, keys in insertion order
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer

	if s.schema == SchemaKillsDeaths {
		b.WriteString(`{"kills":`)
		s.writeField(&b, Kills)
		b.WriteString(`,"deaths":`)
		s.writeField(&b, Deaths)
		b.WriteString("}")
	} else {
		s.writeField(&b, Kills)
	}

	return b.Bytes(), nil
}

func (s Snapshot) writeField(b *bytes.Buffer, f Field) {
	b.WriteString("{")
	for i, k := range s.order {
		if i > 0 {
			b.WriteString(",")
		}

		key, _ := json.Marshal(k)
		b.Write(key)
		b.WriteString(":")
		b.WriteString(strconv.Itoa(s.records[k].Get(f)))
	}
	b.WriteString("}")
}

// ParseError is returned when a document doesn't match the expected schema
type ParseError struct {
	Schema Schema
	Reason string
	Err    error
}

// Error implements error
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s store document: %s: %v", e.Schema, e.Reason, e.Err)
	}

	return fmt.Sprintf("invalid %s store document: %s", e.Schema, e.Reason)
}

// Unwrap returns the underlying decoding error, if any
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes raw as a document of the given schema. It rejects anything that isn't
// exactly the schema's shape with non-negative integer counts
func Parse(raw []byte, schema Schema) (snapshot Snapshot, err error) {
	p := parser{schema: schema, snapshot: emptySnapshot(schema)}
	if err = p.parse(raw); err != nil {
		return Snapshot{}, err
	}

	return *p.snapshot, nil
}

type parser struct {
	schema   Schema
	snapshot *Snapshot
	dec      *json.Decoder
}

func (p *parser) fail(reason string, err error) error {
	return &ParseError{Schema: p.schema, Reason: reason, Err: err}
}

func (p *parser) parse(raw []byte) (err error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return p.fail("document is empty", nil)
	}

	p.dec = json.NewDecoder(bytes.NewReader(raw))
	p.dec.UseNumber()

	if err = p.expectObjectStart("document"); err != nil {
		return err
	}

	for p.dec.More() {
		key, err := p.key()
		if err != nil {
			return err
		}

		if p.schema == SchemaKillsDeaths {
			if key != string(Kills) && key != string(Deaths) {
				return p.fail(fmt.Sprintf("unknown top-level key %q", key), nil)
			}

			if err = p.parseCounts(Field(key)); err != nil {
				return err
			}
		} else {
			if err = p.parseCount(key, Kills); err != nil {
				return err
			}
		}
	}

	if _, err = p.dec.Token(); err != nil {
		return p.fail("malformed JSON", err)
	}

	if _, err = p.dec.Token(); err != io.EOF {
		return p.fail("unexpected content after document", err)
	}

	return nil
}

func (p *parser) expectObjectStart(what string) (err error) {
	tok, err := p.dec.Token()
	if err != nil {
		return p.fail("malformed JSON", err)
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return p.fail(fmt.Sprintf("%s must be a JSON object", what), nil)
	}

	return nil
}

func (p *parser) key() (key string, err error) {
	tok, err := p.dec.Token()
	if err != nil {
		return "", p.fail("malformed JSON", err)
	}

	key, ok := tok.(string)
	if !ok {
		return "", p.fail("malformed JSON", nil)
	}

	return key, nil
}

// parseCounts reads a nested {"<user_id>": n} object into field
func (p *parser) parseCounts(f Field) (err error) {
	if err = p.expectObjectStart(fmt.Sprintf("%q", f)); err != nil {
		return err
	}

	for p.dec.More() {
		userID, err := p.key()
		if err != nil {
			return err
		}

		if err = p.parseCount(userID, f); err != nil {
			return err
		}
	}

	if _, err = p.dec.Token(); err != nil {
		return p.fail("malformed JSON", err)
	}

	return nil
}

// parseCount reads one count value for userID into field
func (p *parser) parseCount(userID string, f Field) (err error) {
	if userID == "" {
		return p.fail("empty user id", nil)
	}

	tok, err := p.dec.Token()
	if err != nil {
		return p.fail("malformed JSON", err)
	}

	n, ok := tok.(json.Number)
	if !ok {
		return p.fail(fmt.Sprintf("value of %q must be an integer", userID), nil)
	}

	v, err := strconv.Atoi(n.String())
	if err != nil {
		return p.fail(fmt.Sprintf("value of %q must be an integer", userID), nil)
	}

	if v < 0 {
		return p.fail(fmt.Sprintf("value of %q is negative", userID), nil)
	}

	p.snapshot.set(userID, f, v)
	return nil
}

// set is only used while building a snapshot that isn't shared yet
func (s *Snapshot) set(userID string, f Field, value int) {
	r, ok := s.records[userID]
	if !ok {
		s.order = append(s.order, userID)
	}

	s.records[userID] = r.with(f, value)
}
