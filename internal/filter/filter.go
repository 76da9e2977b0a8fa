package filter

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"flit.hoyle.net/pkg/event"
)

// FieldMatch is one key:value pair matched against record fields.
type FieldMatch struct {
	Key   string
	Value string
}

// Filter accepts or rejects records by their fields. Entries are written
// as "key:value" strings in the configuration.
type Filter struct {
	Accepted []string `yaml:"accepted"`
	Rejected []string `yaml:"rejected"`

	accepted []FieldMatch
	rejected []FieldMatch
	active   bool
}

func (f *Filter) Activate() {
	f.accepted = parseMatches(f.Accepted)
	f.rejected = parseMatches(f.Rejected)
	if len(f.accepted) != 0 || len(f.rejected) != 0 {
		f.active = true
	}
}

func parseMatches(raw []string) []FieldMatch {
	var matches []FieldMatch
	for _, entry := range raw {
		key, value, _ := strings.Cut(entry, ":")
		matches = append(matches, FieldMatch{Key: key, Value: value})
	}
	return matches
}

// Check if a record should be accepted or not
// No matches specified -> everything is accepted
// only Accepted is provided -> only matching records are allowed
// only Rejected is provided -> everything is allowed except matching records
// both are provided -> accepted records that were not rejected later are accepted
func (f *Filter) AcceptRecord(r event.Record) (accepted bool) {
	if !f.active {
		return true
	}

	fields := make([]FieldMatch, 0, len(r.Fields))
	for k, v := range r.Fields {
		fields = append(fields, FieldMatch{Key: k, Value: fmt.Sprint(v)})
	}

	for _, field := range fields {
		if len(f.accepted) == 0 {
			accepted = true
			break
		}
		if slices.Contains(f.accepted, field) {
			accepted = true
		}
	}

	for _, field := range fields {
		if slices.Contains(f.rejected, field) {
			accepted = false
		}
	}
	return
}

// FilterRecords returns the records the filter accepts.
func (f *Filter) FilterRecords(rs []event.Record) []event.Record {
	if !f.active {
		return rs
	}
	accepted := make([]event.Record, 0, len(rs))
	for _, r := range rs {
		if f.AcceptRecord(r) {
			accepted = append(accepted, r)
		}
	}
	return accepted
}
