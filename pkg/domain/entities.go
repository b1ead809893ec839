// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by deskcore.
package domain

import (
	"encoding/json"
	"time"
)

// ModuleType identifies the type of module record stored in the workspace.
type ModuleType string

// Supported module type identifiers used in Change records and persistence buckets.
const (
	// ModuleChecklist identifies a checklist record.
	ModuleChecklist ModuleType = "checklist"
	// ModuleNote identifies a free-text note record.
	ModuleNote ModuleType = "note"
)

// Base contains common fields for all module records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubModules maps a child module type to the ordered ids embedded under it.
// It is the only parent-to-child association storage; there is no edge table.
type SubModules map[ModuleType][]string

// Clone returns a deep copy of the association map.
func (s SubModules) Clone() SubModules {
	if s == nil {
		return nil
	}
	cp := make(SubModules, len(s))
	for t, ids := range s {
		cp[t] = append([]string(nil), ids...)
	}
	return cp
}

// Contains reports whether id is present under the given child type.
func (s SubModules) Contains(t ModuleType, id string) bool {
	for _, existing := range s[t] {
		if existing == id {
			return true
		}
	}
	return false
}

// ModuleInstance is a single persisted entity of some module type. The Data
// payload is type-specific JSON; SubModules carries embedded child references.
type ModuleInstance struct {
	Base
	Type       ModuleType      `json:"module_type"`
	Data       json.RawMessage `json:"data,omitempty"`
	SubModules SubModules      `json:"sub_modules,omitempty"`
}

// Clone returns a deep copy of the instance.
func (m ModuleInstance) Clone() ModuleInstance {
	cp := m
	if m.Data != nil {
		cp.Data = append(json.RawMessage(nil), m.Data...)
	}
	cp.SubModules = m.SubModules.Clone()
	return cp
}

// References reports whether the instance holds id under the given child
// type. Nil-safe, for use with optional before/after change snapshots.
func (m *ModuleInstance) References(t ModuleType, id string) bool {
	if m == nil {
		return false
	}
	return m.SubModules.Contains(t, id)
}

// Context references a module instance for scoped listing, creation and removal.
type Context struct {
	Type ModuleType `json:"type"`
	ID   string     `json:"id"`
}

// IsZero reports whether the context is unset.
func (c Context) IsZero() bool {
	return c.Type == "" && c.ID == ""
}

// ContextOf returns the context addressing the given instance.
func ContextOf(m ModuleInstance) Context {
	return Context{Type: m.Type, ID: m.ID}
}

// ContextChain is the ancestry path of contexts accumulated while recursively
// rendering embedded modules. It exists only for cycle detection and is never
// persisted.
type ContextChain []Context

// Contains reports whether the chain already holds the given context,
// compared by type and id.
func (ch ContextChain) Contains(c Context) bool {
	for _, existing := range ch {
		if existing.Type == c.Type && existing.ID == c.ID {
			return true
		}
	}
	return false
}

// Extend returns a new chain with c appended. The receiver is not mutated.
func (ch ContextChain) Extend(c Context) ContextChain {
	next := make(ContextChain, 0, len(ch)+1)
	next = append(next, ch...)
	return append(next, c)
}

// DragPayload references a module instance for the duration of one drag
// gesture. It carries no integrity guarantee; it is trusted local state only.
type DragPayload struct {
	Type  ModuleType `json:"module_type"`
	ID    string     `json:"id"`
	Title string     `json:"title,omitempty"`
}

// ChecklistItem is one entry of a checklist payload.
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// ChecklistData is the type-specific payload of a checklist module.
type ChecklistData struct {
	Name  string          `json:"name"`
	Items []ChecklistItem `json:"items"`
}

// NoteData is the type-specific payload of a note module.
type NoteData struct {
	Text string `json:"text"`
}

// Change describes a mutation applied to a module instance during a transaction.
type Change struct {
	Module   ModuleType
	ModuleID string
	Action   Action
	Before   *ModuleInstance
	After    *ModuleInstance
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured per transaction.
const (
	// ActionCreate indicates an instance was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an instance was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Module   ModuleType
	ModuleID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// ErrNotFound is returned when an instance referenced by id does not exist.
type ErrNotFound struct {
	Module ModuleType
	ID     string
}

func (e ErrNotFound) Error() string {
	if e.Module == "" {
		return "module " + e.ID + " not found"
	}
	return string(e.Module) + " " + e.ID + " not found"
}
