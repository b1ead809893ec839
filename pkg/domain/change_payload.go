package domain

import "encoding/json"

// ChangePayload carries an immutable copy of an instance's data JSON on one
// side of a recorded change. The zero value is undefined, marking a side that
// does not exist: creates have no before, deletes no after.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload clones raw into a defined payload, so later mutation of
// the source slice cannot leak into subscribers holding the payload.
func NewChangePayload(raw json.RawMessage) ChangePayload {
	p := ChangePayload{defined: true}
	if len(raw) > 0 {
		p.raw = append(json.RawMessage(nil), raw...)
	}
	return p
}

// Defined reports whether this side of the change exists.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// IsEmpty reports whether the payload carries no bytes.
func (p ChangePayload) IsEmpty() bool {
	return len(p.raw) == 0
}

// Raw returns a fresh copy of the payload bytes, nil when undefined or empty.
func (p ChangePayload) Raw() json.RawMessage {
	if len(p.raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), p.raw...)
}
