package ir

import "sort"

// Document keys, in the order they are written.
const (
	KeyStatus = "status"
	KeyState  = "state"
	KeyEvents = "events"
	KeyErrors = "errors"
)

// DocumentKeys is the exact key set of a persisted document.
var DocumentKeys = []string{KeyStatus, KeyState, KeyEvents, KeyErrors}

// Document is the four-key record kept for one subject/field pair.
//
// Status is nil until the first successful transition. Events and Errors
// share their key set: every commit writes both.
type Document struct {
	Status *string
	State  IRObject
	Events *Log[IRObject]
	Errors *Log[IRObject]
}

// NewDocument returns the empty skeleton: null status, empty state and logs.
func NewDocument() Document {
	return Document{
		State:  IRObject{},
		Events: NewLog[IRObject](),
		Errors: NewLog[IRObject](),
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := Document{
		State:  d.State.Clone(),
		Events: NewLog[IRObject](),
		Errors: NewLog[IRObject](),
	}
	if d.Status != nil {
		s := *d.Status
		out.Status = &s
	}
	for id, rec := range d.Events.All() {
		out.Events.Append(id, rec.Clone())
	}
	for id, rec := range d.Errors.All() {
		out.Errors.Append(id, rec.Clone())
	}
	return out
}

// StatusValue returns the status and whether it is set.
func (d Document) StatusValue() (string, bool) {
	if d.Status == nil {
		return "", false
	}
	return *d.Status, true
}

// PairIssue describes an event id present in only one of the two logs.
type PairIssue struct {
	EventID string `json:"event_id" yaml:"event_id"`
	Missing string `json:"missing" yaml:"missing"` // KeyEvents or KeyErrors
}

// CheckPairs reports ids that break the events/errors pairing, sorted by id.
// Documents written through the store never produce issues; this is meant
// for inspecting blobs that were edited or produced elsewhere.
func (d Document) CheckPairs() []PairIssue {
	var issues []PairIssue
	for id := range d.Events.All() {
		if !d.Errors.Has(id) {
			issues = append(issues, PairIssue{EventID: id, Missing: KeyErrors})
		}
	}
	for id := range d.Errors.All() {
		if !d.Events.Has(id) {
			issues = append(issues, PairIssue{EventID: id, Missing: KeyEvents})
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].EventID < issues[j].EventID })
	return issues
}
