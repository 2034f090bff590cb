package cli

import (
	"github.com/roach88/dpstore/internal/ir"
)

// EventView is the printable form of one committed attempt.
type EventView struct {
	ID           string         `json:"id" yaml:"id"`
	Transition   string         `json:"transition,omitempty" yaml:"transition,omitempty"`
	Failed       bool           `json:"failed" yaml:"failed"`
	ErrorKind    string         `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Data         map[string]any `json:"data" yaml:"data"`
	Error        map[string]any `json:"error" yaml:"error"`
}

// DocumentView is the printable form of a whole document. Events keep
// commit order.
type DocumentView struct {
	Subject string         `json:"subject" yaml:"subject"`
	Field   string         `json:"field" yaml:"field"`
	Status  *string        `json:"status" yaml:"status"`
	State   map[string]any `json:"state" yaml:"state"`
	Events  []EventView    `json:"events" yaml:"events"`
}

// StatusView summarizes a document without its logs.
type StatusView struct {
	Subject string         `json:"subject" yaml:"subject"`
	Field   string         `json:"field" yaml:"field"`
	Status  *string        `json:"status" yaml:"status"`
	State   map[string]any `json:"state" yaml:"state"`
	Events  int            `json:"events" yaml:"events"`
}

func newEventView(found ir.FoundEvent) EventView {
	return EventView{
		ID:           found.ID,
		Transition:   found.Transition(),
		Failed:       found.Failed(),
		ErrorKind:    found.ErrorKind(),
		ErrorMessage: found.ErrorMessage(),
		Data:         objectAny(found.Data),
		Error:        objectAny(found.Error),
	}
}

func newDocumentView(subject, field string, doc ir.Document) DocumentView {
	view := DocumentView{
		Subject: subject,
		Field:   field,
		Status:  doc.Status,
		State:   objectAny(doc.State),
		Events:  make([]EventView, 0, doc.Events.Len()),
	}
	for id, data := range doc.Events.All() {
		errRec, _ := doc.Errors.Get(id)
		view.Events = append(view.Events, newEventView(ir.FoundEvent{ID: id, Data: data, Error: errRec}))
	}
	return view
}

func newStatusView(subject, field string, doc ir.Document) StatusView {
	return StatusView{
		Subject: subject,
		Field:   field,
		Status:  doc.Status,
		State:   objectAny(doc.State),
		Events:  doc.Events.Len(),
	}
}

func objectAny(obj ir.IRObject) map[string]any {
	if obj == nil {
		return map[string]any{}
	}
	return ir.ToAny(obj).(map[string]any)
}

// canonical renders obj as canonical JSON for text output.
func canonical(obj ir.IRObject) string {
	if obj == nil {
		obj = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "<unencodable>"
	}
	return string(data)
}

func statusText(status *string) string {
	if status == nil {
		return "(none)"
	}
	return *status
}
