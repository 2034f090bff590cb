package harness

import (
	"fmt"
	"reflect"
	"slices"
	"sort"

	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against es and returns the
// failure messages, in assertion order.
func EvaluateAssertions(es *store.EventStore, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluate(es, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluate(es *store.EventStore, a Assertion) error {
	switch a.Type {
	case AssertStatus:
		return assertStatus(es, a)
	case AssertState:
		return assertState(es, a)
	case AssertEvents:
		return assertEvents(es, a)
	case AssertErrorKind:
		return assertErrorKind(es, a)
	case AssertEventAbsent:
		if _, ok := es.FindEvent(a.Event); ok {
			return &AssertionError{Type: a.Type, Expected: "no event " + a.Event, Actual: "event found"}
		}
		return nil
	case AssertTainted:
		if es.Tainted() != a.Tainted {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("tainted=%t", a.Tainted),
				Actual:   fmt.Sprintf("tainted=%t", es.Tainted()),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertStatus(es *store.EventStore, a Assertion) error {
	status, ok := es.Status()
	actual := "null"
	if ok {
		actual = fmt.Sprintf("%q", status)
	}
	expected := "null"
	if a.Value != nil {
		expected = fmt.Sprintf("%q", *a.Value)
	}
	if actual != expected {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual}
	}
	return nil
}

// assertState checks that every expected key is present with an equal value.
// Nested objects must match exactly.
func assertState(es *store.EventStore, a Assertion) error {
	expected, err := ir.ObjectFromMap(a.Expect)
	if err != nil {
		return fmt.Errorf("state expect: %w", err)
	}
	state := es.State()

	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		got, ok := state[k]
		if !ok {
			return &AssertionError{Type: a.Type, Expected: "key " + k, Actual: "missing"}
		}
		if !reflect.DeepEqual(got, expected[k]) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s=%v", k, ir.ToAny(expected[k])),
				Actual:   fmt.Sprintf("%s=%v", k, ir.ToAny(got)),
			}
		}
	}
	return nil
}

func assertEvents(es *store.EventStore, a Assertion) error {
	ids := es.Events()
	if !slices.Equal(ids, a.IDs) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", a.IDs),
			Actual:   fmt.Sprintf("%v", ids),
		}
	}
	return nil
}

func assertErrorKind(es *store.EventStore, a Assertion) error {
	found, ok := es.FindEvent(a.Event)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: "event " + a.Event, Actual: "not found"}
	}
	if kind := found.ErrorKind(); kind != a.Kind {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s kind %q", a.Event, a.Kind),
			Actual:   fmt.Sprintf("%q", kind),
		}
	}
	return nil
}
