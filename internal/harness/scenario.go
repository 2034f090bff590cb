package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultField is the subject field used when a scenario doesn't name one.
const DefaultField = "pipeline"

// Scenario is a sequence of store operations followed by assertions on the
// resulting document.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Field is the subject field the store binds to.
	Field string `yaml:"field,omitempty"`

	// Initial is the raw value stored in the field before Bind.
	Initial string `yaml:"initial,omitempty"`

	// BindError, when set, is the error Bind must fail with. Steps and
	// assertions are skipped.
	BindError string `yaml:"bind_error,omitempty"`

	// Steps run in order against the bound store.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation. Exactly one of Commit, Fire, Reset, Reload and
// FailSaves is set.
type Step struct {
	Commit *CommitStep `yaml:"commit,omitempty"`
	Fire   *FireStep   `yaml:"fire,omitempty"`
	Reset  bool        `yaml:"reset,omitempty"`
	Reload bool        `yaml:"reload,omitempty"`

	// FailSaves makes every following save fail with this message.
	// An empty string restores saving.
	FailSaves *string `yaml:"fail_saves,omitempty"`

	// ExpectError is the error the step must fail with; empty means the
	// step must succeed. See ErrorNames.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// CommitStep commits an outcome as given.
type CommitStep struct {
	EventID     string         `yaml:"event_id"`
	Success     bool           `yaml:"success"`
	Destination string         `yaml:"destination,omitempty"`
	Changes     map[string]any `yaml:"changes,omitempty"`
	Error       map[string]any `yaml:"error,omitempty"`
	Data        map[string]any `yaml:"data,omitempty"`
}

// FireStep runs a transition through the engine. The transition succeeds
// with Destination and Changes unless Fail names an error kind.
type FireStep struct {
	Transition  string         `yaml:"transition"`
	EventID     string         `yaml:"event_id"`
	Args        any            `yaml:"args,omitempty"`
	Attempt     int64          `yaml:"attempt,omitempty"`
	Destination string         `yaml:"destination,omitempty"`
	Changes     map[string]any `yaml:"changes,omitempty"`
	Fail        string         `yaml:"fail,omitempty"`
	Message     string         `yaml:"message,omitempty"`
}

// Assertion checks the document after the last step.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Value is the expected status (status). Nil expects a null status.
	Value *string `yaml:"value,omitempty"`

	// Expect is the expected state subset (state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// IDs is the expected events log order (events).
	IDs []string `yaml:"ids,omitempty"`

	// Event is the event id (error_kind, event_absent).
	Event string `yaml:"event,omitempty"`

	// Kind is the expected error kind (error_kind).
	Kind string `yaml:"kind,omitempty"`

	// Tainted is the expected tainted flag (tainted).
	Tainted bool `yaml:"tainted,omitempty"`
}

// Assertion type constants.
const (
	AssertStatus      = "status"
	AssertState       = "state"
	AssertEvents      = "events"
	AssertErrorKind   = "error_kind"
	AssertEventAbsent = "event_absent"
	AssertTainted     = "tainted"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) field() string {
	if s.Field == "" {
		return DefaultField
	}
	return s.Field
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.BindError != "" {
		if _, ok := ErrorNames[s.BindError]; !ok {
			return fmt.Errorf("bind_error: unknown error %q", s.BindError)
		}
		if len(s.Steps) > 0 || len(s.Assertions) > 0 {
			return fmt.Errorf("bind_error scenarios cannot have steps or assertions")
		}
		return nil
	}

	if len(s.Steps) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("steps or assertions are required")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	set := 0
	if step.Commit != nil {
		set++
	}
	if step.Fire != nil {
		set++
		if step.Fire.Transition == "" {
			return fmt.Errorf("fire: transition is required")
		}
		if step.Fire.EventID == "" {
			return fmt.Errorf("fire: event_id is required")
		}
	}
	if step.Reset {
		set++
	}
	if step.Reload {
		set++
	}
	if step.FailSaves != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of commit, fire, reset, reload, fail_saves is required (got %d)", set)
	}

	if step.ExpectError != "" {
		if _, ok := ErrorNames[step.ExpectError]; !ok {
			return fmt.Errorf("expect_error: unknown error %q", step.ExpectError)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertStatus, AssertTainted:
	case AssertState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("expect is required for state")
		}
	case AssertEvents:
		if a.IDs == nil {
			return fmt.Errorf("ids is required for events (use [] for none)")
		}
	case AssertErrorKind, AssertEventAbsent:
		if a.Event == "" {
			return fmt.Errorf("event is required for %s", a.Type)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
