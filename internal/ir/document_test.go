package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentIsSkeleton(t *testing.T) {
	d := NewDocument()

	_, ok := d.StatusValue()
	assert.False(t, ok)
	assert.Empty(t, d.State)
	assert.Equal(t, 0, d.Events.Len())
	assert.Equal(t, 0, d.Errors.Len())
}

func TestDocumentCloneIsDeep(t *testing.T) {
	d := NewDocument()
	status := "active"
	d.Status = &status
	d.State["count"] = IRInt(1)
	d.Events.Append("e1", IRObject{"transition": IRString("Create")})
	d.Errors.Append("e1", IRObject{})

	c := d.Clone()
	*c.Status = "mutated"
	c.State["count"] = IRInt(2)
	c.Events.Append("e2", IRObject{})
	rec, _ := c.Events.Get("e1")
	rec["transition"] = IRString("Mutated")

	assert.Equal(t, "active", *d.Status)
	assert.Equal(t, IRInt(1), d.State["count"])
	assert.Equal(t, 1, d.Events.Len())
	orig, _ := d.Events.Get("e1")
	assert.Equal(t, "Create", orig.StringAt("transition"))
}

func TestDocumentCheckPairs(t *testing.T) {
	d := NewDocument()
	d.Events.Append("e1", IRObject{})
	d.Errors.Append("e1", IRObject{})
	d.Events.Append("e3", IRObject{})
	d.Errors.Append("e2", IRObject{})

	assert.Equal(t, []PairIssue{
		{EventID: "e2", Missing: KeyEvents},
		{EventID: "e3", Missing: KeyErrors},
	}, d.CheckPairs())
}

func TestEventDataObject(t *testing.T) {
	created := time.Date(2018, 1, 1, 13, 22, 0, 0, time.UTC)
	obj := EventData{
		Transition:    "Create",
		Args:          IRArray{IRInt(1)},
		Changes:       IRObject{"count": IRInt(1)},
		CreatedAt:     created,
		UpdatedAt:     created.Add(time.Second),
		AttemptsCount: 2,
	}.Object()

	assert.Equal(t, IRObject{
		"transition":     IRString("Create"),
		"args":           IRArray{IRInt(1)},
		"changes":        IRObject{"count": IRInt(1)},
		"created_at":     IRString("2018-01-01T13:22:00Z"),
		"updated_at":     IRString("2018-01-01T13:22:01Z"),
		"attempts_count": IRInt(2),
	}, obj)
}

func TestEventDataObjectDefaults(t *testing.T) {
	obj := EventData{Transition: "Noop"}.Object()

	assert.Equal(t, IRObject{}, obj[EventArgs])
	assert.Equal(t, IRObject{}, obj[EventChanges])
}

func TestErrorDataAndFoundEvent(t *testing.T) {
	created := time.Date(2018, 1, 1, 13, 22, 0, 0, time.FixedZone("X", 3600))
	errRec := ErrorData{Kind: "Timeout", Message: "upstream timed out", CreatedAt: created}.Object()
	require.Equal(t, IRString("2018-01-01T12:22:00Z"), errRec[ErrorCreatedAt])

	found := FoundEvent{
		ID:    "e2",
		Data:  IRObject{EventTransition: IRString("Ship")},
		Error: errRec,
	}
	assert.True(t, found.Failed())
	assert.Equal(t, "Ship", found.Transition())
	assert.Equal(t, "Timeout", found.ErrorKind())
	assert.Equal(t, "upstream timed out", found.ErrorMessage())

	clean := FoundEvent{ID: "e1", Data: IRObject{}, Error: IRObject{}}
	assert.False(t, clean.Failed())
	assert.Equal(t, "", clean.ErrorKind())
}
