package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogKeepsInsertionOrder(t *testing.T) {
	l := NewLog[int]()
	for i, id := range []string{"z", "a", "m"} {
		assert.True(t, l.Append(id, i))
	}

	assert.Equal(t, []string{"z", "a", "m"}, l.IDs())

	var seen []string
	for id := range l.All() {
		seen = append(seen, id)
	}
	assert.Equal(t, []string{"z", "a", "m"}, seen)
}

func TestLogAppendNeverOverwrites(t *testing.T) {
	l := NewLog[string]()
	assert.True(t, l.Append("e1", "first"))
	assert.False(t, l.Append("e1", "second"))

	v, ok := l.Get("e1")
	assert.True(t, ok)
	assert.Equal(t, "first", v)
	assert.Equal(t, 1, l.Len())
}

func TestLogZeroValueAndNil(t *testing.T) {
	var nilLog *Log[int]
	assert.Equal(t, 0, nilLog.Len())
	assert.False(t, nilLog.Has("x"))
	assert.Nil(t, nilLog.IDs())
	for range nilLog.All() {
		t.Fatal("nil log must not yield")
	}

	var l Log[int]
	assert.True(t, l.Append("x", 1))
	assert.True(t, l.Has("x"))
}

func TestLogIDsIsACopy(t *testing.T) {
	l := NewLog[int]()
	l.Append("a", 1)

	ids := l.IDs()
	ids[0] = "mutated"

	assert.Equal(t, []string{"a"}, l.IDs())
}
