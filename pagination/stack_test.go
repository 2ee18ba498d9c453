package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStackNavigation(t *testing.T) {
	s := NewStack()
	assert.Equal(t, "", s.Cursor())
	assert.False(t, s.HasPrev())

	assert.True(t, s.Next("975"))
	assert.True(t, s.Next("950"))
	assert.Equal(t, "950", s.Cursor())
	assert.Equal(t, 2, s.Depth())

	assert.True(t, s.Back())
	assert.Equal(t, "975", s.Cursor())

	assert.True(t, s.Back())
	assert.Equal(t, "", s.Cursor())
	assert.False(t, s.Back())

	assert.False(t, s.Next(""))
	assert.Equal(t, 0, s.Depth())
}

func TestStackSubscribers(t *testing.T) {
	s := NewStack()
	seen := []string{}
	unsubscribe := s.Subscribe(func(cursor string) {
		seen = append(seen, cursor)
	})

	s.Next("975")
	s.Next("950")
	s.Back()
	s.Reset()
	// no change of the current cursor, no notification
	s.Reset()
	s.Back()

	assert.Equal(t, []string{"975", "950", "975", ""}, seen)

	unsubscribe()
	s.Next("975")
	assert.Len(t, seen, 4)
}

func TestStackSubscriberMayReadStack(t *testing.T) {
	s := NewStack()
	var depth int
	s.Subscribe(func(cursor string) {
		depth = s.Depth()
	})

	s.Next("10")
	assert.Equal(t, 1, depth)
}

func TestStackRestoreNotifiesOnlyOnChange(t *testing.T) {
	s := NewStack("975")
	notified := 0
	s.Subscribe(func(cursor string) {
		notified++
	})

	s.Restore([]string{"990", "975"})
	assert.Equal(t, 0, notified)
	assert.Equal(t, []string{"990", "975"}, s.Cursors())

	s.Restore([]string{"990"})
	assert.Equal(t, 1, notified)
}

func TestStackEncoding(t *testing.T) {
	s := DecodeStack("975, 950,,")
	assert.Equal(t, []string{"975", "950"}, s.Cursors())
	assert.Equal(t, "975,950", s.Encode())
	assert.Equal(t, "975,950,925", s.EncodeWith("925"))
	assert.Equal(t, "975", s.EncodeBack())
	assert.Equal(t, "975,950", s.EncodeWith(""))

	empty := DecodeStack("")
	assert.Equal(t, "", empty.Cursor())
	assert.Equal(t, "", empty.EncodeBack())
}
