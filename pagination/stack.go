package pagination

import (
	"strings"
	"sync"
)

// Stack tracks the cursors of all visited pages. The top of the stack is the
// cursor of the currently displayed page; an empty stack is the first page.
// The stack is the only writer of the current cursor, views observe it via Subscribe.
type Stack struct {
	mutex       sync.Mutex
	cursors     []string
	subscribers map[uint64]func(cursor string)
	nextSubId   uint64
}

func NewStack(cursors ...string) *Stack {
	s := &Stack{
		subscribers: map[uint64]func(cursor string){},
	}
	s.cursors = filterCursors(cursors)
	return s
}

// Cursor returns the cursor of the current page, or an empty string on the first page.
func (s *Stack) Cursor() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cursorLocked()
}

func (s *Stack) cursorLocked() string {
	if len(s.cursors) == 0 {
		return ""
	}
	return s.cursors[len(s.cursors)-1]
}

// Depth returns the number of pages pushed on top of the first page.
func (s *Stack) Depth() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.cursors)
}

func (s *Stack) HasPrev() bool {
	return s.Depth() > 0
}

// Cursors returns a copy of all visited cursors, oldest first.
func (s *Stack) Cursors() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cursors := make([]string, len(s.cursors))
	copy(cursors, s.cursors)
	return cursors
}

// Next pushes the cursor of the following page. Empty cursors are ignored.
func (s *Stack) Next(cursor string) bool {
	if cursor == "" {
		return false
	}
	s.update(func() {
		s.cursors = append(s.cursors, cursor)
	})
	return true
}

// Back pops the current cursor and returns false when already on the first page.
func (s *Stack) Back() bool {
	moved := false
	s.update(func() {
		if len(s.cursors) > 0 {
			s.cursors = s.cursors[:len(s.cursors)-1]
			moved = true
		}
	})
	return moved
}

func (s *Stack) Reset() {
	s.update(func() {
		s.cursors = nil
	})
}

func (s *Stack) Restore(cursors []string) {
	s.update(func() {
		s.cursors = filterCursors(cursors)
	})
}

// Subscribe registers fn to be called with the new cursor after every change of
// the current cursor. The returned function removes the subscription.
func (s *Stack) Subscribe(fn func(cursor string)) func() {
	s.mutex.Lock()
	subId := s.nextSubId
	s.nextSubId++
	s.subscribers[subId] = fn
	s.mutex.Unlock()

	return func() {
		s.mutex.Lock()
		delete(s.subscribers, subId)
		s.mutex.Unlock()
	}
}

func (s *Stack) update(modify func()) {
	s.mutex.Lock()
	oldCursor := s.cursorLocked()
	modify()
	newCursor := s.cursorLocked()

	var subscribers []func(cursor string)
	if oldCursor != newCursor {
		subscribers = make([]func(cursor string), 0, len(s.subscribers))
		for _, fn := range s.subscribers {
			subscribers = append(subscribers, fn)
		}
	}
	s.mutex.Unlock()

	for _, fn := range subscribers {
		fn(newCursor)
	}
}

// Encode serializes the stack for stateless transports (e.g. url query parameters).
func (s *Stack) Encode() string {
	return strings.Join(s.Cursors(), ",")
}

// EncodeWith serializes the stack with an additional cursor on top, without modifying it.
func (s *Stack) EncodeWith(cursor string) string {
	return strings.Join(filterCursors(append(s.Cursors(), cursor)), ",")
}

// EncodeBack serializes the stack without its top cursor.
func (s *Stack) EncodeBack() string {
	cursors := s.Cursors()
	if len(cursors) > 0 {
		cursors = cursors[:len(cursors)-1]
	}
	return strings.Join(cursors, ",")
}

func DecodeStack(encoded string) *Stack {
	if encoded == "" {
		return NewStack()
	}
	return NewStack(strings.Split(encoded, ",")...)
}

func filterCursors(cursors []string) []string {
	filtered := make([]string, 0, len(cursors))
	for _, cursor := range cursors {
		cursor = strings.TrimSpace(cursor)
		if cursor != "" {
			filtered = append(filtered, cursor)
		}
	}
	return filtered
}
