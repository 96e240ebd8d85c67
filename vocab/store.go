package vocab

import (
	"strings"
	"sync"
)

// Store holds the ordered vocabulary items for a session.
type Store struct {
	mu      sync.RWMutex
	items   []Item
	raw     string
	version uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// ParseText splits comma-separated input into trimmed, non-empty words.
func ParseText(raw string) []string {
	parts := strings.Split(raw, ",")
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		words = append(words, part)
	}
	return words
}

// SetFromText replaces every text entry with the words parsed from raw.
// Image entries are kept in their current relative order after the text.
func (s *Store) SetFromText(raw string) int {
	words := ParseText(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Item, 0, len(words)+len(s.items))
	for _, word := range words {
		next = append(next, NewTextItem(word))
	}
	for _, item := range s.items {
		if item.IsImage() {
			next = append(next, item)
		}
	}
	s.items = next
	s.raw = raw
	s.version++
	return len(words)
}

// AppendImage appends an image entry.
func (s *Store) AppendImage(img Image) {
	s.mu.Lock()
	s.items = append(s.items, NewImageItem(img))
	s.version++
	s.mu.Unlock()
}

// RemoveAt removes the item at a store position. Out-of-range is a no-op.
func (s *Store) RemoveAt(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return false
	}
	next := make([]Item, 0, len(s.items)-1)
	next = append(next, s.items[:index]...)
	next = append(next, s.items[index+1:]...)
	s.items = next
	s.version++
	return true
}

// Items returns a copy of the current items.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// RawText returns the last text input.
func (s *Store) RawText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// Version increments on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
