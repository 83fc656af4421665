package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldName returns the case-folded lookup key of a name.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Snapshot is the in-memory name lookup of one import run.
// It is owned by that run only and is not safe for concurrent use.
type Snapshot struct {
	items   map[string]Item
	masters map[string]Item
}

// NewSnapshot indexes items by folded name. Later duplicates win.
func NewSnapshot(items []Item) *Snapshot {
	s := &Snapshot{
		items:   make(map[string]Item, len(items)),
		masters: make(map[string]Item),
	}
	for _, item := range items {
		s.Put(item)
	}
	return s
}

// Lookup finds an item by name, ignoring case.
func (s *Snapshot) Lookup(name string) (Item, bool) {
	item, ok := s.items[FoldName(name)]
	return item, ok
}

// Master finds a master item by name, ignoring case.
func (s *Snapshot) Master(name string) (Item, bool) {
	item, ok := s.masters[FoldName(name)]
	return item, ok
}

// Put records an item, replacing any entry with the same folded name.
func (s *Snapshot) Put(item Item) {
	key := FoldName(item.Name)
	s.items[key] = item
	if item.Kind == KindMaster {
		s.masters[key] = item
	} else {
		delete(s.masters, key)
	}
}

// Len returns the number of indexed items.
func (s *Snapshot) Len() int {
	return len(s.items)
}
