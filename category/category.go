// Package category implements the category tree: an additive-only forest
// rooted at id 0, keyed by category id, with effective visibility
// resolved by walking the parent chain up to an inactive ancestor or the
// root.
package category

import (
	"sync"

	"github.com/tes-go/tes/messages"
)

// Info describes one category: its declared parent, display name, the
// default active state sent by the server, and the currently effective
// per-category active flag (which a viewer may toggle locally).
type Info struct {
	ID            uint16
	ParentID      uint16
	Name          string
	DefaultActive bool
	Active        bool
}

// Tree is the thread-safe category registry a connection or handler
// maintains. The zero value is ready to use.
type Tree struct {
	mu         sync.Mutex
	categories map[uint16]Info
}

// Update inserts or replaces a category record. Categories are additive
// only: a later message for the same id simply redefines it, it is never
// removed, matching the stream's append-only semantics.
func (t *Tree) Update(info Info) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.categories == nil {
		t.categories = make(map[uint16]Info)
	}
	t.categories[info.ID] = info
}

// SetActive toggles a category's own active flag. Returns false if the
// category is unknown.
func (t *Tree) SetActive(id uint16, active bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.categories[id]
	if !ok {
		return false
	}
	info.Active = active
	t.categories[id] = info
	return true
}

// Lookup returns the stored record for id, if any.
func (t *Tree) Lookup(id uint16) (Info, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.categories[id]
	return info, ok
}

// IsActive reports whether id is effectively visible: true only if id and
// every ancestor up to (and including) the root is active. An id with no
// matching record is treated as active (nothing suppresses it). A cycle
// in the parent chain is broken by tracking visited ids rather than
// looping forever; a revisit is treated as not active.
func (t *Tree) IsActive(id uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	visited := make(map[uint16]bool)
	current := id
	for {
		info, ok := t.categories[current]
		if !ok {
			return true
		}
		if !info.Active {
			return false
		}
		if current == 0 {
			return true
		}
		if visited[current] {
			return false
		}
		visited[current] = true
		current = info.ParentID
	}
}

// Reset clears every category record.
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.categories = nil
}

// All returns a snapshot of every category record, in no particular
// order.
func (t *Tree) All() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Info, 0, len(t.categories))
	for _, info := range t.categories {
		out = append(out, info)
	}
	return out
}

// ToMessage converts info to its wire record.
func (info Info) ToMessage() messages.CategoryName {
	var defaultActive uint16
	if info.DefaultActive {
		defaultActive = 1
	}
	return messages.CategoryName{
		CategoryID:    info.ID,
		ParentID:      info.ParentID,
		DefaultActive: defaultActive,
		Name:          info.Name,
	}
}

// FromMessage converts a decoded wire record into an Info, seeding Active
// from DefaultActive.
func FromMessage(msg messages.CategoryName) Info {
	active := msg.DefaultActive != 0
	return Info{
		ID:            msg.CategoryID,
		ParentID:      msg.ParentID,
		Name:          msg.Name,
		DefaultActive: active,
		Active:        active,
	}
}
