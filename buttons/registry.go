// Package buttons holds the ordered set of buttons announced by the paired
// controller. A button's position is its bit index in the state packet mask.
package buttons

// Button is a single announced button and its last known state.
type Button struct {
	Key     string `json:"key"`
	Pressed bool   `json:"pressed"`
}

// Registry is the ordered button list. It is not safe for concurrent use;
// the receiver serializes access.
type Registry struct {
	buttons []Button
}

// New returns a registry holding keys, all released.
func New(keys ...string) *Registry {
	r := &Registry{}
	r.Reconcile(keys)
	return r
}

// Reconcile replaces the button list with keys in the given order. Every
// button starts released, including keys that were known before, because
// their positions may have moved.
func (r *Registry) Reconcile(keys []string) {
	next := make([]Button, len(keys))
	for i, k := range keys {
		next[i] = Button{Key: k}
	}
	r.buttons = next
}

// ApplyBitmask sets button i pressed when bit i of mask is set.
func (r *Registry) ApplyBitmask(mask uint32) {
	for i := range r.buttons {
		if i >= 32 {
			r.buttons[i].Pressed = false
			continue
		}
		r.buttons[i].Pressed = (mask>>uint(i))&1 != 0
	}
}

// IsPressed reports whether key is pressed. Unknown keys read as released.
// With duplicate keys the first position wins.
func (r *Registry) IsPressed(key string) bool {
	for _, b := range r.buttons {
		if b.Key == key {
			return b.Pressed
		}
	}
	return false
}

// FirstPressed returns the first pressed key in registry order.
func (r *Registry) FirstPressed() (string, bool) {
	for _, b := range r.buttons {
		if b.Pressed {
			return b.Key, true
		}
	}
	return "", false
}

// Len is the number of registered buttons.
func (r *Registry) Len() int { return len(r.buttons) }

// Keys returns the keys in order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.buttons))
	for i, b := range r.buttons {
		keys[i] = b.Key
	}
	return keys
}

// Snapshot returns a copy of the button list.
func (r *Registry) Snapshot() []Button {
	out := make([]Button, len(r.buttons))
	copy(out, r.buttons)
	return out
}
