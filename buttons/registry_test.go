package buttons_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcbrc/rcrx/buttons"
)

func TestApplyBitmaskPositional(t *testing.T) {
	r := buttons.New()
	r.Reconcile([]string{"A", "B"})
	r.ApplyBitmask(0b10)

	assert.False(t, r.IsPressed("A"))
	assert.True(t, r.IsPressed("B"))
}

func TestIsPressedUnknownKey(t *testing.T) {
	empty := buttons.New()
	assert.False(t, empty.IsPressed("Z"))

	r := buttons.New("A", "B")
	r.ApplyBitmask(0b11)
	assert.False(t, r.IsPressed("Z"))
}

func TestApplyBitmaskEmptyRegistry(t *testing.T) {
	r := buttons.New()
	r.ApplyBitmask(0xffffffff)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Snapshot())
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		initial  []string
		mask     uint32
		next     []string
		expected []buttons.Button
	}{
		{
			name:    "replacement resets values",
			initial: []string{"A", "B"},
			mask:    0b11,
			next:    []string{"A", "B"},
			expected: []buttons.Button{
				{Key: "A"},
				{Key: "B"},
			},
		},
		{
			name:    "reorder keeps given order",
			initial: []string{"A", "B", "C"},
			mask:    0b001,
			next:    []string{"C", "A"},
			expected: []buttons.Button{
				{Key: "C"},
				{Key: "A"},
			},
		},
		{
			name:     "missing keys are dropped",
			initial:  []string{"A", "B"},
			mask:     0b10,
			next:     []string{"P"},
			expected: []buttons.Button{{Key: "P"}},
		},
		{
			name:     "empty replacement",
			initial:  []string{"A"},
			mask:     0b1,
			next:     []string{},
			expected: []buttons.Button{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buttons.New(tt.initial...)
			r.ApplyBitmask(tt.mask)
			r.Reconcile(tt.next)
			assert.Equal(t, tt.expected, r.Snapshot())
			assert.Equal(t, tt.next, r.Keys())
		})
	}
}

func TestFirstPressedFollowsOrder(t *testing.T) {
	r := buttons.New("C", "A", "B")
	r.ApplyBitmask(0b110)

	key, ok := r.FirstPressed()
	assert.True(t, ok)
	assert.Equal(t, "A", key)

	r.ApplyBitmask(0)
	_, ok = r.FirstPressed()
	assert.False(t, ok)
}

func TestSnapshotIsCopy(t *testing.T) {
	r := buttons.New("A")
	snap := r.Snapshot()
	snap[0].Pressed = true
	assert.False(t, r.IsPressed("A"))
}
