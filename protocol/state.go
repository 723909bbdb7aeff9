// Package protocol implements the wire format exchanged between the handheld
// controller and the receiver: the packed joystick/button state integer and
// the button descriptor buffer.
package protocol

// JoyState is the decoded joystick position.
type JoyState struct {
	// DirArrow is a coarse 8-way compass index (0..7).
	DirArrow int `json:"dirArrow"`
	// Strength is the stick magnitude (0..127).
	Strength int `json:"strength"`
	// Degrees is the fine-grained angle (0..511).
	Degrees int `json:"degrees"`
}

// Centered reports whether the stick is inside the deadzone.
func (j JoyState) Centered() bool {
	return j.Strength <= DeadzoneStrength
}

// WithDeadzone returns j with direction cleared when the stick is centered.
func (j JoyState) WithDeadzone() JoyState {
	if j.Centered() {
		j.DirArrow = 0
		j.Degrees = 0
	}
	return j
}

// DecodeRawState extracts the joystick fields and the button bitmask from a
// state packet without applying the deadzone. Mask bits at or above
// buttonCount are dropped since no button occupies those positions.
func DecodeRawState(packet uint32, buttonCount int) (JoyState, uint32) {
	joy := JoyState{
		DirArrow: int((packet >> arrowShift) & arrowMask),
		Strength: int((packet >> strengthShift) & strengthMask),
		Degrees:  int((packet >> degreesShift) & degreesMask),
	}
	mask := packet >> ButtonShift
	switch {
	case buttonCount <= 0:
		mask = 0
	case buttonCount < MaxButtons:
		mask &= (1 << buttonCount) - 1
	}
	return joy, mask
}

// DecodeState is DecodeRawState followed by the deadzone policy.
func DecodeState(packet uint32, buttonCount int) (JoyState, uint32) {
	joy, mask := DecodeRawState(packet, buttonCount)
	return joy.WithDeadzone(), mask
}

// EncodeState packs a joystick state and button mask into a state packet.
// Fields are truncated to their wire width; mask bits beyond MaxButtons are lost.
func EncodeState(joy JoyState, mask uint32) uint32 {
	var n uint32
	n |= (uint32(joy.DirArrow) & arrowMask) << arrowShift
	n |= (uint32(joy.Strength) & strengthMask) << strengthShift
	n |= (uint32(joy.Degrees) & degreesMask) << degreesShift
	n |= mask << ButtonShift
	return n
}
