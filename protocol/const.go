package protocol

// State packet layout (unsigned, lowest bit first):
//
//	bits  0-2:  direction arrow (0 = right, 2 = up, 4 = left, 6 = down)
//	bits  3-9:  strength
//	bits 10-18: degrees
//	bits 19+:   button bitmask, bit i = button index i
const (
	arrowShift    = 0
	strengthShift = 3
	degreesShift  = 10
	ButtonShift   = 19

	arrowMask    = 0b111
	strengthMask = 0b1111111
	degreesMask  = 0b111111111

	MaxArrow    = arrowMask
	MaxStrength = strengthMask
	MaxDegrees  = degreesMask

	// MaxButtons is the number of button bits a 32-bit state packet can carry.
	MaxButtons = 32 - ButtonShift

	// MaxDescriptorKeys is the largest key count a button descriptor can declare.
	MaxDescriptorKeys = 255
)

// DeadzoneStrength is the strength at or below which the joystick is centered.
const DeadzoneStrength = 5

// NeutralKey is the feedback key used when nothing is pressed and the stick is centered.
const NeutralKey = "-"

// Identity/value packet names.
const (
	NameSerial  = "serial"
	NamePairing = "pairing"
)

// Values carried with NamePairing.
const (
	PairingProbe uint32 = 0
	PairingAck   uint32 = 1
)
