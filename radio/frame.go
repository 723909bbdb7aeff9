package radio

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Frame is one packet on the simulated radio link.
// Layout: Length(1) | Group(1) | Kind(1) | Serial(4) | Payload | CRC32(4) | Terminal(1)
// Length counts everything after the length byte. The CRC covers Group
// through Payload.
type Frame struct {
	Group   uint8
	Kind    Kind
	Serial  uint32
	Payload []byte
}

type Kind byte

const (
	KindNumber Kind = 1
	KindValue  Kind = 2
	KindBuffer Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindValue:
		return "value"
	case KindBuffer:
		return "buffer"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

const (
	lengthFieldSize = 1
	headerSize      = lengthFieldSize + 1 + 1 + 4
	crcSize         = 4
	terminalSize    = 1
	FrameTerminal   = 0x55

	// Name and buffer limits of the radio hardware.
	MaxNameLen     = 8
	MaxBufferLen   = 19
	MaxPayloadSize = MaxBufferLen
)

func EncodeFrame(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Payload))
	}
	total := headerSize + len(f.Payload) + crcSize + terminalSize
	data := make([]byte, total)
	data[0] = byte(total - lengthFieldSize)
	data[1] = f.Group
	data[2] = byte(f.Kind)
	binary.LittleEndian.PutUint32(data[3:7], f.Serial)
	copy(data[headerSize:], f.Payload)

	crcPos := headerSize + len(f.Payload)
	binary.LittleEndian.PutUint32(data[crcPos:], crc32.ChecksumIEEE(data[lengthFieldSize:crcPos]))
	data[total-1] = FrameTerminal
	return data, nil
}

func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < headerSize+crcSize+terminalSize {
		return Frame{}, fmt.Errorf("%w: short frame (%d bytes)", ErrInvalidFrame, len(data))
	}
	bodyLen := int(data[0])
	if bodyLen+lengthFieldSize != len(data) {
		return Frame{}, fmt.Errorf("%w: length %d, got %d bytes", ErrInvalidFrame, bodyLen, len(data))
	}
	if data[len(data)-1] != FrameTerminal {
		return Frame{}, fmt.Errorf("%w: bad terminal", ErrInvalidFrame)
	}
	crcPos := len(data) - terminalSize - crcSize
	if crcPos-headerSize > MaxPayloadSize {
		return Frame{}, fmt.Errorf("%w: payload too large", ErrInvalidFrame)
	}
	want := binary.LittleEndian.Uint32(data[crcPos:])
	if got := crc32.ChecksumIEEE(data[lengthFieldSize:crcPos]); got != want {
		return Frame{}, fmt.Errorf("%w: crc mismatch", ErrInvalidFrame)
	}

	f := Frame{
		Group:   data[1],
		Kind:    Kind(data[2]),
		Serial:  binary.LittleEndian.Uint32(data[3:7]),
		Payload: make([]byte, crcPos-headerSize),
	}
	copy(f.Payload, data[headerSize:crcPos])
	return f, nil
}

func numberPayload(n uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, n)
}

func parseNumber(p []byte) (uint32, error) {
	if len(p) != 4 {
		return 0, fmt.Errorf("%w: number payload of %d bytes", ErrInvalidFrame, len(p))
	}
	return binary.LittleEndian.Uint32(p), nil
}

func valuePayload(name string, v uint32) ([]byte, error) {
	if len(name) > MaxNameLen {
		return nil, fmt.Errorf("%w: name %q longer than %d bytes", ErrPayloadTooLarge, name, MaxNameLen)
	}
	return append(binary.LittleEndian.AppendUint32(nil, v), name...), nil
}

func parseValue(p []byte) (string, uint32, error) {
	if len(p) < 4 || len(p) > 4+MaxNameLen {
		return "", 0, fmt.Errorf("%w: value payload of %d bytes", ErrInvalidFrame, len(p))
	}
	return string(p[4:]), binary.LittleEndian.Uint32(p), nil
}
