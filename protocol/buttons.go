package protocol

import "fmt"

// DecodeButtonKeys parses a button descriptor buffer.
// Layout:
//
//	0:    key count N (0-255)
//	1..N: one character code per key, in declared order
func DecodeButtonKeys(buf []byte) ([]string, error) {
	if len(buf) < 1 {
		return nil, fmt.Errorf("%w: empty button descriptor", ErrMalformedPacket)
	}
	count := int(buf[0])
	if len(buf) < 1+count {
		return nil, fmt.Errorf("%w: descriptor declares %d keys but carries %d", ErrMalformedPacket, count, len(buf)-1)
	}
	keys := make([]string, count)
	for i := 0; i < count; i++ {
		keys[i] = string(rune(buf[i+1]))
	}
	return keys, nil
}

// EncodeButtonKeys builds a button descriptor buffer from single-character keys.
func EncodeButtonKeys(keys []string) ([]byte, error) {
	if len(keys) > MaxDescriptorKeys {
		return nil, ErrTooManyKeys
	}
	buf := make([]byte, 1+len(keys))
	buf[0] = byte(len(keys))
	for i, k := range keys {
		r := []rune(k)
		if len(r) != 1 || r[0] > 0xff {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
		buf[i+1] = byte(r[0])
	}
	return buf, nil
}
