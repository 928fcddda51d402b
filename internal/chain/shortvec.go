package chain

import "fmt"

// Compact-u16 length prefix: little-endian 7-bit groups with a continuation
// bit, at most three bytes.

const maxCompactU16 = 0xffff

func appendCompactU16(b []byte, v int) []byte {
	if v < 0 || v > maxCompactU16 {
		panic(fmt.Sprintf("compact-u16 value out of range: %d", v))
	}
	for {
		if v < 0x80 {
			return append(b, byte(v))
		}
		b = append(b, byte(v&0x7f)|0x80)
		v >>= 7
	}
}

func readCompactU16(b []byte) (value, n int, err error) {
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("compact-u16 truncated")
		}
		chunk := int(b[i] & 0x7f)
		value |= chunk << (7 * i)
		if b[i]&0x80 == 0 {
			if value > maxCompactU16 {
				return 0, 0, fmt.Errorf("compact-u16 value out of range: %d", value)
			}
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
