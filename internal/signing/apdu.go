package signing

import (
	"encoding/binary"
	"fmt"

	"sable-wallet/walletd/internal/keyring"
)

// APDU protocol spoken with the signing device (directly or through a
// bridge). Requests are [CLA, INS, P1, P2, LC, data...]; responses end in a
// two-byte status word.
const (
	claWallet = 0xE0

	insAppVersion  = 0x01
	insGetPubkey   = 0x05
	insSignMessage = 0x06

	// P1 for sign-message chunks.
	p1First = 0x00
	p1More  = 0x01
	// P2 flag set while further chunks follow.
	p2HasMore = 0x80

	swOK           = 0x9000
	swUserRejected = 0x6985
	swNotAllowed   = 0x6982
	swBadIns       = 0x6d00
)

const maxChunkSize = 255

type apdu struct {
	ins  byte
	p1   byte
	p2   byte
	data []byte
}

func (a apdu) encode() []byte {
	if len(a.data) > maxChunkSize {
		panic(fmt.Sprintf("apdu payload too large: %d", len(a.data)))
	}
	out := make([]byte, 0, 5+len(a.data))
	out = append(out, claWallet, a.ins, a.p1, a.p2, byte(len(a.data)))
	return append(out, a.data...)
}

// parseResponse splits a device response into payload and status word.
func parseResponse(resp []byte) ([]byte, uint16, error) {
	if len(resp) < 2 {
		return nil, 0, fmt.Errorf("%w: response too short (%d bytes)", ErrDeviceProtocol, len(resp))
	}
	sw := binary.BigEndian.Uint16(resp[len(resp)-2:])
	return resp[:len(resp)-2], sw, nil
}

func statusError(sw uint16) error {
	switch sw {
	case swOK:
		return nil
	case swUserRejected:
		return ErrUserRejected
	case swNotAllowed:
		return fmt.Errorf("%w: operation not allowed (0x%04x)", ErrDeviceProtocol, sw)
	default:
		return fmt.Errorf("%w: status 0x%04x", ErrDeviceProtocol, sw)
	}
}

// serializePath encodes a derivation path as a component count followed by
// each component as big-endian uint32.
func serializePath(path keyring.Path) []byte {
	out := make([]byte, 0, 1+4*len(path))
	out = append(out, byte(len(path)))
	for _, component := range path {
		out = binary.BigEndian.AppendUint32(out, component)
	}
	return out
}

func chunkPayload(payload []byte, size int) [][]byte {
	var chunks [][]byte
	for len(payload) > size {
		chunks = append(chunks, payload[:size])
		payload = payload[size:]
	}
	return append(chunks, payload)
}
