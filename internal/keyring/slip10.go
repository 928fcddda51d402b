package keyring

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
)

// SLIP-0010 key derivation for the ed25519 curve. The curve only defines
// hardened child keys, so every path component must carry the hardened bit.

var ErrPathNotHardened = errors.New("ed25519 derivation requires hardened path components")

const slip10MasterKey = "ed25519 seed"

func slip10Master(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte(slip10MasterKey))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func slip10Child(key, chainCode []byte, index uint32) (childKey, childChain []byte, err error) {
	if index < HardenedOffset {
		return nil, nil, fmt.Errorf("%w: component %d", ErrPathNotHardened, index)
	}
	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, key...)
	data = binary.BigEndian.AppendUint32(data, index)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:], nil
}

// deriveSlip10 walks the path and returns the final 32-byte secret, which
// feeds ed25519.NewKeyFromSeed. Intermediate keys are wiped as the walk
// advances.
func deriveSlip10(seed []byte, path Path) ([]byte, error) {
	key, chainCode := slip10Master(seed)
	for _, index := range path {
		childKey, childChain, err := slip10Child(key, chainCode, index)
		zeroBytes(key)
		zeroBytes(chainCode)
		if err != nil {
			return nil, err
		}
		key, chainCode = childKey, childChain
	}
	zeroBytes(chainCode)
	return key, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
