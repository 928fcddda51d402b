package chain

import (
	"encoding/binary"
	"fmt"
)

// Binary layouts of the token program's account and mint state. Optional
// fields use a 4-byte little-endian presence tag followed by the value.
const (
	TokenAccountSize = 165
	MintSize         = 82
)

const (
	TokenStateUninitialized uint8 = 0
	TokenStateInitialized   uint8 = 1
	TokenStateFrozen        uint8 = 2
)

type TokenAccount struct {
	Mint            Pubkey
	Owner           Pubkey
	Amount          uint64
	Delegate        *Pubkey
	State           uint8
	IsNative        bool
	NativeReserve   uint64
	DelegatedAmount uint64
	CloseAuthority  *Pubkey
}

func (a TokenAccount) Initialized() bool {
	return a.State != TokenStateUninitialized
}

func ParseTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) != TokenAccountSize {
		return TokenAccount{}, fmt.Errorf("invalid token account data size: %d", len(data))
	}
	var acc TokenAccount
	copy(acc.Mint[:], data[0:32])
	copy(acc.Owner[:], data[32:64])
	acc.Amount = binary.LittleEndian.Uint64(data[64:72])
	var err error
	if acc.Delegate, err = readOptionPubkey(data[72:108]); err != nil {
		return TokenAccount{}, fmt.Errorf("delegate: %w", err)
	}
	acc.State = data[108]
	nativeTag := binary.LittleEndian.Uint32(data[109:113])
	switch nativeTag {
	case 0:
	case 1:
		acc.IsNative = true
		acc.NativeReserve = binary.LittleEndian.Uint64(data[113:121])
	default:
		return TokenAccount{}, fmt.Errorf("native: invalid option tag %d", nativeTag)
	}
	acc.DelegatedAmount = binary.LittleEndian.Uint64(data[121:129])
	if acc.CloseAuthority, err = readOptionPubkey(data[129:165]); err != nil {
		return TokenAccount{}, fmt.Errorf("close authority: %w", err)
	}
	return acc, nil
}

type Mint struct {
	MintAuthority   *Pubkey
	Supply          uint64
	Decimals        uint8
	Initialized     bool
	FreezeAuthority *Pubkey
}

func ParseMint(data []byte) (Mint, error) {
	if len(data) != MintSize {
		return Mint{}, fmt.Errorf("invalid mint data size: %d", len(data))
	}
	var m Mint
	var err error
	if m.MintAuthority, err = readOptionPubkey(data[0:36]); err != nil {
		return Mint{}, fmt.Errorf("mint authority: %w", err)
	}
	m.Supply = binary.LittleEndian.Uint64(data[36:44])
	m.Decimals = data[44]
	switch data[45] {
	case 0:
	case 1:
		m.Initialized = true
	default:
		return Mint{}, fmt.Errorf("invalid initialized flag %d", data[45])
	}
	if m.FreezeAuthority, err = readOptionPubkey(data[46:82]); err != nil {
		return Mint{}, fmt.Errorf("freeze authority: %w", err)
	}
	return m, nil
}

func readOptionPubkey(b []byte) (*Pubkey, error) {
	tag := binary.LittleEndian.Uint32(b[0:4])
	switch tag {
	case 0:
		return nil, nil
	case 1:
		var p Pubkey
		copy(p[:], b[4:36])
		return &p, nil
	default:
		return nil, fmt.Errorf("invalid option tag %d", tag)
	}
}
