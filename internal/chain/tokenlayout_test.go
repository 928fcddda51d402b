package chain

import (
	"encoding/binary"
	"testing"
)

func buildTokenAccountData(t *testing.T, mint, owner Pubkey, amount uint64, state uint8) []byte {
	t.Helper()
	data := make([]byte, TokenAccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = state
	return data
}

func TestParseTokenAccount(t *testing.T) {
	t.Parallel()

	mint, _ := testKeypair(t, 0x31)
	owner, _ := testKeypair(t, 0x32)
	data := buildTokenAccountData(t, mint, owner, 123456, TokenStateInitialized)

	acc, err := ParseTokenAccount(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if acc.Mint != mint || acc.Owner != owner {
		t.Fatal("mint/owner mismatch")
	}
	if acc.Amount != 123456 {
		t.Fatalf("amount: got %d want 123456", acc.Amount)
	}
	if !acc.Initialized() || acc.IsNative || acc.Delegate != nil || acc.CloseAuthority != nil {
		t.Fatalf("unexpected optional fields: %+v", acc)
	}
}

func TestParseTokenAccountNativeAndDelegate(t *testing.T) {
	t.Parallel()

	owner, _ := testKeypair(t, 0x33)
	delegate, _ := testKeypair(t, 0x34)
	data := buildTokenAccountData(t, NativeMint, owner, 5_000_000, TokenStateInitialized)
	binary.LittleEndian.PutUint32(data[72:76], 1)
	copy(data[76:108], delegate[:])
	binary.LittleEndian.PutUint32(data[109:113], 1)
	binary.LittleEndian.PutUint64(data[113:121], 2_039_280)
	binary.LittleEndian.PutUint64(data[121:129], 1000)

	acc, err := ParseTokenAccount(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if acc.Delegate == nil || *acc.Delegate != delegate {
		t.Fatal("delegate not parsed")
	}
	if !acc.IsNative || acc.NativeReserve != 2_039_280 {
		t.Fatalf("native fields: %+v", acc)
	}
	if acc.DelegatedAmount != 1000 {
		t.Fatalf("delegated amount: got %d", acc.DelegatedAmount)
	}
}

func TestParseTokenAccountRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := ParseTokenAccount(make([]byte, TokenAccountSize-1)); err == nil {
		t.Fatal("short data should fail")
	}
	data := make([]byte, TokenAccountSize)
	binary.LittleEndian.PutUint32(data[72:76], 7)
	if _, err := ParseTokenAccount(data); err == nil {
		t.Fatal("invalid option tag should fail")
	}
}

func TestParseMint(t *testing.T) {
	t.Parallel()

	authority, _ := testKeypair(t, 0x35)
	data := make([]byte, MintSize)
	binary.LittleEndian.PutUint32(data[0:4], 1)
	copy(data[4:36], authority[:])
	binary.LittleEndian.PutUint64(data[36:44], 21_000_000)
	data[44] = 6
	data[45] = 1

	m, err := ParseMint(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.MintAuthority == nil || *m.MintAuthority != authority {
		t.Fatal("mint authority not parsed")
	}
	if m.Decimals != 6 || !m.Initialized || m.Supply != 21_000_000 {
		t.Fatalf("unexpected mint: %+v", m)
	}
	if m.FreezeAuthority != nil {
		t.Fatal("freeze authority should be absent")
	}

	if _, err := ParseMint(make([]byte, MintSize+1)); err == nil {
		t.Fatal("wrong size should fail")
	}
}
