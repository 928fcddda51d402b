package chain

import (
	"bytes"
	"errors"
	"testing"
)

func TestTransactionPartialSignAndVerify(t *testing.T) {
	t.Parallel()

	from, fromPriv := testKeypair(t, 0x21)
	to, _ := testKeypair(t, 0x22)
	msg, err := CompileMessage(from, testBlockhash(0x44), []Instruction{NewSystemTransfer(from, to, 777)})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	tx := NewTransaction(msg)
	if len(tx.MissingSigners()) != 1 {
		t.Fatalf("missing signers: got %d want 1", len(tx.MissingSigners()))
	}
	if _, err := tx.Serialize(); !errors.Is(err, ErrMissingSignatures) {
		t.Fatalf("serialize unsigned: got %v", err)
	}
	if err := tx.PartialSign(fromPriv); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	raw, err := tx.Serialize()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	if raw[0] != 1 {
		t.Fatalf("signature count byte: got %d want 1", raw[0])
	}
	if !bytes.Equal(raw[1:1+SignatureSize], tx.Signatures[0][:]) {
		t.Fatal("signature bytes not at expected offset")
	}
	if !bytes.Equal(raw[1+SignatureSize:], msg.Serialize()) {
		t.Fatal("message bytes should follow signatures")
	}
}

func TestTransactionMultiSignerKeepsExistingSignatures(t *testing.T) {
	t.Parallel()

	payer, payerPriv := testKeypair(t, 0x23)
	second, secondPriv := testKeypair(t, 0x24)
	owner, _ := testKeypair(t, 0x25)
	instr := NewSystemCreateAccount(payer, second, 1000, TokenAccountSize, TokenProgramID)
	init := NewTokenInitializeAccount(second, NativeMint, owner)
	msg, err := CompileMessage(payer, testBlockhash(0x55), []Instruction{instr, init})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if msg.Header.NumRequiredSignatures != 2 {
		t.Fatalf("required signatures: got %d want 2", msg.Header.NumRequiredSignatures)
	}

	tx := NewTransaction(msg)
	if err := tx.PartialSign(secondPriv); err != nil {
		t.Fatalf("second signer failed: %v", err)
	}
	sigBefore := tx.Signatures[1]
	if sigBefore.IsZero() {
		t.Fatal("second slot should be filled")
	}
	if err := tx.PartialSign(payerPriv); err != nil {
		t.Fatalf("payer signer failed: %v", err)
	}
	if tx.Signatures[1] != sigBefore {
		t.Fatal("payer signing must not displace the other signature")
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestTransactionAddSignatureUnknownKey(t *testing.T) {
	t.Parallel()

	from, _ := testKeypair(t, 0x26)
	to, _ := testKeypair(t, 0x27)
	stranger, _ := testKeypair(t, 0x28)
	msg, err := CompileMessage(from, testBlockhash(0x66), []Instruction{NewSystemTransfer(from, to, 1)})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	tx := NewTransaction(msg)
	if err := tx.AddSignature(stranger, Signature{1}); !errors.Is(err, ErrUnknownSignerKey) {
		t.Fatalf("unknown signer: got %v", err)
	}
}

func TestTransactionVerifyRejectsTamperedMessage(t *testing.T) {
	t.Parallel()

	from, fromPriv := testKeypair(t, 0x29)
	to, _ := testKeypair(t, 0x2a)
	msg, err := CompileMessage(from, testBlockhash(0x77), []Instruction{NewSystemTransfer(from, to, 9)})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	tx := NewTransaction(msg)
	if err := tx.PartialSign(fromPriv); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	tx.Message.Instructions[0].Data[4]++
	if err := tx.VerifySignatures(); err == nil {
		t.Fatal("tampered message should fail verification")
	}
}
