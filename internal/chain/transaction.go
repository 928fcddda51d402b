package chain

import (
	"crypto/ed25519"
	"errors"
	"fmt"
)

var (
	ErrUnknownSignerKey  = errors.New("public key is not a required signer")
	ErrMissingSignatures = errors.New("transaction is missing signatures")
)

// Transaction pairs a message with its signature slots. Signatures sit in
// the same order as the first NumRequiredSignatures account keys; a zero
// signature marks an unsigned slot.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

func NewTransaction(msg Message) *Transaction {
	return &Transaction{
		Signatures: make([]Signature, msg.Header.NumRequiredSignatures),
		Message:    msg,
	}
}

// AddSignature fills the slot belonging to pub. Existing signatures in
// other slots are preserved, so independent signers can each contribute
// theirs in any order.
func (t *Transaction) AddSignature(pub Pubkey, sig Signature) error {
	slot, ok := t.Message.signerSlot(pub)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSignerKey, pub)
	}
	if slot >= len(t.Signatures) {
		return fmt.Errorf("signature slot %d out of range", slot)
	}
	t.Signatures[slot] = sig
	return nil
}

// PartialSign signs the message with each given private key and installs
// the signatures into their slots.
func (t *Transaction) PartialSign(keys ...ed25519.PrivateKey) error {
	msgBytes := t.Message.Serialize()
	for _, priv := range keys {
		pub, err := PubkeyFromPrivate(priv)
		if err != nil {
			return err
		}
		sig, err := SignatureFromBytes(ed25519.Sign(priv, msgBytes))
		if err != nil {
			return err
		}
		if err := t.AddSignature(pub, sig); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transaction) MissingSigners() []Pubkey {
	var missing []Pubkey
	for i, pub := range t.Message.SignerKeys() {
		if i >= len(t.Signatures) || t.Signatures[i].IsZero() {
			missing = append(missing, pub)
		}
	}
	return missing
}

// VerifySignatures checks that every required slot is filled and that each
// signature verifies against its account key over the serialized message.
func (t *Transaction) VerifySignatures() error {
	msgBytes := t.Message.Serialize()
	signers := t.Message.SignerKeys()
	if len(t.Signatures) < len(signers) {
		return ErrMissingSignatures
	}
	for i, pub := range signers {
		if t.Signatures[i].IsZero() {
			return fmt.Errorf("%w: slot %d (%s)", ErrMissingSignatures, i, pub)
		}
		if !ed25519.Verify(pub[:], msgBytes, t.Signatures[i][:]) {
			return fmt.Errorf("invalid signature in slot %d (%s)", i, pub)
		}
	}
	return nil
}

// Serialize emits the wire form. All required slots must be signed.
func (t *Transaction) Serialize() ([]byte, error) {
	if missing := t.MissingSigners(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %d unsigned", ErrMissingSignatures, len(missing))
	}
	msgBytes := t.Message.Serialize()
	out := make([]byte, 0, 1+len(t.Signatures)*SignatureSize+len(msgBytes))
	out = appendCompactU16(out, len(t.Signatures))
	for _, sig := range t.Signatures {
		out = append(out, sig[:]...)
	}
	return append(out, msgBytes...), nil
}
