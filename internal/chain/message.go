package chain

import "fmt"

type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// Message is the signed portion of a transaction: header, account table,
// recent blockhash and program-relative instructions.
type Message struct {
	Header          MessageHeader
	AccountKeys     []Pubkey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

type compiledMeta struct {
	pubkey   Pubkey
	signer   bool
	writable bool
}

// CompileMessage flattens instruction account lists into the canonical
// account table. The fee payer comes first; after it the table is ordered
// writable signers, readonly signers, writable non-signers, readonly
// non-signers, each class in first-appearance order. Privileges merge when
// the same key appears more than once.
func CompileMessage(payer Pubkey, recentBlockhash Hash, instructions []Instruction) (Message, error) {
	if payer.IsZero() {
		return Message{}, fmt.Errorf("fee payer is required")
	}
	if recentBlockhash.IsZero() {
		return Message{}, fmt.Errorf("recent blockhash is required")
	}
	if len(instructions) == 0 {
		return Message{}, fmt.Errorf("no instructions")
	}

	metas := []compiledMeta{{pubkey: payer, signer: true, writable: true}}
	index := map[Pubkey]int{payer: 0}
	merge := func(m compiledMeta) {
		if i, ok := index[m.pubkey]; ok {
			metas[i].signer = metas[i].signer || m.signer
			metas[i].writable = metas[i].writable || m.writable
			return
		}
		index[m.pubkey] = len(metas)
		metas = append(metas, m)
	}
	for _, in := range instructions {
		for _, acc := range in.Accounts {
			merge(compiledMeta{pubkey: acc.Pubkey, signer: acc.IsSigner, writable: acc.IsWritable})
		}
		merge(compiledMeta{pubkey: in.ProgramID})
	}

	ordered := make([]compiledMeta, 0, len(metas))
	appendClass := func(signer, writable bool) {
		for _, m := range metas {
			if m.pubkey == payer {
				continue
			}
			if m.signer == signer && m.writable == writable {
				ordered = append(ordered, m)
			}
		}
	}
	ordered = append(ordered, metas[0])
	appendClass(true, true)
	appendClass(true, false)
	appendClass(false, true)
	appendClass(false, false)

	if len(ordered) > 256 {
		return Message{}, fmt.Errorf("too many accounts: %d", len(ordered))
	}

	var header MessageHeader
	keys := make([]Pubkey, len(ordered))
	keyIndex := make(map[Pubkey]uint8, len(ordered))
	for i, m := range ordered {
		keys[i] = m.pubkey
		keyIndex[m.pubkey] = uint8(i)
		if m.signer {
			header.NumRequiredSignatures++
			if !m.writable {
				header.NumReadonlySignedAccounts++
			}
		} else if !m.writable {
			header.NumReadonlyUnsignedAccounts++
		}
	}

	compiled := make([]CompiledInstruction, len(instructions))
	for i, in := range instructions {
		accIdx := make([]uint8, len(in.Accounts))
		for j, acc := range in.Accounts {
			accIdx[j] = keyIndex[acc.Pubkey]
		}
		compiled[i] = CompiledInstruction{
			ProgramIDIndex: keyIndex[in.ProgramID],
			AccountIndexes: accIdx,
			Data:           append([]byte(nil), in.Data...),
		}
	}

	return Message{
		Header:          header,
		AccountKeys:     keys,
		RecentBlockhash: recentBlockhash,
		Instructions:    compiled,
	}, nil
}

func (m Message) Serialize() []byte {
	out := make([]byte, 0, 3+1+len(m.AccountKeys)*PubkeySize+HashSize+64)
	out = append(out, m.Header.NumRequiredSignatures, m.Header.NumReadonlySignedAccounts, m.Header.NumReadonlyUnsignedAccounts)
	out = appendCompactU16(out, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		out = append(out, k[:]...)
	}
	out = append(out, m.RecentBlockhash[:]...)
	out = appendCompactU16(out, len(m.Instructions))
	for _, in := range m.Instructions {
		out = append(out, in.ProgramIDIndex)
		out = appendCompactU16(out, len(in.AccountIndexes))
		out = append(out, in.AccountIndexes...)
		out = appendCompactU16(out, len(in.Data))
		out = append(out, in.Data...)
	}
	return out
}

// SignerKeys returns the account keys that must sign, in signature-slot
// order.
func (m Message) SignerKeys() []Pubkey {
	n := int(m.Header.NumRequiredSignatures)
	if n > len(m.AccountKeys) {
		n = len(m.AccountKeys)
	}
	return append([]Pubkey(nil), m.AccountKeys[:n]...)
}

func (m Message) signerSlot(pub Pubkey) (int, bool) {
	for i := 0; i < int(m.Header.NumRequiredSignatures) && i < len(m.AccountKeys); i++ {
		if m.AccountKeys[i] == pub {
			return i, true
		}
	}
	return 0, false
}
