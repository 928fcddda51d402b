package chain

import "encoding/binary"

type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// System program instruction indices (u32 little-endian prefix).
const (
	sysCreateAccount uint32 = 0
	sysTransfer      uint32 = 2
)

// Token program instruction indices (u8 prefix).
const (
	tokInitializeAccount byte = 1
	tokTransferChecked   byte = 12
	tokCloseAccount      byte = 9
)

func NewSystemTransfer(from, to Pubkey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], sysTransfer)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsWritable: true},
		},
		Data: data,
	}
}

func NewSystemCreateAccount(from, newAccount Pubkey, lamports, space uint64, owner Pubkey) Instruction {
	data := make([]byte, 52)
	binary.LittleEndian.PutUint32(data[0:4], sysCreateAccount)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	binary.LittleEndian.PutUint64(data[12:20], space)
	copy(data[20:52], owner[:])
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: newAccount, IsSigner: true, IsWritable: true},
		},
		Data: data,
	}
}

func NewTokenInitializeAccount(account, mint, owner Pubkey) Instruction {
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: account, IsWritable: true},
			{Pubkey: mint},
			{Pubkey: owner},
			{Pubkey: SysvarRentID},
		},
		Data: []byte{tokInitializeAccount},
	}
}

func NewTokenTransferChecked(source, mint, destination, owner Pubkey, amount uint64, decimals uint8) Instruction {
	data := make([]byte, 10)
	data[0] = tokTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: source, IsWritable: true},
			{Pubkey: mint},
			{Pubkey: destination, IsWritable: true},
			{Pubkey: owner, IsSigner: true},
		},
		Data: data,
	}
}

func NewTokenCloseAccount(account, destination, owner Pubkey) Instruction {
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: account, IsWritable: true},
			{Pubkey: destination, IsWritable: true},
			{Pubkey: owner, IsSigner: true},
		},
		Data: []byte{tokCloseAccount},
	}
}

func NewMemo(signer Pubkey, memo string) Instruction {
	return Instruction{
		ProgramID: MemoProgramID,
		Accounts:  []AccountMeta{{Pubkey: signer, IsSigner: true}},
		Data:      []byte(memo),
	}
}
