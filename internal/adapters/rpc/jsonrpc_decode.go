package rpc

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

func decodeSingleStringParam(raw json.RawMessage) (string, error) {
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 1 && arr[0] != "" {
		return arr[0], nil
	}
	return "", errInvalidParams
}

func decodeTwoStringParams(raw json.RawMessage) (string, string, error) {
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 2 && arr[0] != "" && arr[1] != "" {
		return arr[0], arr[1], nil
	}
	return "", "", errInvalidParams
}

func decodeStrictNonNegativeInt(raw any) (int, error) {
	v, ok := raw.(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errInvalidParams
	}
	if v < 0 || math.Trunc(v) != v {
		return 0, errInvalidParams
	}
	maxInt := float64(^uint(0) >> 1)
	if v > maxInt {
		return 0, errInvalidParams
	}
	return int(v), nil
}

func decodeWalletIndexParam(raw json.RawMessage) (uint32, error) {
	var arr []any
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) != 1 {
		return 0, errInvalidParams
	}
	index, err := decodeStrictNonNegativeInt(arr[0])
	if err != nil || index > math.MaxUint32 {
		return 0, errInvalidParams
	}
	return uint32(index), nil
}

func decodeAddressCountParam(raw json.RawMessage) (uint32, error) {
	var arr []any
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) != 1 {
		return 0, errInvalidParams
	}
	count, err := decodeStrictNonNegativeInt(arr[0])
	if err != nil || count < 1 || count > maxAddressListCount {
		return 0, errInvalidParams
	}
	return uint32(count), nil
}

var errInvalidParams = errors.New("invalid params")

type loginParams struct {
	Kind        string `json:"kind"`
	Password    string `json:"password"`
	WalletIndex uint32 `json:"wallet_index"`
}

func decodeLoginParams(raw json.RawMessage) (loginParams, error) {
	// Absent params means a local login on wallet 0 with no password,
	// which succeeds only against an already unlocked vault.
	if len(raw) == 0 || string(raw) == "null" {
		return loginParams{}, nil
	}

	// Preferred shape: [ { ...params } ]
	var arr []loginParams
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 1 {
		return arr[0], nil
	}

	var p loginParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return loginParams{}, errInvalidParams
	}
	return p, nil
}

type transferSolParams struct {
	Destination string `json:"destination"`
	Lamports    uint64 `json:"lamports"`
}

func decodeTransferSolParams(raw json.RawMessage) (transferSolParams, error) {
	decodePayload := func(p transferSolParams) (transferSolParams, error) {
		if strings.TrimSpace(p.Destination) == "" || p.Lamports == 0 {
			return transferSolParams{}, errInvalidParams
		}
		return p, nil
	}

	var arr []transferSolParams
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 1 {
		return decodePayload(arr[0])
	}

	var direct transferSolParams
	if err := json.Unmarshal(raw, &direct); err == nil {
		return decodePayload(direct)
	}
	return transferSolParams{}, errInvalidParams
}

type tokenTransferParams struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      uint64 `json:"amount"`
	Decimals    uint8  `json:"decimals"`
	Memo        string `json:"memo"`
}

func decodeTokenTransferParams(raw json.RawMessage) (tokenTransferParams, error) {
	decodePayload := func(p tokenTransferParams) (tokenTransferParams, error) {
		if strings.TrimSpace(p.Source) == "" || strings.TrimSpace(p.Destination) == "" {
			return tokenTransferParams{}, errInvalidParams
		}
		if p.Amount == 0 {
			return tokenTransferParams{}, errInvalidParams
		}
		return p, nil
	}

	var arr []tokenTransferParams
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) == 1 {
		return decodePayload(arr[0])
	}

	var direct tokenTransferParams
	if err := json.Unmarshal(raw, &direct); err == nil {
		return decodePayload(direct)
	}
	return tokenTransferParams{}, errInvalidParams
}

func decodeCreateTokenAccountParams(raw json.RawMessage) (string, error) {
	if mint, err := decodeSingleStringParam(raw); err == nil {
		return mint, nil
	}
	var p struct {
		Mint string `json:"mint"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || strings.TrimSpace(p.Mint) == "" {
		return "", errInvalidParams
	}
	return p.Mint, nil
}

func decodeCloseTokenAccountParams(raw json.RawMessage) (string, error) {
	if address, err := decodeSingleStringParam(raw); err == nil {
		return address, nil
	}
	var p struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || strings.TrimSpace(p.Address) == "" {
		return "", errInvalidParams
	}
	return p.Address, nil
}
