package solana

import "encoding/json"

// TransactionDetail is the jsonParsed representation of one finalized transaction
// as returned by getTransaction. Every field may be absent; callers must treat the
// whole structure as optional throughout.
type TransactionDetail struct {
	Slot        uint64             `json:"slot"`
	BlockTime   *int64             `json:"blockTime"`
	Meta        *TransactionMeta   `json:"meta"`
	Transaction *ParsedTransaction `json:"transaction"`
}

// BlockTimeMillis returns the block time in milliseconds since epoch, or 0 when
// the validator did not report one.
func (d *TransactionDetail) BlockTimeMillis() int64 {
	if d == nil || d.BlockTime == nil {
		return 0
	}
	return *d.BlockTime * 1000
}

// TransactionMeta carries the pre/post state snapshots and inner instruction
// groups recorded alongside a transaction.
type TransactionMeta struct {
	Err               any                   `json:"err"`
	Fee               uint64                `json:"fee"`
	PreBalances       []uint64              `json:"preBalances"`
	PostBalances      []uint64              `json:"postBalances"`
	PreTokenBalances  []TokenBalance        `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance        `json:"postTokenBalances"`
	InnerInstructions []InnerInstructionSet `json:"innerInstructions"`
	LogMessages       []string              `json:"logMessages"`
}

// TokenBalance is one (mint, owner) token account balance snapshot.
type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

// UITokenAmount is the RPC's decimal-aware token amount encoding.
type UITokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       int      `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// InnerInstructionSet groups the inner instructions emitted by one top-level call.
type InnerInstructionSet struct {
	Index        int                 `json:"index"`
	Instructions []ParsedInstruction `json:"instructions"`
}

// ParsedTransaction is the decoded transaction envelope.
type ParsedTransaction struct {
	Message    ParsedMessage `json:"message"`
	Signatures []string      `json:"signatures"`
}

// ParsedMessage holds the account key list and top-level instructions.
type ParsedMessage struct {
	AccountKeys  []AccountKey        `json:"accountKeys"`
	Instructions []ParsedInstruction `json:"instructions"`
}

// AccountKey is one entry in the transaction's account key list.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// ParsedInstruction is a single instruction, top-level or inner. The Parsed
// payload is only present for programs the RPC node knows how to decode, and
// for some programs (memo) it is a bare string rather than an object, so it is
// kept raw and decoded lazily.
type ParsedInstruction struct {
	Program   string          `json:"program,omitempty"`
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed,omitempty"`
	Data      string          `json:"data,omitempty"`
}

// Operation is the decoded form of a parsed instruction payload.
type Operation struct {
	Type string          `json:"type"`
	Info json.RawMessage `json:"info"`
}

// Operation decodes the instruction's parsed payload. Returns false when the
// instruction carries no payload or the payload is not an operation object.
func (ix *ParsedInstruction) Operation() (*Operation, bool) {
	if len(ix.Parsed) == 0 || ix.Parsed[0] != '{' {
		return nil, false
	}
	var op Operation
	if err := json.Unmarshal(ix.Parsed, &op); err != nil {
		return nil, false
	}
	return &op, true
}

// TransferInfo is the info payload of a decoded SPL token transfer operation.
// TransferChecked-style operations carry the mint and decimal-aware amount;
// plain transfers leave them empty.
type TransferInfo struct {
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	Authority   string         `json:"authority"`
	Mint        string         `json:"mint"`
	TokenAmount *UITokenAmount `json:"tokenAmount"`
}

// Transfer decodes the operation as an SPL token transfer. Returns false when
// the operation is not a transfer or its info payload does not decode.
func (op *Operation) Transfer() (*TransferInfo, bool) {
	if op.Type != "transfer" && op.Type != "transferChecked" {
		return nil, false
	}
	var info TransferInfo
	if err := json.Unmarshal(op.Info, &info); err != nil {
		return nil, false
	}
	return &info, true
}

// SignatureInfo is one entry from getSignaturesForAddress: the signature plus
// ordering metadata. Err is non-nil for transactions that failed on chain.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *int64
	Err       any
}

// Holder is one token holder discovered by the top-holder snapshot.
type Holder struct {
	Address string
	Balance float64
}
