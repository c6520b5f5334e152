package classify

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/Taksh113/tokenwise-popcat/service/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet = "Wa11etAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	otherParty = "CounterpartyBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	testMint   = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"
	otherMint  = "So11111111111111111111111111111111111111112"
)

// emptyDetail returns a minimal valid detail: meta and transaction present but
// carrying no classifiable activity.
func emptyDetail() *solana.TransactionDetail {
	return &solana.TransactionDetail{
		Meta:        &solana.TransactionMeta{},
		Transaction: &solana.ParsedTransaction{},
	}
}

// transferInstruction builds a parsed SPL transfer instruction payload.
func transferInstruction(t *testing.T, opType, source, dest, mint, uiAmount string) solana.ParsedInstruction {
	t.Helper()

	info := map[string]any{
		"source":      source,
		"destination": dest,
		"authority":   source,
	}
	if mint != "" {
		info["mint"] = mint
	}
	if uiAmount != "" {
		info["tokenAmount"] = map[string]any{
			"amount":         "0",
			"decimals":       9,
			"uiAmountString": uiAmount,
		}
	}

	parsed, err := json.Marshal(map[string]any{"type": opType, "info": info})
	require.NoError(t, err)

	return solana.ParsedInstruction{
		Program:   "spl-token",
		ProgramID: "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		Parsed:    json.RawMessage(parsed),
	}
}

func tokenBalance(mint, owner, uiAmount string) solana.TokenBalance {
	return solana.TokenBalance{
		Mint:  mint,
		Owner: owner,
		UITokenAmount: solana.UITokenAmount{
			UIAmountString: uiAmount,
		},
	}
}

func TestClassify_MissingMetadata(t *testing.T) {
	tests := []struct {
		name   string
		detail *solana.TransactionDetail
	}{
		{"nil detail", nil},
		{"nil meta", &solana.TransactionDetail{Transaction: &solana.ParsedTransaction{}}},
		{"nil transaction", &solana.TransactionDetail{Meta: &solana.TransactionMeta{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, tier := Classify(tt.detail, testWallet, "sig")
			assert.Nil(t, m)
			assert.Equal(t, TierNone, tier)
		})
	}
}

func TestClassify_NoActivity(t *testing.T) {
	m, tier := Classify(emptyDetail(), testWallet, "sig")
	assert.Nil(t, m)
	assert.Equal(t, TierNone, tier)
}

func TestClassify_InnerTransferBuy(t *testing.T) {
	detail := emptyDetail()
	detail.Meta.InnerInstructions = []solana.InnerInstructionSet{
		{
			Index: 0,
			Instructions: []solana.ParsedInstruction{
				transferInstruction(t, "transferChecked", otherParty, testWallet, testMint, "250.5"),
			},
		},
	}

	m, tier := Classify(detail, testWallet, "sig-buy")
	require.NotNil(t, m)
	assert.Equal(t, TierInnerTransfer, tier)
	assert.Equal(t, DirectionBuy, m.Direction)
	assert.Equal(t, 250.5, m.Amount)
	assert.Equal(t, testMint, m.Mint)
	assert.Equal(t, testWallet, m.WalletAddress)
	assert.Equal(t, "sig-buy", m.Signature)
}

func TestClassify_InnerTransferSell(t *testing.T) {
	detail := emptyDetail()
	detail.Meta.InnerInstructions = []solana.InnerInstructionSet{
		{
			Instructions: []solana.ParsedInstruction{
				transferInstruction(t, "transfer", testWallet, otherParty, testMint, "10"),
			},
		},
	}

	m, tier := Classify(detail, testWallet, "sig-sell")
	require.NotNil(t, m)
	assert.Equal(t, TierInnerTransfer, tier)
	assert.Equal(t, DirectionSell, m.Direction)
	assert.Equal(t, 10.0, m.Amount)
}

func TestClassify_FirstQualifyingInnerTransferWins(t *testing.T) {
	detail := emptyDetail()
	detail.Meta.InnerInstructions = []solana.InnerInstructionSet{
		{
			Instructions: []solana.ParsedInstruction{
				// Does not involve the wallet; skipped but scanning continues.
				transferInstruction(t, "transferChecked", otherParty, "SomeoneE1seCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC", otherMint, "7"),
				transferInstruction(t, "transferChecked", testWallet, otherParty, testMint, "3"),
				// A later transfer involving the wallet must not override.
				transferInstruction(t, "transferChecked", otherParty, testWallet, otherMint, "99"),
			},
		},
	}

	m, tier := Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierInnerTransfer, tier)
	assert.Equal(t, DirectionSell, m.Direction)
	assert.Equal(t, 3.0, m.Amount)
	assert.Equal(t, testMint, m.Mint)
}

func TestClassify_IncompleteInnerTransferFallsThrough(t *testing.T) {
	// Plain transfers carry no mint, so the inner tier cannot qualify and the
	// balance delta tier must decide.
	detail := emptyDetail()
	detail.Meta.InnerInstructions = []solana.InnerInstructionSet{
		{
			Instructions: []solana.ParsedInstruction{
				transferInstruction(t, "transfer", testWallet, otherParty, "", "5"),
			},
		},
	}
	detail.Meta.PostTokenBalances = []solana.TokenBalance{
		tokenBalance(testMint, testWallet, "95"),
	}
	detail.Meta.PreTokenBalances = []solana.TokenBalance{
		tokenBalance(testMint, testWallet, "100"),
	}

	m, tier := Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierBalanceDelta, tier)
	assert.Equal(t, DirectionSell, m.Direction)
	assert.Equal(t, 5.0, m.Amount)
}

func TestClassify_BalanceDeltaMissingPreIsZero(t *testing.T) {
	// Fresh token account: no pre entry means the wallet went from zero.
	detail := emptyDetail()
	detail.Meta.PostTokenBalances = []solana.TokenBalance{
		tokenBalance(testMint, testWallet, "42"),
	}

	m, tier := Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierBalanceDelta, tier)
	assert.Equal(t, DirectionBuy, m.Direction)
	assert.Equal(t, 42.0, m.Amount)
	assert.Equal(t, testMint, m.Mint)
}

func TestClassify_BalanceDeltaIgnoresOtherOwners(t *testing.T) {
	detail := emptyDetail()
	detail.Meta.PostTokenBalances = []solana.TokenBalance{
		tokenBalance(testMint, otherParty, "1000"),
	}

	m, tier := Classify(detail, testWallet, "sig")
	assert.Nil(t, m)
	assert.Equal(t, TierNone, tier)
}

func TestClassify_BalanceDeltaLastNonZeroWins(t *testing.T) {
	// A swap touches two of the wallet's token accounts in one transaction.
	// The verdict must come from the last entry iterated, not the first.
	detail := emptyDetail()
	detail.Meta.PreTokenBalances = []solana.TokenBalance{
		tokenBalance(otherMint, testWallet, "50"),
		tokenBalance(testMint, testWallet, "0"),
	}
	detail.Meta.PostTokenBalances = []solana.TokenBalance{
		tokenBalance(otherMint, testWallet, "40"),
		tokenBalance(testMint, testWallet, "1000"),
	}

	m, tier := Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierBalanceDelta, tier)
	assert.Equal(t, DirectionBuy, m.Direction)
	assert.Equal(t, 1000.0, m.Amount)
	assert.Equal(t, testMint, m.Mint)
}

func TestClassify_NativeDeltaSell(t *testing.T) {
	detail := emptyDetail()
	detail.Transaction.Message.AccountKeys = []solana.AccountKey{
		{Pubkey: testWallet, Signer: true, Writable: true},
		{Pubkey: otherParty},
	}
	detail.Meta.PreBalances = []uint64{10_000_000_000, 0}
	detail.Meta.PostBalances = []uint64{9_500_000_000, 500_000_000}

	m, tier := Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierNativeDelta, tier)
	assert.Equal(t, DirectionSell, m.Direction)
	assert.Equal(t, 0.5, m.Amount)
	assert.Equal(t, NativeAsset, m.Mint)
}

func TestClassify_NativeDeltaBuy(t *testing.T) {
	detail := emptyDetail()
	detail.Transaction.Message.AccountKeys = []solana.AccountKey{
		{Pubkey: otherParty},
		{Pubkey: testWallet},
	}
	detail.Meta.PreBalances = []uint64{2_000_000_000, 1_000_000_000}
	detail.Meta.PostBalances = []uint64{750_000_000, 2_250_000_000}

	m, tier := Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierNativeDelta, tier)
	assert.Equal(t, DirectionBuy, m.Direction)
	assert.Equal(t, 1.25, m.Amount)
	assert.Equal(t, NativeAsset, m.Mint)
}

func TestClassify_NativeDeltaWalletNotInKeys(t *testing.T) {
	detail := emptyDetail()
	detail.Transaction.Message.AccountKeys = []solana.AccountKey{
		{Pubkey: otherParty},
	}
	detail.Meta.PreBalances = []uint64{1_000_000_000}
	detail.Meta.PostBalances = []uint64{900_000_000}

	m, tier := Classify(detail, testWallet, "sig")
	assert.Nil(t, m)
	assert.Equal(t, TierNone, tier)
}

func TestClassify_TierOrdering(t *testing.T) {
	// A detail where every tier could fire: the inner transfer must win, and
	// with it removed the balance delta must beat the native delta.
	full := emptyDetail()
	full.Meta.InnerInstructions = []solana.InnerInstructionSet{
		{
			Instructions: []solana.ParsedInstruction{
				transferInstruction(t, "transferChecked", otherParty, testWallet, testMint, "1"),
			},
		},
	}
	full.Meta.PreTokenBalances = []solana.TokenBalance{tokenBalance(testMint, testWallet, "0")}
	full.Meta.PostTokenBalances = []solana.TokenBalance{tokenBalance(testMint, testWallet, "2")}
	full.Transaction.Message.AccountKeys = []solana.AccountKey{{Pubkey: testWallet}}
	full.Meta.PreBalances = []uint64{1_000_000_000}
	full.Meta.PostBalances = []uint64{900_000_000}

	m, tier := Classify(full, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierInnerTransfer, tier)
	assert.Equal(t, 1.0, m.Amount)

	full.Meta.InnerInstructions = nil
	m, tier = Classify(full, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierBalanceDelta, tier)
	assert.Equal(t, 2.0, m.Amount)

	full.Meta.PreTokenBalances = nil
	full.Meta.PostTokenBalances = nil
	m, tier = Classify(full, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierNativeDelta, tier)
	assert.Equal(t, 0.1, m.Amount)
}

func TestClassify_BlockTime(t *testing.T) {
	blockTime := int64(1717171717)
	detail := emptyDetail()
	detail.BlockTime = &blockTime
	detail.Transaction.Message.AccountKeys = []solana.AccountKey{{Pubkey: testWallet}}
	detail.Meta.PreBalances = []uint64{2_000_000_000}
	detail.Meta.PostBalances = []uint64{1_000_000_000}

	m, _ := Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, blockTime*1000, m.OccurredAt)

	detail.BlockTime = nil
	m, _ = Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, int64(0), m.OccurredAt)
}

func TestClassify_MemoInstructionIgnored(t *testing.T) {
	// Memo program parsed payloads are bare strings, not operation objects.
	detail := emptyDetail()
	detail.Meta.InnerInstructions = []solana.InnerInstructionSet{
		{
			Instructions: []solana.ParsedInstruction{
				{
					Program:   "spl-memo",
					ProgramID: "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr",
					Parsed:    json.RawMessage(fmt.Sprintf("%q", "gm")),
				},
				transferInstruction(t, "transferChecked", otherParty, testWallet, testMint, "8"),
			},
		},
	}

	m, tier := Classify(detail, testWallet, "sig")
	require.NotNil(t, m)
	assert.Equal(t, TierInnerTransfer, tier)
	assert.Equal(t, 8.0, m.Amount)
}
