// Package classify turns raw transaction detail records into buy/sell movements
// for a specific wallet. Classification is pure: no I/O, no side effects, and
// deterministic for a given record.
package classify

import (
	"strconv"

	"github.com/Taksh113/tokenwise-popcat/service/solana"
)

// Direction is the economic direction of a movement from the wallet's
// perspective.
type Direction string

const (
	DirectionBuy     Direction = "buy"
	DirectionSell    Direction = "sell"
	DirectionUnknown Direction = "unknown"
)

// NativeAsset is the counterpart-asset sentinel for native SOL movements.
const NativeAsset = "SOL"

// Tier identifies which fallback stage produced a classification. Used for
// logging and metrics labels.
type Tier string

const (
	TierNone          Tier = ""
	TierInnerTransfer Tier = "inner_transfer"
	TierBalanceDelta  Tier = "balance_delta"
	TierNativeDelta   Tier = "native_delta"
)

// lamportsPerSol converts native minor units to major units.
const lamportsPerSol = 1e9

// Movement is one detected change in asset or native-currency holding for a
// tracked wallet within one transaction. Signature is the de-duplication key:
// at most one movement per signature exists per ledger.
type Movement struct {
	WalletAddress string    `json:"wallet_address"`
	Signature     string    `json:"signature"`
	Direction     Direction `json:"direction"`
	Amount        float64   `json:"amount"`
	Mint          string    `json:"mint"` // counterpart asset; NativeAsset for SOL
	Venue         string    `json:"venue"`
	OccurredAt    int64     `json:"occurred_at"` // epoch millis, 0 when block time unavailable
	Price         float64   `json:"price"`
}

// verdict is one tier's opinion: a direction, quantity and counterpart asset.
type verdict struct {
	direction Direction
	amount    float64
	mint      string
}

// Classify evaluates the three-tier fallback chain for the wallet and returns
// the classified movement together with the tier that produced it. Returns
// (nil, TierNone) when the record carries no usable metadata or no tier fires;
// the caller must then skip persistence entirely.
//
// Tier order is fixed: explicit inner-instruction transfers win over token
// balance deltas, which win over the native lamport delta. The tie-breaks
// inside tiers are deliberate: the first qualifying inner transfer wins, while
// for balance deltas the last non-zero delta wins.
func Classify(detail *solana.TransactionDetail, wallet, signature string) (*Movement, Tier) {
	if detail == nil || detail.Meta == nil || detail.Transaction == nil {
		return nil, TierNone
	}

	v, tier := func() (verdict, Tier) {
		if v, ok := innerTransferVerdict(detail.Meta, wallet); ok {
			return v, TierInnerTransfer
		}
		if v, ok := balanceDeltaVerdict(detail.Meta, wallet); ok {
			return v, TierBalanceDelta
		}
		if v, ok := nativeDeltaVerdict(detail, wallet); ok {
			return v, TierNativeDelta
		}
		return verdict{}, TierNone
	}()
	if tier == TierNone {
		return nil, TierNone
	}

	return &Movement{
		WalletAddress: wallet,
		Signature:     signature,
		Direction:     v.direction,
		Amount:        v.amount,
		Mint:          v.mint,
		Venue:         DetectVenue(detail),
		OccurredAt:    detail.BlockTimeMillis(),
	}, tier
}

// innerTransferVerdict scans inner-instruction groups in transaction order for
// a decoded SPL transfer that names the wallet as source or destination. Only
// operations carrying a full (amount, mint, source, destination) tuple qualify;
// the first qualifying transfer wins and scanning stops.
func innerTransferVerdict(meta *solana.TransactionMeta, wallet string) (verdict, bool) {
	for _, group := range meta.InnerInstructions {
		for i := range group.Instructions {
			op, ok := group.Instructions[i].Operation()
			if !ok {
				continue
			}
			info, ok := op.Transfer()
			if !ok {
				continue
			}
			if info.Mint == "" || info.Source == "" || info.Destination == "" || info.TokenAmount == nil {
				continue
			}
			amount := parseUIAmount(info.TokenAmount.UIAmountString)
			if amount <= 0 {
				continue
			}

			switch wallet {
			case info.Destination:
				return verdict{direction: DirectionBuy, amount: amount, mint: info.Mint}, true
			case info.Source:
				return verdict{direction: DirectionSell, amount: amount, mint: info.Mint}, true
			}
		}
	}
	return verdict{}, false
}

// balanceDeltaVerdict compares post- to pre-state token balances owned by the
// wallet, matching entries by (mint, owner) and treating a missing pre-state
// entry as zero. When several entries produce non-zero deltas the last one
// iterated wins; a test pins this down for multi-asset transactions.
func balanceDeltaVerdict(meta *solana.TransactionMeta, wallet string) (verdict, bool) {
	var (
		result verdict
		found  bool
	)
	for _, post := range meta.PostTokenBalances {
		if post.Owner != wallet {
			continue
		}
		pre := 0.0
		for _, p := range meta.PreTokenBalances {
			if p.Mint == post.Mint && p.Owner == post.Owner {
				pre = parseUIAmount(p.UITokenAmount.UIAmountString)
				break
			}
		}
		delta := parseUIAmount(post.UITokenAmount.UIAmountString) - pre

		switch {
		case delta > 0:
			result = verdict{direction: DirectionBuy, amount: delta, mint: post.Mint}
			found = true
		case delta < 0:
			result = verdict{direction: DirectionSell, amount: -delta, mint: post.Mint}
			found = true
		}
	}
	return result, found
}

// nativeDeltaVerdict compares pre/post lamport balances at the wallet's account
// position. Network fees are not isolated, so a fee-only transaction shows up
// as a small native sell.
func nativeDeltaVerdict(detail *solana.TransactionDetail, wallet string) (verdict, bool) {
	index := -1
	for i, key := range detail.Transaction.Message.AccountKeys {
		if key.Pubkey == wallet {
			index = i
			break
		}
	}
	meta := detail.Meta
	if index < 0 || index >= len(meta.PreBalances) || index >= len(meta.PostBalances) {
		return verdict{}, false
	}

	delta := int64(meta.PostBalances[index]) - int64(meta.PreBalances[index])
	switch {
	case delta > 0:
		return verdict{direction: DirectionBuy, amount: float64(delta) / lamportsPerSol, mint: NativeAsset}, true
	case delta < 0:
		return verdict{direction: DirectionSell, amount: float64(-delta) / lamportsPerSol, mint: NativeAsset}, true
	}
	return verdict{}, false
}

func parseUIAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
