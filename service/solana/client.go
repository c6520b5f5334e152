package solana

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/metrics"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrThrottled indicates the remote RPC node rejected a call with a rate-limit
// response. Callers retry with backoff; it is never surfaced past the ingestion
// loop.
var ErrThrottled = errors.New("rpc throttled (429 Too Many Requests)")

// IsThrottled reports whether err represents a rate-limit rejection. The RPC
// layer does not expose a structured code for this, so the HTTP status is
// matched on the error message.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrThrottled) || strings.Contains(err.Error(), "429")
}

// RPCClient is the subset of Solana RPC operations the reader needs.
// This allows mocking the RPC layer in tests without hitting real nodes.
type RPCClient interface {
	GetSignaturesForAddressWithOpts(
		ctx context.Context,
		address solanago.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	RPCCallForInto(ctx context.Context, out any, name string, params []any) error

	GetProgramAccountsWithOpts(
		ctx context.Context,
		program solanago.PublicKey,
		opts *rpc.GetProgramAccountsOpts,
	) (rpc.GetProgramAccountsResult, error)
}

// Client is the rate-limit-aware reader over the Solana ledger service.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics labeling
}

// NewClient creates a new reader. The endpoint parameter is used for metrics
// labeling (e.g. "mainnet" or the RPC hostname). If m is nil, no metrics are
// recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// ListRecentSignatures fetches up to limit most-recent transaction signatures
// for the address, newest first. A rate-limit rejection is returned as
// ErrThrottled.
func (c *Client) ListRecentSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	pubkey, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %w", address, err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	}

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, pubkey, opts)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("GetSignaturesForAddress", status, c.endpoint, duration)
	}

	if err != nil {
		if IsThrottled(err) {
			if c.metrics != nil {
				c.metrics.RecordRateLimitHit(c.endpoint)
			}
			return nil, fmt.Errorf("list signatures for %s: %w", address, ErrThrottled)
		}
		return nil, fmt.Errorf("list signatures for %s: %w", address, err)
	}

	infos := make([]SignatureInfo, 0, len(signatures))
	for _, sig := range signatures {
		info := SignatureInfo{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
			Err:       sig.Err,
		}
		if sig.BlockTime != nil {
			t := int64(*sig.BlockTime)
			info.BlockTime = &t
		}
		infos = append(infos, info)
	}

	c.logger.DebugContext(ctx, "fetched transaction signatures",
		"wallet", address,
		"count", len(infos),
	)

	return infos, nil
}

// GetTransactionDetail fetches the full jsonParsed record for one signature.
// Returns nil (with nil error) when the node no longer has the transaction.
// A rate-limit rejection is returned as ErrThrottled.
func (c *Client) GetTransactionDetail(ctx context.Context, signature string) (*TransactionDetail, error) {
	params := []any{
		signature,
		map[string]any{
			"encoding":                       "jsonParsed",
			"commitment":                     "confirmed",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var detail *TransactionDetail
	start := time.Now()
	err := c.rpc.RPCCallForInto(ctx, &detail, "getTransaction", params)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("getTransaction", status, c.endpoint, duration)
	}

	if err != nil {
		if IsThrottled(err) {
			if c.metrics != nil {
				c.metrics.RecordRateLimitHit(c.endpoint)
			}
			return nil, fmt.Errorf("get transaction %s: %w", signature, ErrThrottled)
		}
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}

	return detail, nil
}

// tokenAccountSize is the byte length of an SPL token account; token account
// data places the owner at bytes 32..64 and the raw amount as a little-endian
// u64 at byte 64.
const (
	tokenAccountSize   = 165
	tokenAccountOwner  = 32
	tokenAccountAmount = 64
)

// FetchTopHolders snapshots the top-n holders of the mint by scanning all token
// accounts for the mint and aggregating by owner, descending by balance. Raw
// amounts are scaled by the token's 1e9 minor units. Zero-balance accounts are
// excluded.
func (c *Client) FetchTopHolders(ctx context.Context, mint string, n int) ([]Holder, error) {
	mintPubkey, err := solanago.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mint, err)
	}

	opts := &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{DataSize: tokenAccountSize},
			{Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 0,
				Bytes:  solanago.Base58(mintPubkey.Bytes()),
			}},
		},
	}

	start := time.Now()
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, solanago.TokenProgramID, opts)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordRPCCall("GetProgramAccounts", status, c.endpoint, duration)
	}

	if err != nil {
		if IsThrottled(err) {
			return nil, fmt.Errorf("fetch token accounts for %s: %w", mint, ErrThrottled)
		}
		return nil, fmt.Errorf("fetch token accounts for %s: %w", mint, err)
	}

	c.logger.InfoContext(ctx, "retrieved token accounts",
		"mint", mint,
		"count", len(accounts),
	)

	balances := make(map[string]float64)
	for _, acc := range accounts {
		if acc.Account == nil {
			continue
		}
		data := acc.Account.Data.GetBinary()
		if len(data) < tokenAccountSize {
			continue
		}
		amount := binary.LittleEndian.Uint64(data[tokenAccountAmount : tokenAccountAmount+8])
		if amount == 0 {
			continue
		}
		owner := solanago.PublicKeyFromBytes(data[tokenAccountOwner : tokenAccountOwner+32])
		balances[owner.String()] += float64(amount) / 1e9
	}

	holders := make([]Holder, 0, len(balances))
	for addr, balance := range balances {
		holders = append(holders, Holder{Address: addr, Balance: balance})
	}
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Balance != holders[j].Balance {
			return holders[i].Balance > holders[j].Balance
		}
		return holders[i].Address < holders[j].Address
	})

	if len(holders) > n {
		holders = holders[:n]
	}
	if len(holders) < n {
		c.logger.WarnContext(ctx, "fewer holders than requested",
			"mint", mint,
			"found", len(holders),
			"requested", n,
		)
	}

	return holders, nil
}
