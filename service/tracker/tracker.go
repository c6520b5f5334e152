// Package tracker runs the wallet tracking passes: snapshot the top holders,
// walk their recent transactions, classify each into a movement, and append
// the results to the ledgers. A pass is deliberately slow; fixed delays
// between RPC calls keep the service inside public rate limits.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/classify"
	"github.com/Taksh113/tokenwise-popcat/service/config"
	"github.com/Taksh113/tokenwise-popcat/service/db"
	"github.com/Taksh113/tokenwise-popcat/service/metrics"
	"github.com/Taksh113/tokenwise-popcat/service/nats"
	"github.com/Taksh113/tokenwise-popcat/service/pricing"
	"github.com/Taksh113/tokenwise-popcat/service/solana"
)

// Reader is the ledger-reading surface the tracker needs from the Solana
// client.
type Reader interface {
	ListRecentSignatures(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error)
	GetTransactionDetail(ctx context.Context, signature string) (*solana.TransactionDetail, error)
	FetchTopHolders(ctx context.Context, mint string, n int) ([]solana.Holder, error)
}

// Store is the persistence surface the tracker needs.
type Store interface {
	db.MovementStore
	db.HolderStore
}

// PassStats summarizes one tracking pass. Every counter is best-effort
// observability; the ledgers are the source of truth.
type PassStats struct {
	Wallets      int `json:"wallets"`
	Abandoned    int `json:"abandoned"`
	Classified   int `json:"classified"`
	Written      int `json:"written"`
	Duplicates   int `json:"duplicates"`
	Skipped      int `json:"skipped"`
	PriceMisses  int `json:"price_misses"`
	PublishFails int `json:"publish_fails"`
}

// Tracker orchestrates tracking passes. Errors inside a pass are contained:
// a wallet that cannot be read is abandoned and the pass moves on, so one
// bad wallet or a flaky RPC node never sinks the whole pass.
type Tracker struct {
	reader    Reader
	store     Store
	pricer    pricing.Lookup
	publisher nats.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mint            string
	topHolderCount  int
	pageLimit       int
	throttleRetries int
	throttleBackoff time.Duration
	txFetchDelay    time.Duration
	walletDelay     time.Duration
	passInterval    time.Duration

	// sleep is injectable so tests can observe pacing without waiting.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a tracker. The publisher may be nil, in which case movement
// events are not published. If m is nil, no metrics are recorded.
func New(
	cfg *config.Config,
	reader Reader,
	store Store,
	pricer pricing.Lookup,
	publisher nats.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		reader:          reader,
		store:           store,
		pricer:          pricer,
		publisher:       publisher,
		metrics:         m,
		logger:          logger,
		mint:            cfg.TokenMint,
		topHolderCount:  cfg.TopHolderCount,
		pageLimit:       cfg.SignaturePageLimit,
		throttleRetries: cfg.ThrottleRetries,
		throttleBackoff: cfg.ThrottleBackoff,
		txFetchDelay:    cfg.TxFetchDelay,
		walletDelay:     cfg.WalletDelay,
		passInterval:    cfg.PassInterval,
		sleep:           sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// SnapshotHolders refreshes the tracked holder set from the chain and
// persists it. Returns the holders in descending balance order.
func (t *Tracker) SnapshotHolders(ctx context.Context) ([]db.Holder, error) {
	fetched, err := t.reader.FetchTopHolders(ctx, t.mint, t.topHolderCount)
	if err != nil {
		return nil, err
	}

	holders := make([]db.Holder, 0, len(fetched))
	for _, h := range fetched {
		holder := db.Holder{Address: h.Address, Balance: h.Balance}
		if err := t.store.UpsertHolder(ctx, holder); err != nil {
			return nil, err
		}
		holders = append(holders, holder)
	}

	t.logger.InfoContext(ctx, "snapshotted top holders",
		"mint", t.mint,
		"count", len(holders),
	)

	return holders, nil
}

// RunPass walks every tracked holder once, richest first. Per-wallet failures
// abandon that wallet and continue; RunPass itself only errors when the
// holder set cannot be read at all.
func (t *Tracker) RunPass(ctx context.Context) (PassStats, error) {
	start := time.Now()

	holders, err := t.store.ListHoldersByBalance(ctx)
	if err != nil {
		if t.metrics != nil {
			t.metrics.RecordTrackingPass("error", time.Since(start).Seconds())
		}
		return PassStats{}, err
	}

	var stats PassStats
	stats.Wallets = len(holders)

	for i, holder := range holders {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			t.sleep(ctx, t.walletDelay)
		}
		t.trackWallet(ctx, holder.Address, &stats)
	}

	status := "success"
	if ctx.Err() != nil {
		status = "canceled"
	}
	if t.metrics != nil {
		t.metrics.RecordTrackingPass(status, time.Since(start).Seconds())
	}

	t.logger.InfoContext(ctx, "tracking pass complete",
		"wallets", stats.Wallets,
		"abandoned", stats.Abandoned,
		"classified", stats.Classified,
		"written", stats.Written,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
		"duration", time.Since(start).String(),
	)

	return stats, nil
}

// Run executes passes forever, sleeping the configured interval between
// them, until the context is canceled.
func (t *Tracker) Run(ctx context.Context) error {
	for {
		if _, err := t.RunPass(ctx); err != nil {
			t.logger.ErrorContext(ctx, "tracking pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.passInterval):
		}
	}
}

// trackWallet processes one wallet's recent activity. Any fetch failure after
// the signature list is obtained abandons the remainder of this wallet's
// signatures; already-persisted movements stay.
func (t *Tracker) trackWallet(ctx context.Context, wallet string, stats *PassStats) {
	signatures, err := t.listSignaturesWithRetry(ctx, wallet)
	if err != nil {
		stats.Abandoned++
		reason := "list_failed"
		if solana.IsThrottled(err) {
			reason = "throttled"
		}
		if t.metrics != nil {
			t.metrics.RecordWalletAbandoned(reason)
		}
		t.logger.WarnContext(ctx, "abandoning wallet",
			"wallet", wallet,
			"reason", reason,
			"error", err,
		)
		return
	}

	for i, sig := range signatures {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			t.sleep(ctx, t.txFetchDelay)
		}

		detail, err := t.reader.GetTransactionDetail(ctx, sig.Signature)
		if err != nil {
			stats.Abandoned++
			if t.metrics != nil {
				t.metrics.RecordWalletAbandoned("detail_failed")
			}
			t.logger.WarnContext(ctx, "abandoning wallet after detail fetch failure",
				"wallet", wallet,
				"signature", sig.Signature,
				"error", err,
			)
			return
		}
		if detail == nil {
			stats.Skipped++
			if t.metrics != nil {
				t.metrics.RecordTransactionSkipped("missing_detail")
			}
			continue
		}

		t.recordMovement(ctx, wallet, sig.Signature, detail, stats)
	}
}

// listSignaturesWithRetry fetches the wallet's recent signatures, retrying
// only rate-limit rejections up to the configured attempt budget with a fixed
// backoff between attempts. Other errors fail immediately.
func (t *Tracker) listSignaturesWithRetry(ctx context.Context, wallet string) ([]solana.SignatureInfo, error) {
	var lastErr error
	for attempt := 1; attempt <= t.throttleRetries; attempt++ {
		signatures, err := t.reader.ListRecentSignatures(ctx, wallet, t.pageLimit)
		if err == nil {
			return signatures, nil
		}
		if !solana.IsThrottled(err) {
			return nil, err
		}

		lastErr = err
		if t.metrics != nil {
			t.metrics.RecordRPCRetry("GetSignaturesForAddress", "throttled")
		}
		t.logger.DebugContext(ctx, "signature list throttled, backing off",
			"wallet", wallet,
			"attempt", attempt,
			"backoff", t.throttleBackoff.String(),
		)
		if attempt < t.throttleRetries {
			t.sleep(ctx, t.throttleBackoff)
		}
	}
	return nil, lastErr
}

// recordMovement classifies one transaction and appends the result to the
// ledgers. Every classified movement lands in the all-assets ledger; tracked
// asset movements are additionally enriched with a price and appended to the
// tracked ledger, then published.
func (t *Tracker) recordMovement(ctx context.Context, wallet, signature string, detail *solana.TransactionDetail, stats *PassStats) {
	movement, tier := classify.Classify(detail, wallet, signature)
	if movement == nil {
		stats.Skipped++
		if t.metrics != nil {
			t.metrics.RecordTransactionSkipped("unclassified")
		}
		return
	}

	stats.Classified++
	if t.metrics != nil {
		t.metrics.RecordMovementClassified(string(movement.Direction), string(tier))
	}

	t.insert(ctx, db.LedgerAllAssets, movement, stats)

	if movement.Mint != t.mint {
		return
	}

	tracked := *movement
	tracked.Price = t.lookupPrice(ctx, tracked.OccurredAt, stats)
	if !t.insert(ctx, db.LedgerTracked, &tracked, stats) {
		return
	}

	if t.publisher != nil {
		startPub := time.Now()
		err := t.publisher.PublishMovement(ctx, nats.FromMovement(&tracked))
		status := "success"
		if err != nil {
			status = "error"
			stats.PublishFails++
			t.logger.WarnContext(ctx, "failed to publish movement",
				"signature", tracked.Signature,
				"error", err,
			)
		}
		if t.metrics != nil {
			t.metrics.RecordNATSPublish("movements."+tracked.WalletAddress, status, time.Since(startPub).Seconds())
		}
	}
}

// insert appends a movement to one ledger, treating a duplicate signature as
// a quiet no-op. Returns true only when a new row was written.
func (t *Tracker) insert(ctx context.Context, ledger db.Ledger, m *classify.Movement, stats *PassStats) bool {
	inserted, err := t.store.InsertMovement(ctx, ledger, m)
	if err != nil {
		t.logger.ErrorContext(ctx, "failed to insert movement",
			"ledger", string(ledger),
			"signature", m.Signature,
			"error", err,
		)
		return false
	}
	if !inserted {
		stats.Duplicates++
		if t.metrics != nil {
			t.metrics.RecordMovementDuplicate(string(ledger))
		}
		return false
	}

	stats.Written++
	if t.metrics != nil {
		t.metrics.RecordMovementWritten(string(ledger))
	}
	return true
}

// lookupPrice resolves the historical price for a movement, degrading to zero
// on any failure. A missing block time also resolves to zero rather than
// pricing the wrong day.
func (t *Tracker) lookupPrice(ctx context.Context, occurredAt int64, stats *PassStats) float64 {
	if t.pricer == nil || occurredAt == 0 {
		return 0
	}

	price, err := t.pricer.PriceAt(ctx, occurredAt)
	if err != nil {
		stats.PriceMisses++
		if t.metrics != nil {
			t.metrics.RecordPriceLookup("error")
		}
		if !errors.Is(err, context.Canceled) {
			t.logger.WarnContext(ctx, "price lookup failed, recording zero price",
				"occurred_at", occurredAt,
				"error", err,
			)
		}
		return 0
	}

	if t.metrics != nil {
		t.metrics.RecordPriceLookup("success")
	}
	return price
}
