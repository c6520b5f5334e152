package nats

import (
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/classify"
)

// MovementEvent represents a classified movement published to NATS.
// This is published to the subject "movements.{wallet_address}" in JetStream.
type MovementEvent struct {
	Signature     string  `json:"signature"`
	WalletAddress string  `json:"wallet_address"`
	Direction     string  `json:"direction"`
	Amount        float64 `json:"amount"`
	Mint          string  `json:"mint"`
	Venue         string  `json:"venue"`
	OccurredAt    int64   `json:"occurred_at"` // epoch millis, 0 when unknown
	Price         float64 `json:"price"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromMovement converts a classified movement to a MovementEvent for
// publishing.
func FromMovement(m *classify.Movement) *MovementEvent {
	return &MovementEvent{
		Signature:     m.Signature,
		WalletAddress: m.WalletAddress,
		Direction:     string(m.Direction),
		Amount:        m.Amount,
		Mint:          m.Mint,
		Venue:         m.Venue,
		OccurredAt:    m.OccurredAt,
		Price:         m.Price,
		PublishedAt:   time.Now().UTC(),
	}
}
