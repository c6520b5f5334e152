package nats

import (
	"testing"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/classify"
	"github.com/stretchr/testify/assert"
)

func TestFromMovement(t *testing.T) {
	event := FromMovement(&classify.Movement{
		WalletAddress: "wallet-1",
		Signature:     "sig-1",
		Direction:     classify.DirectionSell,
		Amount:        0.5,
		Mint:          classify.NativeAsset,
		Venue:         "Jupiter",
		OccurredAt:    1_717_171_717_000,
		Price:         0.33,
	})

	assert.Equal(t, "sig-1", event.Signature)
	assert.Equal(t, "wallet-1", event.WalletAddress)
	assert.Equal(t, "sell", event.Direction)
	assert.Equal(t, 0.5, event.Amount)
	assert.Equal(t, "SOL", event.Mint)
	assert.Equal(t, "Jupiter", event.Venue)
	assert.Equal(t, int64(1_717_171_717_000), event.OccurredAt)
	assert.Equal(t, 0.33, event.Price)
	assert.WithinDuration(t, time.Now().UTC(), event.PublishedAt, time.Minute)
}
