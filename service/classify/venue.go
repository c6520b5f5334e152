package classify

import "github.com/Taksh113/tokenwise-popcat/service/solana"

// Recognized venue names.
const (
	VenueJupiter = "Jupiter"
	VenueRaydium = "Raydium"
	VenueOrca    = "Orca"
	VenueUnknown = "Unknown"
)

// venuePrograms maps on-chain program IDs to the venue inferred to have
// facilitated the transaction: the Raydium AMM v4 and Orca swap programs plus
// the Jupiter aggregator.
var venuePrograms = map[string]string{
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4":  VenueJupiter,
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": VenueRaydium,
	"9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP": VenueOrca,
}

// DetectVenue scans top-level instructions for a known exchange program ID.
// The last matching instruction wins; VenueUnknown when none match.
func DetectVenue(detail *solana.TransactionDetail) string {
	venue := VenueUnknown
	if detail == nil || detail.Transaction == nil {
		return venue
	}
	for i := range detail.Transaction.Message.Instructions {
		if name, ok := venuePrograms[detail.Transaction.Message.Instructions[i].ProgramID]; ok {
			venue = name
		}
	}
	return venue
}
