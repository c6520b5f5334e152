package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/classify"
	"github.com/Taksh113/tokenwise-popcat/service/db"
)

const maxSignatureLength = 128 // base58 signatures are 87-88 chars, give buffer

// Valid base58 characters (no 0, O, I, l); covers addresses and signatures.
var validBase58Regex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// movementResponse is the wire representation of a ledger movement.
type movementResponse struct {
	WalletAddress string  `json:"wallet_address"`
	Signature     string  `json:"signature"`
	Direction     string  `json:"direction"`
	Amount        float64 `json:"amount"`
	Mint          string  `json:"mint"`
	Venue         string  `json:"venue"`
	OccurredAt    int64   `json:"occurred_at"`
	Price         float64 `json:"price"`
}

func movementToResponse(m *classify.Movement) movementResponse {
	return movementResponse{
		WalletAddress: m.WalletAddress,
		Signature:     m.Signature,
		Direction:     string(m.Direction),
		Amount:        m.Amount,
		Mint:          m.Mint,
		Venue:         m.Venue,
		OccurredAt:    m.OccurredAt,
		Price:         m.Price,
	}
}

// holderResponse is the wire representation of a tracked holder.
type holderResponse struct {
	Address   string    `json:"address"`
	Balance   float64   `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// handleListHolders returns a handler that lists the tracked holder set,
// richest first.
// GET /api/v1/holders
func handleListHolders(store Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holders, err := store.ListHoldersByBalance(r.Context())
		if err != nil {
			logger.Error("failed to list holders", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]holderResponse, len(holders))
		for i, h := range holders {
			resp[i] = holderResponse{Address: h.Address, Balance: h.Balance, UpdatedAt: h.UpdatedAt}
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// handleListMovements returns a handler that lists ledger movements within a
// time range.
// GET /api/v1/movements?ledger={movements|all_movements}&start={millis}&end={millis}
func handleListMovements(store Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ledger, err := parseLedger(r.URL.Query().Get("ledger"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		start, err := parseMillis(r.URL.Query().Get("start"), 0)
		if err != nil {
			writeError(w, "invalid start: must be epoch milliseconds", http.StatusBadRequest)
			return
		}
		end, err := parseMillis(r.URL.Query().Get("end"), time.Now().UnixMilli())
		if err != nil {
			writeError(w, "invalid end: must be epoch milliseconds", http.StatusBadRequest)
			return
		}

		movements, err := store.ListMovements(r.Context(), ledger, start, end)
		if err != nil {
			logger.Error("failed to list movements", "ledger", string(ledger), "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]movementResponse, len(movements))
		for i, m := range movements {
			resp[i] = movementToResponse(m)
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// handleGetMovement returns a handler that fetches one movement by signature.
// GET /api/v1/movements/{signature}?ledger={movements|all_movements}
func handleGetMovement(store Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.PathValue("signature")
		if signature == "" || len(signature) > maxSignatureLength || !validBase58Regex.MatchString(signature) {
			writeError(w, "invalid signature", http.StatusBadRequest)
			return
		}

		ledger, err := parseLedger(r.URL.Query().Get("ledger"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		movement, err := store.GetMovement(r.Context(), ledger, signature)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeError(w, "movement not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get movement", "signature", signature, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, movementToResponse(movement), http.StatusOK)
	})
}

// parseLedger resolves the ledger query parameter, defaulting to the tracked
// ledger.
func parseLedger(raw string) (db.Ledger, error) {
	switch raw {
	case "", string(db.LedgerTracked):
		return db.LedgerTracked, nil
	case string(db.LedgerAllAssets):
		return db.LedgerAllAssets, nil
	default:
		return "", errors.New("invalid ledger: must be movements or all_movements")
	}
}

func parseMillis(raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
