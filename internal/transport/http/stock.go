package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Jean-Luc-of-God/bloodbank/internal/app"
	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

// StockReporter is the minimal interface needed for the availability readout.
type StockReporter interface {
	Availability(ctx context.Context, bloodType string) (app.Availability, error)
}

// HandleStock returns an HTTP handler for the per-type availability readout:
// total ledger quantity, promised-but-unfulfilled quantity, and the
// difference actually open to new requests.
func HandleStock(svc StockReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		bloodType := r.URL.Query().Get("blood_type")
		if bloodType == "" {
			writeError(w, http.StatusBadRequest, codeUnknownBloodType, "blood_type query parameter is required")
			return
		}

		avail, err := svc.Availability(r.Context(), bloodType)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownBloodType) {
				writeError(w, http.StatusBadRequest, codeUnknownBloodType, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stockResponse{
			BloodType: string(avail.BloodType),
			Total:     avail.Total,
			Pending:   avail.Pending,
			Available: avail.Available,
		})
	}
}

type stockResponse struct {
	BloodType string `json:"blood_type"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Available int    `json:"available"`
}
