package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Jean-Luc-of-God/bloodbank/internal/app"
	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

// UnitManager is the minimal interface needed for ledger endpoints.
type UnitManager interface {
	AddUnit(ctx context.Context, in app.AddUnitInput) (domain.BloodUnit, error)
	UpdateUnit(ctx context.Context, id int64, in app.AddUnitInput) (domain.BloodUnit, error)
	DeleteUnit(ctx context.Context, id int64) error
	ListUnits(ctx context.Context) ([]domain.BloodUnit, error)
}

// HandleUnits returns an HTTP handler for listing and intake of blood units.
func HandleUnits(svc UnitManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			units, err := svc.ListUnits(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]unitResponse, 0, len(units))
			for _, u := range units {
				resp = append(resp, newUnitResponse(u))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			in, ok := decodeUnitBody(w, r)
			if !ok {
				return
			}
			unit, err := svc.AddUnit(r.Context(), in)
			if err != nil {
				writeUnitError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newUnitResponse(unit))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleUnitByID returns an HTTP handler for manual correction and removal
// of a single unit.
func HandleUnitByID(svc UnitManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUnitPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		switch r.Method {
		case http.MethodPut:
			in, ok := decodeUnitBody(w, r)
			if !ok {
				return
			}
			unit, err := svc.UpdateUnit(r.Context(), id, in)
			if err != nil {
				writeUnitError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(newUnitResponse(unit))
			return
		case http.MethodDelete:
			if err := svc.DeleteUnit(r.Context(), id); err != nil {
				writeUnitError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

func writeUnitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownBloodType):
		writeError(w, http.StatusBadRequest, codeUnknownBloodType, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrExpiryBeforeDonation):
		writeError(w, http.StatusBadRequest, codeExpiryBeforeDonation, err.Error())
	case errors.Is(err, domain.ErrUnitNotFound):
		writeError(w, http.StatusNotFound, codeUnitNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func decodeUnitBody(w http.ResponseWriter, r *http.Request) (app.AddUnitInput, bool) {
	var req unitRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return app.AddUnitInput{}, false
	}

	var donated, expiry time.Time
	if req.DonationDate != "" {
		parsed, err := time.Parse(time.DateOnly, req.DonationDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDate, "invalid donation_date format")
			return app.AddUnitInput{}, false
		}
		donated = parsed
	}
	parsed, err := time.Parse(time.DateOnly, req.ExpiryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDate, "invalid expiry_date format")
		return app.AddUnitInput{}, false
	}
	expiry = parsed

	return app.AddUnitInput{
		BloodType:    req.BloodType,
		Quantity:     req.Quantity,
		DonationDate: donated,
		ExpiryDate:   expiry,
		DonorID:      req.DonorID,
	}, true
}

func parseUnitPath(path string) (int64, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "units" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type unitRequest struct {
	BloodType    string `json:"blood_type"`
	Quantity     int    `json:"quantity"`
	DonationDate string `json:"donation_date,omitempty"`
	ExpiryDate   string `json:"expiry_date"`
	DonorID      *int64 `json:"donor_id,omitempty"`
}

type unitResponse struct {
	ID           int64  `json:"id"`
	BloodType    string `json:"blood_type"`
	Quantity     int    `json:"quantity"`
	DonationDate string `json:"donation_date"`
	ExpiryDate   string `json:"expiry_date"`
	DonorID      *int64 `json:"donor_id,omitempty"`
}

func newUnitResponse(u domain.BloodUnit) unitResponse {
	return unitResponse{
		ID:           u.ID,
		BloodType:    string(u.BloodType),
		Quantity:     u.Quantity,
		DonationDate: u.DonationDate.Format(time.DateOnly),
		ExpiryDate:   u.ExpiryDate.Format(time.DateOnly),
		DonorID:      u.DonorID,
	}
}
