package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

// AlertManager is the minimal interface needed for alert endpoints.
type AlertManager interface {
	Scan(ctx context.Context) ([]domain.Alert, error)
	List(ctx context.Context) ([]domain.Alert, error)
	Dismiss(ctx context.Context, alertID int64) error
}

// HandleAlerts returns an HTTP handler for listing alerts.
func HandleAlerts(svc AlertManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		alerts, err := svc.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		resp := make([]alertResponse, 0, len(alerts))
		for _, a := range alerts {
			resp = append(resp, newAlertResponse(a))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleAlertActions returns an HTTP handler for /alerts/scan and
// /alerts/{id} dismissal.
func HandleAlertActions(svc AlertManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "alerts" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if parts[1] == "scan" {
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			created, err := svc.Scan(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]alertResponse, 0, len(created))
			for _, a := range created {
				resp = append(resp, newAlertResponse(a))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if err := svc.Dismiss(r.Context(), id); err != nil {
			if errors.Is(err, domain.ErrAlertNotFound) {
				writeError(w, http.StatusNotFound, codeAlertNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type alertResponse struct {
	ID            int64  `json:"id"`
	UnitID        int64  `json:"unit_id"`
	Kind          string `json:"kind"`
	DateGenerated string `json:"date_generated"`
	Status        string `json:"status"`
	BloodType     string `json:"blood_type,omitempty"`
}

func newAlertResponse(a domain.Alert) alertResponse {
	return alertResponse{
		ID:            a.ID,
		UnitID:        a.UnitID,
		Kind:          string(a.Kind),
		DateGenerated: a.DateGenerated.Format(time.DateOnly),
		Status:        string(a.Status),
		BloodType:     string(a.BloodType),
	}
}
