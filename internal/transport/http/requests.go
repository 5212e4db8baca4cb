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

// RequestManager is the minimal interface needed for request endpoints.
type RequestManager interface {
	AdmitRequest(ctx context.Context, in app.AdmitRequestInput) (domain.BloodRequest, error)
	FulfillRequest(ctx context.Context, requestID int64) (domain.BloodRequest, error)
	ListRequests(ctx context.Context) ([]domain.BloodRequest, error)
	DeleteRequest(ctx context.Context, requestID int64) error
}

// HandleRequests returns an HTTP handler for listing and admitting requests.
func HandleRequests(svc RequestManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			requests, err := svc.ListRequests(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]requestResponse, 0, len(requests))
			for _, req := range requests {
				resp = append(resp, newRequestResponse(req))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			var req admitRequestBody
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			admitted, err := svc.AdmitRequest(r.Context(), app.AdmitRequestInput{
				BloodType: req.BloodType,
				Quantity:  req.Quantity,
			})
			if err != nil {
				writeRequestError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newRequestResponse(admitted))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleRequestByID returns an HTTP handler for fulfilling and deleting a
// single request.
func HandleRequestByID(svc RequestManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, fulfill, ok := parseRequestPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case fulfill && r.Method == http.MethodPost:
			req, err := svc.FulfillRequest(r.Context(), id)
			if err != nil {
				writeRequestError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(newRequestResponse(req))
			return
		case !fulfill && r.Method == http.MethodDelete:
			if err := svc.DeleteRequest(r.Context(), id); err != nil {
				writeRequestError(w, err)
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

func writeRequestError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		writeInsufficientStock(w, insufficient)
	case errors.Is(err, domain.ErrUnknownBloodType):
		writeError(w, http.StatusBadRequest, codeUnknownBloodType, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, codeRequestNotFound, err.Error())
	case errors.Is(err, domain.ErrRequestAlreadyFulfilled):
		writeError(w, http.StatusConflict, codeRequestAlreadyFulfilled, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// parseRequestPath accepts /requests/{id} and /requests/{id}/fulfill.
func parseRequestPath(path string) (int64, bool, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "requests" {
		return 0, false, false
	}
	fulfill := false
	if len(parts) == 3 {
		if parts[2] != "fulfill" {
			return 0, false, false
		}
		fulfill = true
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false, false
	}
	return id, fulfill, true
}

type admitRequestBody struct {
	BloodType string `json:"blood_type"`
	Quantity  int    `json:"quantity"`
}

type requestResponse struct {
	ID          int64  `json:"id"`
	BloodType   string `json:"blood_type"`
	Quantity    int    `json:"quantity"`
	RequestDate string `json:"request_date"`
	Fulfilled   bool   `json:"fulfilled"`
}

func newRequestResponse(req domain.BloodRequest) requestResponse {
	return requestResponse{
		ID:          req.ID,
		BloodType:   string(req.BloodType),
		Quantity:    req.Quantity,
		RequestDate: req.RequestDate.Format(time.DateOnly),
		Fulfilled:   req.Fulfilled,
	}
}
