package http

import (
	"encoding/json"
	"net/http"

	"github.com/Jean-Luc-of-God/bloodbank/internal/domain"
)

const (
	codeMethodNotAllowed        = "method_not_allowed"
	codeNotFound                = "not_found"
	codeInvalidRequestBody      = "invalid_request_body"
	codeInvalidDate             = "invalid_date"
	codeInvalidID               = "invalid_id"
	codeUnknownBloodType        = "unknown_blood_type"
	codeInvalidQuantity         = "invalid_quantity"
	codeExpiryBeforeDonation    = "expiry_before_donation"
	codeInsufficientStock       = "insufficient_stock"
	codeUnitNotFound            = "unit_not_found"
	codeRequestNotFound         = "request_not_found"
	codeRequestAlreadyFulfilled = "request_already_fulfilled"
	codeAlertNotFound           = "alert_not_found"
	codeForbidden               = "forbidden"
	codeInternalError           = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// insufficientStockResponse carries the full accounting picture so clients
// can show requested vs. total vs. pending vs. truly-available quantities.
type insufficientStockResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Op        string `json:"op"`
	BloodType string `json:"blood_type"`
	Requested int    `json:"requested"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Available int    `json:"available"`
}

func writeInsufficientStock(w http.ResponseWriter, e *domain.InsufficientStockError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(insufficientStockResponse{
		Error:     e.Error(),
		Code:      codeInsufficientStock,
		Op:        e.Op,
		BloodType: string(e.BloodType),
		Requested: e.Requested,
		Total:     e.Total,
		Pending:   e.Pending,
		Available: e.Available,
	})
}
