package http

import (
	"encoding/json"
	"net/http"
)

// StatusResponse acknowledges a write on a single donor
type StatusResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

// BulkUploadResponse reports a completed bulk upload
type BulkUploadResponse struct {
	Status         string `json:"status"`
	TotalProcessed int    `json:"total_processed"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header has already been sent, so encode errors are not reported
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a 200 response
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a created response
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteList writes a bare JSON array; an empty list is encoded as [] rather than null
func WriteList[T any](w http.ResponseWriter, data []T) {
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, data)
}
