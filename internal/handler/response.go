package handler

import (
	"encoding/json"
	"net/http"

	"github.com/forgo/saga/onboarding/internal/model"
)

// DataResponse wraps a successful response with optional links
type DataResponse struct {
	Data  interface{}       `json:"data"`
	Links map[string]string `json:"_links,omitempty"`
}

// CollectionResponse wraps a list response
type CollectionResponse struct {
	Data  interface{}       `json:"data"`
	Total int               `json:"total"`
	Links map[string]string `json:"_links,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteData writes a successful data response
func WriteData(w http.ResponseWriter, status int, data interface{}, links map[string]string) {
	WriteJSON(w, status, DataResponse{Data: data, Links: links})
}

// WriteCollection writes a list response
func WriteCollection(w http.ResponseWriter, status int, data interface{}, total int, links map[string]string) {
	WriteJSON(w, status, CollectionResponse{Data: data, Total: total, Links: links})
}

// WriteError writes an RFC 9457 problem response
func WriteError(w http.ResponseWriter, err *model.ProblemDetails) {
	err.WriteJSON(w)
}

// DecodeJSON decodes a request body, rejecting unknown fields
func DecodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// decodePayload decodes a free-form JSON object keeping numbers exact
func decodePayload(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	return decoder.Decode(v)
}
