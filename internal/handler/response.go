package handler

import (
	"net/http"
	"sort"

	json "github.com/goccy/go-json"
)

// validationErrorResponse mirrors the field-map validation body clients
// already parse: the first message plus every field's message.
type validationErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	message := "validation failed"
	if len(names) > 0 {
		message = names[0] + " " + fields[names[0]]
	}

	writeJSON(w, http.StatusUnprocessableEntity, validationErrorResponse{
		Message: message,
		Errors:  fields,
	})
}
