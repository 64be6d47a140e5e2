package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
	"github.com/vedran77/dealerchat/pkg/validator"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK[T any](w http.ResponseWriter, status int, data T, message string) {
	writeJSON(w, status, domain.APIResponse[T]{
		Data:    data,
		Success: true,
		Code:    status,
		Message: message,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, domain.APIResponse[any]{
		Success: false,
		Code:    status,
		Message: message,
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, domain.APIResponse[validator.ValidationErrors]{
		Data:    errs,
		Success: false,
		Code:    http.StatusBadRequest,
		Message: "Validation failed",
	})
}

func queryUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid id", key)
	}
	return id, nil
}
