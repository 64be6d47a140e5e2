package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vedran77/dealerchat/internal/service"
	"github.com/vedran77/dealerchat/internal/transport/http/middleware"
	"github.com/vedran77/dealerchat/pkg/validator"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := validator.ValidateRegister(input.FullName, input.UserName, input.Phone, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "Username is already taken")
		} else {
			log.Printf("ERROR register: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeOK(w, http.StatusCreated, user, "Registered")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := validator.ValidateLogin(input.Username, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.authService.Login(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
		} else {
			log.Printf("ERROR login: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeOK(w, http.StatusOK, resp, "Logged in")
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var input service.RefreshInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	resp, err := h.authService.Refresh(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		} else {
			log.Printf("ERROR refresh: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeOK(w, http.StatusOK, resp, "Refreshed")
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.authService.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
		} else {
			log.Printf("ERROR profile: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeOK(w, http.StatusOK, user.Profile(), "")
}
