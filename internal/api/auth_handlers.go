package api

import (
	"net/http"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/readmodel"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	backend    *Backend
	jwtService *auth.JWTService
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(backend *Backend, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{backend: backend, jwtService: jwtService}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req apiclient.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.backend.Register(req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}
	h.issueTokens(w, user)
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.backend.Authenticate(req.Email, req.Password)
	if err != nil {
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	h.issueTokens(w, user)
}

// Refresh trades a refresh token for a new pair
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		respondJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	user, err := h.backend.User(userID)
	if err != nil {
		respondJSONError(w, "User not found", http.StatusUnauthorized)
		return
	}
	h.issueTokens(w, user)
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.backend.User(middleware.GetUserID(r.Context()))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandlers) issueTokens(w http.ResponseWriter, user readmodel.User) {
	access, _, err := h.jwtService.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		respondJSONError(w, "Failed to issue tokens", http.StatusInternalServerError)
		return
	}
	refresh, _, err := h.jwtService.GenerateRefreshToken(user.ID)
	if err != nil {
		respondJSONError(w, "Failed to issue tokens", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, readmodel.AuthResponse{AccessToken: access, RefreshToken: refresh, User: user})
}
