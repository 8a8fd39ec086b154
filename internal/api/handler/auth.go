package handler

import (
	"net/http"

	"github.com/mcoot/bughunt/internal/api/apierr"
	"github.com/mcoot/bughunt/internal/api/request"
	"github.com/mcoot/bughunt/internal/api/response"
	"github.com/mcoot/bughunt/internal/services/auth"
)

// AuthHandler handles registration and login
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if req.Username == "" || req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Username and password are required"))
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponse{
		Message: "User created successfully",
		User:    response.UserFromModel(user),
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	if req.Username == "" || req.Password == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Username and password are required"))
		return
	}

	user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponse{
		Message: "Login successful",
		User:    response.UserFromModel(user),
	})
}
