package handler

import (
	"net/http"

	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userService *service.UserService
	logger      *zap.Logger
}

func NewAuthHandler(userService *service.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load current user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// UpsertUser creates a user or updates the one with the same email
func (h *AuthHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UpsertUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.userService.Upsert(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to save user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// IssueToken signs a bearer token for an active user
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req domain.IssueTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.userService.IssueToken(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to issue token")
		return
	}
	respondJSON(w, http.StatusOK, token)
}
