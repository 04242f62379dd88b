package handlers

import (
	"net/http"

	"procurement/db"
	"procurement/internal/apperr"
	"procurement/internal/auth"
)

type registerRequest struct {
	Username           string `json:"username" validate:"required,max=80"`
	Email              string `json:"email" validate:"required,email,max=120"`
	Password           string `json:"password" validate:"required,min=6"`
	Role               string `json:"role" validate:"omitempty,oneof=admin candidate"`
	CompanyName        string `json:"company_name" validate:"max=200"`
	Phone              string `json:"phone" validate:"max=20"`
	Address            string `json:"address"`
	RegistrationNumber string `json:"registration_number" validate:"max=100"`
}

// RegisterHandler handles POST /api/auth/register. For the candidate role
// the user and its company profile are created atomically.
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	if req.Role == "" {
		req.Role = db.RoleCandidate
	}
	if req.Role == db.RoleCandidate && req.CompanyName == "" {
		writeError(w, apperr.E(apperr.Validation, "company_name is required"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user := &db.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	candidate := &db.Candidate{
		CompanyName:        req.CompanyName,
		Phone:              req.Phone,
		Address:            req.Address,
		RegistrationNumber: req.RegistrationNumber,
	}

	if err := h.Store.CreateUserWithCandidate(r.Context(), user, candidate); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful",
		"user_id": user.ID,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginHandler handles POST /api/auth/login. Unknown email, inactive
// account and wrong password all produce the same response.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.checkRequest(&req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if !user.IsActive || !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, apperr.E(apperr.Authentication, "Invalid credentials"))
		return
	}

	token, err := h.Tokens.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}
