package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opshq/backoffice/internal/models"
	"github.com/opshq/backoffice/pkg/repository"
)

type AuthHandler struct {
	orgRepo       repository.OrganizationRepo
	userRepo      repository.UserRepo
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(or repository.OrganizationRepo, ur repository.UserRepo, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{orgRepo: or, userRepo: ur, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type signupRequest struct {
	Organization string `json:"organization"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	OrgID  int64  `json:"org_id"`
}

func (h *AuthHandler) issueToken(userID, orgID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"org_id":  orgID,
		"exp":     time.Now().Add(h.tokenDuration).Unix(),
	})
	return token.SignedString([]byte(h.jwtSecret))
}

// Signup creates a fresh organization and its first user in one call.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}

	req.Organization = strings.TrimSpace(req.Organization)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Organization == "" || req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, "missing fields", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, "error hashing password", http.StatusInternalServerError)
		return
	}

	// both rows are created in one transaction; a raced duplicate email rolls
	// the organization back and surfaces as a conflict
	orgID, userID, err := h.orgRepo.CreateOrganizationWithOwner(r.Context(),
		&models.Organization{Name: req.Organization},
		&models.User{Name: req.Name, Email: req.Email, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			writeError(w, "email already registered", http.StatusConflict)
			return
		}
		writeError(w, "error creating account", http.StatusInternalServerError)
		return
	}

	tokenStr, err := h.issueToken(userID, orgID)
	if err != nil {
		writeError(w, "error signing token", http.StatusInternalServerError)
		return
	}

	writeData(w, authResponse{Token: tokenStr, UserID: userID, OrgID: orgID}, http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, "missing fields", http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil || user == nil {
		writeError(w, "credentials not found", http.StatusUnauthorized)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, "credentials not found", http.StatusUnauthorized)
		return
	}

	tokenStr, err := h.issueToken(user.ID, user.OrgID)
	if err != nil {
		writeError(w, "error signing token", http.StatusInternalServerError)
		return
	}

	writeData(w, authResponse{Token: tokenStr, UserID: user.ID, OrgID: user.OrgID}, http.StatusOK)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// Stateless JWT, signout is client-side (just delete the token).
	writeData(w, map[string]string{"message": "signed out"}, http.StatusOK)
}
