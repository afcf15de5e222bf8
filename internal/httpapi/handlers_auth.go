package httpapi

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"MentorMatchserver/internal/domain"
	"MentorMatchserver/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type authResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func writeAuth(w http.ResponseWriter, status int, u domain.User, tok service.IssuedToken) {
	WriteJSON(w, status, authResponse{
		User:      newUserResponse(u),
		Token:     tok.Token,
		ExpiresAt: tok.ExpiresAt,
	})
}

func (a *api) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	u, tok, err := a.authSvc.Register(r.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeAuth(w, http.StatusCreated, u, tok)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"email": "required", "password": "required"}))
		return
	}

	now := time.Now()
	ipKey := "ip:" + clientIP(r)
	emailKey := "email:" + email
	if retry, ok := a.loginLimiter.Allow(ipKey, now); !ok {
		writeRateLimited(w, retry)
		return
	}
	if retry, ok := a.loginLimiter.Allow(emailKey, now); !ok {
		writeRateLimited(w, retry)
		return
	}

	u, tok, err := a.authSvc.Login(r.Context(), email, req.Password)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	a.loginLimiter.Reset(emailKey)

	writeAuth(w, http.StatusOK, u, tok)
}

type externalLoginRequest struct {
	IDToken string `json:"id_token"`
	Role    string `json:"role"`
}

func (a *api) handleAuthLoginGoogle(w http.ResponseWriter, r *http.Request) {
	a.handleExternalLogin(w, r, a.authSvc.LoginWithGoogle)
}

func (a *api) handleAuthLoginApple(w http.ResponseWriter, r *http.Request) {
	a.handleExternalLogin(w, r, a.authSvc.LoginWithApple)
}

func (a *api) handleExternalLogin(w http.ResponseWriter, r *http.Request, login func(ctx context.Context, idToken, role string) (domain.User, service.IssuedToken, error)) {
	var req externalLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id_token": "required"}))
		return
	}

	if retry, ok := a.loginLimiter.Allow("ip:"+clientIP(r), time.Now()); !ok {
		writeRateLimited(w, retry)
		return
	}

	u, tok, err := login(r.Context(), req.IDToken, req.Role)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	writeAuth(w, http.StatusOK, u, tok)
}

func writeRateLimited(w http.ResponseWriter, retry time.Duration) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
