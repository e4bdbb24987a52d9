package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taskforge/authcore/internal/api/middleware"
	"github.com/taskforge/authcore/internal/corerr"
	"github.com/taskforge/authcore/internal/credential"
	"github.com/taskforge/authcore/internal/mfa"
)

// AuthHandler wraps credential.Service and mfa.Service behind HTTP routes.
// Adapted from the prior service's AuthHandler (internal/api/handlers.go): strict
// Content-Type enforcement, DisallowUnknownFields decoding, and "log the
// cause, return the generic message" on every internal failure.
type AuthHandler struct {
	credentials *credential.Service
	mfaSvc      *mfa.Service
}

func NewAuthHandler(credentials *credential.Service, mfaSvc *mfa.Service) *AuthHandler {
	return &AuthHandler{credentials: credentials, mfaSvc: mfaSvc}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		slog.Warn("request body decode failed", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

type signUpRequest struct {
	Handle   string `json:"handle"`
	Contact  string `json:"contact"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.credentials.SignUp(r.Context(), req.Handle, req.Contact, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": p.ID, "handle": p.Handle, "role": p.Role, "tier": p.Tier})
}

type signInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	MFACode    string `json:"mfa_code,omitempty"`
}

type signInResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.credentials.SignIn(r.Context(), req.Identifier, req.Password, req.MFACode)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{AccessToken: result.AccessToken, RefreshToken: result.RefreshPlaintext})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.credentials.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{AccessToken: result.AccessToken, RefreshToken: result.RefreshPlaintext})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.credentials.SignOut(r.Context(), req.RefreshToken); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignOutAll sits behind AuthMiddleware; it acts on the caller's own
// principal rather than a request body field, so a stolen refresh token
// for a different session can't be used to sign another principal out.
func (h *AuthHandler) SignOutAll(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.MustPrincipalID(r.Context())
	if err := h.credentials.SignOutAll(r.Context(), principalID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetRequestRequest struct {
	Contact string `json:"contact"`
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.credentials.RequestPasswordReset(r.Context(), req.Contact); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type resetCompleteRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetCompleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.credentials.CompletePasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	principalID := middleware.MustPrincipalID(r.Context())
	if err := h.credentials.ChangePassword(r.Context(), principalID, req.CurrentPassword, req.NewPassword); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.credentials.VerifyEmail(r.Context(), req.Token); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mfaSetupResponse struct {
	Secret      string   `json:"secret"`
	QRCodePNG   []byte   `json:"qr_code_png"`
	BackupCodes []string `json:"backup_codes"`
}

// SetupMFA sits behind AuthMiddleware: it begins enrollment for the
// calling principal and returns the secret, QR code, and one-time view of
// the plaintext backup codes. The secret and backup-code hashes are
// already persisted at this point, pending confirmation — only Enabled()
// gates whether sign-in actually challenges for a code.
func (h *AuthHandler) SetupMFA(w http.ResponseWriter, r *http.Request) {
	principalID := middleware.MustPrincipalID(r.Context())
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		WriteError(w, corerr.Unauthorized)
		return
	}
	enrollment, err := h.mfaSvc.BeginEnrollment(r.Context(), principalID, p.Contact)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mfaSetupResponse{
		Secret:      enrollment.Secret,
		QRCodePNG:   enrollment.QRCode,
		BackupCodes: enrollment.BackupCodes,
	})
}

type mfaActivateRequest struct {
	Code string `json:"code"`
}

// ActivateMFA proves control of the pending secret and flips it to
// enabled for the calling principal.
func (h *AuthHandler) ActivateMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaActivateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	principalID := middleware.MustPrincipalID(r.Context())
	if err := h.mfaSvc.ConfirmEnrollment(r.Context(), principalID, req.Code); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mfaVerifyRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Code       string `json:"code"`
}

// VerifyMFA is a convenience alias for sign-in with an explicit MFA code,
// kept as its own route because some clients split the credential and
// second-factor prompts into two screens.
func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.credentials.SignIn(r.Context(), req.Identifier, req.Password, req.Code)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signInResponse{AccessToken: result.AccessToken, RefreshToken: result.RefreshPlaintext})
}
