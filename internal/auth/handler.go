package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fotoshare/auth-service/internal/httputil"
	"github.com/fotoshare/auth-service/internal/logging"
	"github.com/fotoshare/auth-service/internal/user"
)

// Handler contains HTTP handlers for the auth endpoints
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// SignupRequest represents the registration request body
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RequestEmailRequest carries an email address for the confirmation and
// password reset request endpoints
type RequestEmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token             string `json:"token"`
	NewPassword       string `json:"new_password"`
	RepeatNewPassword string `json:"r_new_password"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// MessageResponse is a plain informational response
type MessageResponse struct {
	Message string `json:"message"`
}

// Signup handles account registration
// @Summary      Register a new account
// @Description  Create an account with username, email and password. A confirmation email is sent in the background.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Registration details"
// @Success      201 {object} AccountResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already registered"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	acct, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountExists):
			logger.Warn("signup failed: email already registered")
			httputil.RespondErrorWithCode(w, "account already exists", httputil.CodeAccountExists, http.StatusConflict)
		case errors.Is(err, ErrUsernameLength):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeUsernameInvalid, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmailFormat):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		default:
			logger.Error("signup failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register account", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("account registered", "account_id", acct.ID)

	httputil.RespondJSON(w, accountResponse(acct), http.StatusCreated)
}

// Login handles credential verification and token issuance
// @Summary      Log in
// @Description  Verify credentials and receive an access/refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} TokenPair
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Unknown account, unconfirmed email, or bad password"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownAccount):
			logger.Warn("login failed: unknown account")
			httputil.RespondErrorWithCode(w, "invalid email", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, ErrAccountUnconfirmed):
			logger.Warn("login failed: email not confirmed")
			httputil.RespondErrorWithCode(w, "email not confirmed", httputil.CodeAccountUnconfirmed, http.StatusUnauthorized)
		case errors.Is(err, ErrBadCredential):
			logger.Warn("login failed: bad password")
			httputil.RespondErrorWithCode(w, "invalid password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("login successful")

	httputil.RespondJSON(w, pair, http.StatusOK)
}

// Refresh handles refresh token rotation
// @Summary      Refresh the token pair
// @Description  Present the current refresh token (Authorization header or body) to receive a rotated pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        Authorization header string false "Bearer refresh token"
// @Param        request body RefreshRequest false "Refresh token"
// @Success      200 {object} TokenPair
// @Failure      400 {object} httputil.ErrorResponse "Refresh token missing"
// @Failure      401 {object} httputil.ErrorResponse "Invalid, expired, or reused refresh token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/refresh [get]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := bearerToken(r)
	if refreshToken == "" {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			refreshToken = strings.TrimSpace(req.RefreshToken)
		}
	}

	if refreshToken == "" {
		logger.Warn("refresh token missing from header and body")
		httputil.RespondErrorWithCode(w, "refresh token required", httputil.CodeRefreshRequired, http.StatusBadRequest)
		return
	}

	pair, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrRefreshReuseDetected):
			logger.Warn("token refresh failed: reuse detected")
			httputil.RespondErrorWithCode(w, "invalid refresh token", httputil.CodeRefreshReuse, http.StatusUnauthorized)
		case errors.Is(err, ErrTokenExpired):
			logger.Warn("token refresh failed: token expired")
			httputil.RespondErrorWithCode(w, "refresh token expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
		case errors.Is(err, ErrTokenScopeMismatch):
			logger.Warn("token refresh failed: scope mismatch")
			httputil.RespondErrorWithCode(w, "token not valid for refresh", httputil.CodeTokenScopeMismatch, http.StatusUnauthorized)
		case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrUnknownAccount):
			logger.Warn("token refresh failed: invalid token")
			httputil.RespondErrorWithCode(w, "invalid refresh token", httputil.CodeInvalidToken, http.StatusUnauthorized)
		default:
			logger.Error("token refresh failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to refresh token", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("token pair rotated")

	httputil.RespondJSON(w, pair, http.StatusOK)
}

// Logout revokes the current refresh token
// @Summary      Log out
// @Description  Revoke the account's stored refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token"
// @Success      200 {object} MessageResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := bearerToken(r)
	if refreshToken == "" {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			refreshToken = strings.TrimSpace(req.RefreshToken)
		}
	}

	if refreshToken != "" {
		if err := h.service.Logout(r.Context(), refreshToken); err != nil {
			// Revocation of an already-dead token is not an error worth
			// surfacing to the caller.
			logger.Warn("logout revocation failed", "error", err.Error())
		}
	}

	logger.Info("logged out")

	httputil.RespondJSON(w, MessageResponse{Message: "logged out"}, http.StatusOK)
}

// RequestConfirmation re-sends the confirmation email
// @Summary      Request a confirmation email
// @Description  Send a fresh confirmation email. The response never reveals whether the account exists.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RequestEmailRequest true "Email address"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Router       /auth/request-confirmation [post]
func (h *Handler) RequestConfirmation(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RequestEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid confirmation request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	already, err := h.service.RequestConfirmation(r.Context(), req.Email)
	if err != nil {
		logger.Error("confirmation request failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to request confirmation", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	if already {
		httputil.RespondJSON(w, MessageResponse{Message: "Your email is already confirmed."}, http.StatusOK)
		return
	}

	httputil.RespondJSON(w, MessageResponse{Message: "Check your email for a confirmation link."}, http.StatusOK)
}

// Confirm consumes an email confirmation token
// @Summary      Confirm email address
// @Description  Confirm an account's email using the token from the confirmation link
// @Tags         auth
// @Produce      json
// @Param        token query string true "Confirmation token"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid or expired token"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/confirm [get]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		logger.Warn("confirmation failed: token missing")
		httputil.RespondErrorWithCode(w, "confirmation token required", httputil.CodeTokenRequired, http.StatusBadRequest)
		return
	}

	already, err := h.service.Confirm(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			logger.Warn("confirmation failed: token expired")
			httputil.RespondErrorWithCode(w, "confirmation link has expired, request a new one", httputil.CodeTokenExpired, http.StatusBadRequest)
		case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenScopeMismatch), errors.Is(err, ErrUnknownAccount):
			logger.Warn("confirmation failed: verification error")
			httputil.RespondErrorWithCode(w, "verification error", httputil.CodeVerificationFailed, http.StatusBadRequest)
		default:
			logger.Error("confirmation failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to confirm email", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	if already {
		httputil.RespondJSON(w, MessageResponse{Message: "Your email is already confirmed."}, http.StatusOK)
		return
	}

	logger.Info("email confirmed")

	httputil.RespondJSON(w, MessageResponse{Message: "Email confirmed."}, http.StatusOK)
}

// ForgotPassword starts the password reset flow
// @Summary      Request a password reset
// @Description  Send a password reset link. Always answers with the generic success message.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RequestEmailRequest true "Email address"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req RequestEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	// Always the generic answer, whether or not the account exists.
	_ = h.service.RequestPasswordReset(r.Context(), req.Email)

	httputil.RespondJSON(w, MessageResponse{
		Message: "If an account exists with that email, a password reset link has been sent.",
	}, http.StatusOK)
}

// ResetPassword completes the password reset flow
// @Summary      Reset password
// @Description  Set a new password using a valid reset token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid token or password"
// @Failure      404 {object} httputil.ErrorResponse "Account no longer exists"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if req.NewPassword != req.RepeatNewPassword {
		httputil.RespondErrorWithCode(w, "passwords do not match", httputil.CodePasswordMismatch, http.StatusBadRequest)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			logger.Warn("password reset failed: token expired")
			httputil.RespondErrorWithCode(w, "reset link has expired, request a new one", httputil.CodeTokenExpired, http.StatusBadRequest)
		case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenScopeMismatch):
			logger.Warn("password reset failed: invalid token")
			httputil.RespondErrorWithCode(w, "invalid reset token", httputil.CodeInvalidToken, http.StatusBadRequest)
		case errors.Is(err, ErrUnknownAccount):
			logger.Warn("password reset failed: account not found")
			httputil.RespondErrorWithCode(w, "account not found", httputil.CodeAccountNotFound, http.StatusNotFound)
		case errors.Is(err, ErrPasswordRequired):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordRequired, http.StatusBadRequest)
		case errors.Is(err, ErrPasswordTooShort):
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodePasswordTooShort, http.StatusBadRequest)
		default:
			logger.Error("password reset failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to reset password", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("password reset completed")

	httputil.RespondJSON(w, MessageResponse{
		Message: "Password reset successfully. You can now login with your new password.",
	}, http.StatusOK)
}

// bearerToken pulls a bearer token out of the Authorization header, empty
// string when absent or malformed
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func accountResponse(acct *user.Account) AccountResponse {
	return AccountResponse{
		ID:       acct.ID,
		Username: acct.Username,
		Email:    acct.Email,
		Avatar:   acct.Avatar,
	}
}
