package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fotoshare/auth-service/internal/httputil"
)

func newTestHandler(t *testing.T) (*Handler, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewHandler(env.service, testLogger()), env
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHandlerSignup(t *testing.T) {
	h, env := newTestHandler(t)

	rec := postJSON(t, h.Signup, "/auth/signup", SignupRequest{
		Username: "alice",
		Email:    "a@x.com",
		Password: "password1",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[AccountResponse](t, rec)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "a@x.com", resp.Email)
	assert.NotEmpty(t, resp.Avatar)
	waitMail(t, env.mailer)

	// re-registering the same email conflicts
	rec = postJSON(t, h.Signup, "/auth/signup", SignupRequest{
		Username: "alice2",
		Email:    "a@x.com",
		Password: "password2",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	errResp := decodeBody[httputil.ErrorResponse](t, rec)
	assert.Equal(t, httputil.CodeAccountExists, errResp.Code)
}

func TestHandlerSignup_Validation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name     string
		body     SignupRequest
		wantCode string
	}{
		{"short username", SignupRequest{Username: "ab", Email: "a@x.com", Password: "password1"}, httputil.CodeUsernameInvalid},
		{"bad email", SignupRequest{Username: "alice", Email: "nope", Password: "password1"}, httputil.CodeInvalidEmailFormat},
		{"missing password", SignupRequest{Username: "alice", Email: "a@x.com"}, httputil.CodePasswordRequired},
		{"short password", SignupRequest{Username: "alice", Email: "a@x.com", Password: "abc"}, httputil.CodePasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Signup, "/auth/signup", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeBody[httputil.ErrorResponse](t, rec).Code)
		})
	}
}

func TestHandlerSignup_BadBody(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Signup(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidRequestBody, decodeBody[httputil.ErrorResponse](t, rec).Code)
}

func TestHandlerLogin(t *testing.T) {
	h, env := newTestHandler(t)
	env.registerConfirmed(t, "a@x.com", "alice", "password1")

	rec := postJSON(t, h.Login, "/auth/login", LoginRequest{Email: "a@x.com", Password: "password1"})
	require.Equal(t, http.StatusOK, rec.Code)

	pair := decodeBody[TokenPair](t, rec)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestHandlerLogin_Failures(t *testing.T) {
	h, env := newTestHandler(t)
	env.registerConfirmed(t, "a@x.com", "alice", "password1")

	_, err := env.service.Register(context.Background(), "bobby", "b@x.com", "password1")
	require.NoError(t, err)
	waitMail(t, env.mailer)

	tests := []struct {
		name     string
		body     LoginRequest
		wantCode string
		wantMsg  string
	}{
		{"unknown account", LoginRequest{Email: "missing@x.com", Password: "password1"}, httputil.CodeInvalidCredentials, "invalid email"},
		{"unconfirmed", LoginRequest{Email: "b@x.com", Password: "password1"}, httputil.CodeAccountUnconfirmed, "email not confirmed"},
		{"bad password", LoginRequest{Email: "a@x.com", Password: "wrong"}, httputil.CodeInvalidCredentials, "invalid password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Login, "/auth/login", tt.body)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			resp := decodeBody[httputil.ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Error)
		})
	}
}

func TestHandlerRefresh_Header(t *testing.T) {
	h, env := newTestHandler(t)
	env.registerConfirmed(t, "a@x.com", "alice", "password1")

	pair, err := env.service.Login(context.Background(), "a@x.com", "password1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decodeBody[TokenPair](t, rec)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
}

func TestHandlerRefresh_BodyFallback(t *testing.T) {
	h, env := newTestHandler(t)
	env.registerConfirmed(t, "a@x.com", "alice", "password1")

	pair, err := env.service.Login(context.Background(), "a@x.com", "password1")
	require.NoError(t, err)

	rec := postJSON(t, h.Refresh, "/auth/refresh", RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerRefresh_Missing(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeRefreshRequired, decodeBody[httputil.ErrorResponse](t, rec).Code)
}

func TestHandlerRefresh_Reuse(t *testing.T) {
	h, env := newTestHandler(t)
	env.registerConfirmed(t, "a@x.com", "alice", "password1")

	pair, err := env.service.Login(context.Background(), "a@x.com", "password1")
	require.NoError(t, err)
	_, err = env.service.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeBody[httputil.ErrorResponse](t, rec)
	assert.Equal(t, httputil.CodeRefreshReuse, resp.Code)
	// the message stays generic, the machine code carries the detail
	assert.Equal(t, "invalid refresh token", resp.Error)
}

func TestHandlerLogout(t *testing.T) {
	h, env := newTestHandler(t)
	env.registerConfirmed(t, "a@x.com", "alice", "password1")

	pair, err := env.service.Login(context.Background(), "a@x.com", "password1")
	require.NoError(t, err)

	rec := postJSON(t, h.Logout, "/auth/logout", RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, env.store.storedRefreshToken("a@x.com"))

	// logout is always 200, even with nothing to revoke
	rec = postJSON(t, h.Logout, "/auth/logout", RefreshRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerConfirm(t *testing.T) {
	h, env := newTestHandler(t)

	_, err := env.service.Register(context.Background(), "alice", "a@x.com", "password1")
	require.NoError(t, err)
	mail := waitMail(t, env.mailer)

	req := httptest.NewRequest(http.MethodGet, "/auth/confirm?token="+mail.token, nil)
	rec := httptest.NewRecorder()
	h.Confirm(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email confirmed.", decodeBody[MessageResponse](t, rec).Message)

	// second visit of the same link
	rec = httptest.NewRecorder()
	h.Confirm(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Your email is already confirmed.", decodeBody[MessageResponse](t, rec).Message)
}

func TestHandlerConfirm_BadToken(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/confirm?token=garbage", nil)
	rec := httptest.NewRecorder()
	h.Confirm(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeVerificationFailed, decodeBody[httputil.ErrorResponse](t, rec).Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/confirm", nil)
	rec = httptest.NewRecorder()
	h.Confirm(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeTokenRequired, decodeBody[httputil.ErrorResponse](t, rec).Code)
}

func TestHandlerForgotPassword_AlwaysGeneric(t *testing.T) {
	h, env := newTestHandler(t)
	env.registerConfirmed(t, "a@x.com", "alice", "password1")

	const generic = "If an account exists with that email, a password reset link has been sent."

	rec := postJSON(t, h.ForgotPassword, "/auth/forgot-password", RequestEmailRequest{Email: "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, generic, decodeBody[MessageResponse](t, rec).Message)
	waitMail(t, env.mailer)

	rec = postJSON(t, h.ForgotPassword, "/auth/forgot-password", RequestEmailRequest{Email: "missing@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, generic, decodeBody[MessageResponse](t, rec).Message)
	requireNoMail(t, env.mailer)
}

func TestHandlerResetPassword(t *testing.T) {
	h, env := newTestHandler(t)
	ctx := context.Background()
	env.registerConfirmed(t, "a@x.com", "alice", "old-password")

	require.NoError(t, env.service.RequestPasswordReset(ctx, "a@x.com"))
	mail := waitMail(t, env.mailer)

	rec := postJSON(t, h.ResetPassword, "/auth/reset-password", ResetPasswordRequest{
		Token:             mail.token,
		NewPassword:       "new-password",
		RepeatNewPassword: "new-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := env.service.Login(ctx, "a@x.com", "new-password")
	assert.NoError(t, err)
}

func TestHandlerResetPassword_Mismatch(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.ResetPassword, "/auth/reset-password", ResetPasswordRequest{
		Token:             "whatever",
		NewPassword:       "new-password",
		RepeatNewPassword: "different",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodePasswordMismatch, decodeBody[httputil.ErrorResponse](t, rec).Code)
}

func TestHandlerResetPassword_BadToken(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postJSON(t, h.ResetPassword, "/auth/reset-password", ResetPasswordRequest{
		Token:             "garbage",
		NewPassword:       "new-password",
		RepeatNewPassword: "new-password",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidToken, decodeBody[httputil.ErrorResponse](t, rec).Code)
}
