package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret())
	require.NoError(t, err)
	return codec
}

func TestNewCodec_RejectsBadKeyLength(t *testing.T) {
	_, err := NewCodec([]byte("too short"))
	require.Error(t, err)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	for _, scope := range []Scope{ScopeAccess, ScopeRefresh, ScopeEmailVerify, ScopePasswordReset} {
		t.Run(scope.String(), func(t *testing.T) {
			token, err := codec.Encode("a@x.com", scope, time.Minute)
			require.NoError(t, err)

			claims, err := codec.Decode(token, scope)
			require.NoError(t, err)

			assert.Equal(t, "a@x.com", claims.Subject)
			assert.Equal(t, scope, claims.Scope)
			assert.NotEmpty(t, claims.TokenID)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt, 5*time.Second)
			assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 5*time.Second)
		})
	}
}

func TestCodec_ScopeMismatch(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode("a@x.com", ScopeAccess, time.Minute)
	require.NoError(t, err)

	_, err = codec.Decode(token, ScopeRefresh)
	assert.ErrorIs(t, err, ErrTokenScopeMismatch)

	_, err = codec.Decode(token, ScopePasswordReset)
	assert.ErrorIs(t, err, ErrTokenScopeMismatch)
}

func TestCodec_Expired(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode("a@x.com", ScopeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = codec.Decode(token, ScopeAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t)

	for _, bad := range []string{"", "not-a-token", "v4.local.garbage"} {
		_, err := codec.Decode(bad, ScopeAccess)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	}
}

func TestCodec_Tampered(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Encode("a@x.com", ScopeAccess, time.Minute)
	require.NoError(t, err)

	// Flip a character in the payload portion
	tampered := []byte(token)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	_, err = codec.Decode(string(tampered), ScopeAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestCodec_WrongKey(t *testing.T) {
	codec := newTestCodec(t)

	other, err := NewCodec([]byte(strings.Repeat("x", 32)))
	require.NoError(t, err)

	token, err := codec.Encode("a@x.com", ScopeRefresh, time.Minute)
	require.NoError(t, err)

	_, err = other.Decode(token, ScopeRefresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestCodec_TokensAreUnique(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.Encode("a@x.com", ScopeRefresh, time.Minute)
	require.NoError(t, err)
	second, err := codec.Encode("a@x.com", ScopeRefresh, time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	c1, err := codec.Decode(first, ScopeRefresh)
	require.NoError(t, err)
	c2, err := codec.Decode(second, ScopeRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, c1.TokenID, c2.TokenID)
}

func TestParseScope(t *testing.T) {
	for _, valid := range []string{"access", "refresh", "email-verify", "password-reset"} {
		scope, err := ParseScope(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, scope.String())
	}

	_, err := ParseScope("admin")
	assert.Error(t, err)

	_, err = ParseScope("")
	assert.Error(t, err)
}
