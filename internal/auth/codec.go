package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// Claims are the decoded contents of a token
type Claims struct {
	Subject   string    // the account's email
	Scope     Scope     // declared purpose
	TokenID   string    // per-token nonce, used for single-use tracking
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies self-contained bearer tokens as PASETO v4.local
// (symmetric, XChaCha20-Poly1305). Validity is determined purely by the
// token itself: authenticity, expiry, and scope. The key is loaded once at
// startup and never rotated at runtime.
type Codec struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) != 32 {
		return nil, fmt.Errorf("token secret must be exactly 32 bytes, got %d", len(secret))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &Codec{symmetricKey: key}, nil
}

// Encode produces a signed token for the subject with the given scope and ttl
func (c *Codec) Encode(subject string, scope Scope, ttl time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetSubject(subject)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))
	token.SetString("scope", scope.String())
	token.SetString("jti", uuid.NewString())

	return token.V4Encrypt(c.symmetricKey, nil), nil
}

// Decode verifies a token and checks that its scope matches expectedScope.
// It fails with ErrTokenInvalid on authentication or structural failure,
// ErrTokenExpired past the embedded expiry, and ErrTokenScopeMismatch when
// the token was issued for a different purpose.
func (c *Codec) Decode(tokenStr string, expectedScope Scope) (*Claims, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(c.symmetricKey, tokenStr, nil)
	if err != nil {
		// The parser checks expiry by default; rule failures mean the token
		// authenticated but is outside its validity window.
		if errors.Is(err, &paseto.RuleError{}) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	scopeStr, err := token.GetString("scope")
	if err != nil {
		return nil, ErrTokenInvalid
	}
	scope, err := ParseScope(scopeStr)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if scope != expectedScope {
		return nil, ErrTokenScopeMismatch
	}

	subject, err := token.GetSubject()
	if err != nil || subject == "" {
		return nil, ErrTokenInvalid
	}

	tokenID, err := token.GetString("jti")
	if err != nil {
		return nil, ErrTokenInvalid
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return &Claims{
		Subject:   subject,
		Scope:     scope,
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
