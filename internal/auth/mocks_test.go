package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fotoshare/auth-service/internal/logging"
	"github.com/fotoshare/auth-service/internal/user"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(true)
}

// fakeStore is an in-memory AccountStore. Mutations go through a mutex so the
// compare-and-swap semantics match what the Postgres repository provides.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*user.Account
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*user.Account)}
}

func (s *fakeStore) Create(_ context.Context, acct *user.Account) (*user.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.Email]; ok {
		return nil, user.ErrDuplicateEmail
	}

	s.nextID++
	stored := copyAccount(acct)
	stored.ID = s.nextID
	stored.CreatedAt = time.Now()
	s.accounts[acct.Email] = stored

	return copyAccount(stored), nil
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*user.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return copyAccount(acct), nil
}

func (s *fakeStore) SetRefreshToken(_ context.Context, accountID int64, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.byID(accountID)
	if acct == nil {
		return user.ErrNotFound
	}
	if token == nil {
		acct.RefreshToken = nil
	} else {
		value := *token
		acct.RefreshToken = &value
	}
	return nil
}

func (s *fakeStore) RotateRefreshToken(_ context.Context, accountID int64, current, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.byID(accountID)
	if acct == nil {
		return false, user.ErrNotFound
	}
	if acct.RefreshToken == nil || *acct.RefreshToken != current {
		return false, nil
	}
	acct.RefreshToken = &next
	return true, nil
}

func (s *fakeStore) SetConfirmed(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.byID(accountID)
	if acct == nil {
		return user.ErrNotFound
	}
	acct.Confirmed = true
	return nil
}

func (s *fakeStore) SetPasswordHash(_ context.Context, accountID int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct := s.byID(accountID)
	if acct == nil {
		return user.ErrNotFound
	}
	acct.PasswordHash = passwordHash
	return nil
}

// storedRefreshToken exposes the current stored token for assertions
func (s *fakeStore) storedRefreshToken(email string) *string {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[email]
	if !ok || acct.RefreshToken == nil {
		return nil
	}
	value := *acct.RefreshToken
	return &value
}

func (s *fakeStore) byID(accountID int64) *user.Account {
	for _, acct := range s.accounts {
		if acct.ID == accountID {
			return acct
		}
	}
	return nil
}

func copyAccount(acct *user.Account) *user.Account {
	cp := *acct
	if acct.RefreshToken != nil {
		value := *acct.RefreshToken
		cp.RefreshToken = &value
	}
	return &cp
}

// sentMail records one outbound email
type sentMail struct {
	kind     string // "confirmation" or "reset"
	to       string
	username string
	token    string
}

// fakeMailer captures sends on a channel since the service dispatches them
// from goroutines.
type fakeMailer struct {
	sent chan sentMail
	fail bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan sentMail, 16)}
}

func (m *fakeMailer) SendConfirmation(_ context.Context, toEmail, username, token string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent <- sentMail{kind: "confirmation", to: toEmail, username: username, token: token}
	return nil
}

func (m *fakeMailer) SendReset(_ context.Context, toEmail, username, token string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent <- sentMail{kind: "reset", to: toEmail, username: username, token: token}
	return nil
}

// waitMail blocks until a mail is captured or the test times out
func waitMail(t *testing.T, m *fakeMailer) sentMail {
	t.Helper()
	select {
	case mail := <-m.sent:
		return mail
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound email")
		return sentMail{}
	}
}

// requireNoMail asserts that nothing was dispatched
func requireNoMail(t *testing.T, m *fakeMailer) {
	t.Helper()
	select {
	case mail := <-m.sent:
		t.Fatalf("unexpected outbound email: %+v", mail)
	case <-time.After(100 * time.Millisecond):
	}
}

// fakeConsumer tracks consumed token ids in memory
type fakeConsumer struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{seen: make(map[string]bool)}
}

func (c *fakeConsumer) Consume(_ context.Context, tokenID string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 || c.seen[tokenID] {
		return false, nil
	}
	c.seen[tokenID] = true
	return true, nil
}

var _ AccountStore = (*fakeStore)(nil)
var _ Mailer = (*fakeMailer)(nil)
var _ TokenConsumer = (*fakeConsumer)(nil)

// testEnv bundles a service with its collaborators for the lifecycle tests
type testEnv struct {
	service  *Service
	store    *fakeStore
	mailer   *fakeMailer
	consumer *fakeConsumer
	codec    *Codec
	hasher   *Hasher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvTTLs(t, TokenTTLs{
		Access:  15 * time.Minute,
		Refresh: 7 * 24 * time.Hour,
		Verify:  24 * time.Hour,
		Reset:   time.Hour,
	})
}

func newTestEnvTTLs(t *testing.T, ttls TokenTTLs) *testEnv {
	t.Helper()

	codec := newTestCodec(t)
	hasher := newTestHasher()
	store := newFakeStore()
	mailer := newFakeMailer()
	consumer := newFakeConsumer()

	service := NewService(store, mailer, consumer, codec, hasher, testLogger(), ttls)

	return &testEnv{
		service:  service,
		store:    store,
		mailer:   mailer,
		consumer: consumer,
		codec:    codec,
		hasher:   hasher,
	}
}

// registerConfirmed creates a confirmed account directly in the store
func (e *testEnv) registerConfirmed(t *testing.T, email, username, password string) {
	t.Helper()

	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)

	acct, err := e.store.Create(context.Background(), &user.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)
	require.NoError(t, e.store.SetConfirmed(context.Background(), acct.ID))
}
