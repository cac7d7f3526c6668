package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/shopapi/internal/metrics"
	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
	"github.com/rryowa/shopapi/internal/storage/memory"
	"github.com/rryowa/shopapi/internal/util"
)

var errStoreDown = errors.New("store is down")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []models.ConfirmationMessage
}

func (n *recordingNotifier) NotifyConfirmation(_ context.Context, msg models.ConfirmationMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) last() models.ConfirmationMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msgs[len(n.msgs)-1]
}

// failingLedger rejects every write and optionally every read.
type failingLedger struct {
	storage.RevocationLedger
	failReads bool
}

func (l failingLedger) Revoke(context.Context, models.RevokedToken) error {
	return errStoreDown
}

func (l failingLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if l.failReads {
		return false, errStoreDown
	}
	return l.RevocationLedger.IsRevoked(ctx, jti)
}

type failingRefreshStore struct {
	storage.RefreshTokenStore
	failPut    bool
	failDelete bool
}

func (s failingRefreshStore) PutRefreshToken(ctx context.Context, rec models.RefreshTokenRecord) error {
	if s.failPut {
		return errStoreDown
	}
	return s.RefreshTokenStore.PutRefreshToken(ctx, rec)
}

func (s failingRefreshStore) DeleteRefreshToken(ctx context.Context, userID string) error {
	if s.failDelete {
		return errStoreDown
	}
	return s.RefreshTokenStore.DeleteRefreshToken(ctx, userID)
}

type testEnv struct {
	store    *memory.Storage
	clock    *fakeClock
	tokens   *TokenService
	hasher   *PasswordHasher
	registry *prometheus.Registry
	sessions *SessionService
	users    *UserService
	notifier *recordingNotifier
}

type envOption func(*envDeps)

type envDeps struct {
	refresh storage.RefreshTokenStore
	ledger  storage.RevocationLedger
}

func withRefreshStore(f func(storage.RefreshTokenStore) storage.RefreshTokenStore) envOption {
	return func(d *envDeps) { d.refresh = f(d.refresh) }
}

func withLedger(f func(storage.RevocationLedger) storage.RevocationLedger) envOption {
	return func(d *envDeps) { d.ledger = f(d.ledger) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	log := zap.NewNop().Sugar()
	clock := &fakeClock{t: time.Now().UTC().Truncate(time.Second)}
	store := memory.NewStorage(log).WithClock(clock.Now)

	deps := &envDeps{refresh: store, ledger: store}
	for _, opt := range opts {
		opt(deps)
	}

	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	tokens := NewTokenService(&util.TokenConfig{
		JwtSecretKey:    []byte("test-secret"),
		Issuer:          "shopapi-test",
		ConfirmationTTL: 24 * time.Hour,
	}, deps.refresh).WithClock(clock.Now)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	sessions := NewSessionService(store, deps.refresh, deps.ledger, tokens, hasher, collector, log)
	notifier := &recordingNotifier{}
	users := NewUserService(store, deps.refresh, sessions, tokens, hasher, notifier, log)

	return &testEnv{
		store:    store,
		clock:    clock,
		tokens:   tokens,
		hasher:   hasher,
		registry: registry,
		sessions: sessions,
		users:    users,
		notifier: notifier,
	}
}

func (e *testEnv) createUser(t *testing.T, email, password string, role models.Role, confirmed bool) *models.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	u, err := e.store.CreateUser(context.Background(), &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Confirmed:    confirmed,
		AuthProvider: models.AuthProviderEmail,
	})
	require.NoError(t, err)
	return u
}

// counter returns the value of the counter series with the given label pairs, or 0.
func (e *testEnv) counter(t *testing.T, name string, labelPairs ...string) float64 {
	t.Helper()
	families, err := e.registry.Gather()
	require.NoError(t, err)

	want := make(map[string]string, len(labelPairs)/2)
	for i := 0; i+1 < len(labelPairs); i += 2 {
		want[labelPairs[i]] = labelPairs[i+1]
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched == len(want) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
