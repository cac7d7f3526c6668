package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

// Storage keeps every collection in process memory. Expiry is emulated on read so that
// the behaviour matches the TTL indexes of the real backends.
type Storage struct {
	mu            sync.RWMutex
	users         map[string]models.User
	emails        map[string]string
	refreshTokens map[string]models.RefreshTokenRecord
	revoked       map[string]time.Time
	settings      map[string]models.Setting
	settingNames  map[string]string
	log           *zap.SugaredLogger
	now           func() time.Time
}

func NewStorage(log *zap.SugaredLogger) *Storage {
	return &Storage{
		users:         make(map[string]models.User),
		emails:        make(map[string]string),
		refreshTokens: make(map[string]models.RefreshTokenRecord),
		revoked:       make(map[string]time.Time),
		settings:      make(map[string]models.Setting),
		settingNames:  make(map[string]string),
		log:           log,
		now:           time.Now,
	}
}

// WithClock replaces the clock used for expiry checks.
func (m *Storage) WithClock(now func() time.Time) *Storage {
	m.now = now
	return m
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Storage) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeEmail(user.Email)
	if _, ok := m.emails[key]; ok {
		return nil, storage.ErrDuplicateKey
	}

	u := *user
	u.ID = uuid.NewString()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now().UTC()
	}
	m.users[u.ID] = u
	m.emails[key] = u.ID
	m.log.Debugw("User created", "userID", u.ID)

	return &u, nil
}

func (m *Storage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (m *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[normalizeEmail(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *Storage) UpsertUserByEmail(_ context.Context, email string, fields models.UserUpsert) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeEmail(email)
	id, ok := m.emails[key]
	var u models.User
	if ok {
		u = m.users[id]
	} else {
		u = models.User{
			ID:        uuid.NewString(),
			Email:     email,
			Role:      models.RoleCustomer,
			CreatedAt: m.now().UTC(),
		}
		m.emails[key] = u.ID
	}
	u.Name = fields.Name
	u.AuthProvider = fields.AuthProvider
	u.Confirmed = true
	m.users[u.ID] = u

	return &u, nil
}

func (m *Storage) ListUsers(_ context.Context, skip, limit int) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if skip >= len(all) {
		return []models.User{}, nil
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (m *Storage) UpdateUser(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.users[user.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	oldKey, newKey := normalizeEmail(current.Email), normalizeEmail(user.Email)
	if oldKey != newKey {
		if _, taken := m.emails[newKey]; taken {
			return nil, storage.ErrDuplicateKey
		}
		delete(m.emails, oldKey)
		m.emails[newKey] = user.ID
	}

	u := *user
	u.CreatedAt = current.CreatedAt
	m.users[u.ID] = u
	return &u, nil
}

func (m *Storage) SetUserConfirmed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Confirmed = true
	m.users[id] = u
	return nil
}

func (m *Storage) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(m.users, id)
	delete(m.emails, normalizeEmail(u.Email))
	return nil
}

func (m *Storage) PutRefreshToken(_ context.Context, record models.RefreshTokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshTokens[record.UserID] = record
	m.log.Debugw("Refresh token stored", "userID", record.UserID, "jti", record.JTI)
	return nil
}

func (m *Storage) GetRefreshToken(_ context.Context, userID string) (*models.RefreshTokenRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.refreshTokens[userID]
	if !ok || !rec.Live(m.now()) {
		return nil, storage.ErrNotFound
	}
	return &rec, nil
}

func (m *Storage) DeleteRefreshToken(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.refreshTokens, userID)
	return nil
}

// RefreshTokenCount is used by tests to check the one-record-per-user invariant.
func (m *Storage) RefreshTokenCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.refreshTokens[userID]; ok {
		return 1
	}
	return 0
}

func (m *Storage) Revoke(_ context.Context, token models.RevokedToken) error {
	now := m.now()
	if err := token.Validate(now); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.revoked[token.JTI]; ok && exp.After(now) {
		return storage.ErrDuplicateKey
	}
	m.revoked[token.JTI] = token.Exp
	return nil
}

func (m *Storage) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exp, ok := m.revoked[jti]
	return ok && exp.After(m.now()), nil
}
