package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

func copySetting(s models.Setting) *models.Setting {
	s.Values = slices.Clone(s.Values)
	return &s
}

func (m *Storage) CreateSetting(_ context.Context, setting *models.Setting) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.settingNames[setting.Name]; ok {
		return nil, storage.ErrDuplicateKey
	}

	s := *copySetting(*setting)
	s.ID = uuid.NewString()
	m.settings[s.ID] = s
	m.settingNames[s.Name] = s.ID
	return copySetting(s), nil
}

func (m *Storage) GetSetting(_ context.Context, id string) (*models.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copySetting(s), nil
}

func (m *Storage) ListSettings(_ context.Context) ([]models.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]models.Setting, 0, len(m.settings))
	for _, s := range m.settings {
		all = append(all, *copySetting(s))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (m *Storage) UpdateSetting(_ context.Context, setting *models.Setting) (*models.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.settings[setting.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if current.Name != setting.Name {
		if _, taken := m.settingNames[setting.Name]; taken {
			return nil, storage.ErrDuplicateKey
		}
		delete(m.settingNames, current.Name)
		m.settingNames[setting.Name] = setting.ID
	}

	s := *copySetting(*setting)
	m.settings[s.ID] = s
	return copySetting(s), nil
}

func (m *Storage) DeleteSetting(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(m.settings, id)
	delete(m.settingNames, s.Name)
	return nil
}
