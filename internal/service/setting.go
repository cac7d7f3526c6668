package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

// SettingService manages the shop settings. Every operation is admin only.
type SettingService struct {
	settings storage.SettingRepository
	validate *validator.Validate
	log      *zap.SugaredLogger
}

func NewSettingService(settings storage.SettingRepository, log *zap.SugaredLogger) *SettingService {
	return &SettingService{
		settings: settings,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

func (s *SettingService) CreateSetting(ctx context.Context, caller *models.Claims, req models.SettingRequest) (*models.Setting, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	setting, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}

	created, err := s.settings.CreateSetting(ctx, setting)
	if err != nil {
		return nil, settingError("create setting", err)
	}
	s.log.Infow("Setting created", "settingID", created.ID, "name", created.Name, "by", caller.UserID)
	return created, nil
}

func (s *SettingService) ListSettings(ctx context.Context, caller *models.Claims) ([]models.Setting, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	settings, err := s.settings.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

func (s *SettingService) GetSetting(ctx context.Context, caller *models.Claims, id string) (*models.Setting, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	setting, err := s.settings.GetSetting(ctx, id)
	if err != nil {
		return nil, settingError("get setting", err)
	}
	return setting, nil
}

// UpdateSetting replaces the name and the whole list of values.
func (s *SettingService) UpdateSetting(ctx context.Context, caller *models.Claims, id string, req models.SettingRequest) (*models.Setting, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	setting, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	setting.ID = id

	updated, err := s.settings.UpdateSetting(ctx, setting)
	if err != nil {
		return nil, settingError("update setting", err)
	}
	return updated, nil
}

func (s *SettingService) DeleteSetting(ctx context.Context, caller *models.Claims, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	if err := s.settings.DeleteSetting(ctx, id); err != nil {
		return settingError("delete setting", err)
	}
	s.log.Infow("Setting deleted", "settingID", id, "by", caller.UserID)
	return nil
}

func (s *SettingService) fromRequest(req models.SettingRequest) (*models.Setting, error) {
	setting := &models.Setting{
		Name:   strings.TrimSpace(req.Name),
		Values: req.Values,
	}
	if err := s.validate.Struct(setting); err != nil {
		return nil, validationError("setting", err)
	}
	return setting, nil
}

func requireAdmin(caller *models.Claims) error {
	if caller == nil || caller.Role != models.RoleAdmin {
		return ErrNotAuthorized
	}
	return nil
}

func settingError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrSettingNotFound
	case errors.Is(err, storage.ErrDuplicateKey):
		return ErrSettingExists
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
