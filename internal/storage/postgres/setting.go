package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
)

const settingColumns = `id, name, values_list`

type SettingRepository struct {
	db storage.DBTX
}

func NewSettingRepository(db storage.DBTX) *SettingRepository {
	return &SettingRepository{db: db}
}

func scanSetting(row rowScanner) (*models.Setting, error) {
	var s models.Setting
	var values pq.StringArray
	if err := row.Scan(&s.ID, &s.Name, &values); err != nil {
		return nil, err
	}
	s.Values = []string(values)
	return &s, nil
}

func (r *SettingRepository) CreateSetting(ctx context.Context, setting *models.Setting) (*models.Setting, error) {
	query := `INSERT INTO settings (` + settingColumns + `) VALUES ($1, $2, $3) RETURNING ` + settingColumns
	s, err := scanSetting(r.db.QueryRowContext(ctx, query, uuid.NewString(), setting.Name, pq.Array(setting.Values)))
	if err != nil {
		return nil, fmt.Errorf("failed to create setting: %w", translateError(err))
	}
	return s, nil
}

func (r *SettingRepository) GetSetting(ctx context.Context, id string) (*models.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM settings WHERE id = $1`
	s, err := scanSetting(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}
	return s, nil
}

func (r *SettingRepository) ListSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+settingColumns+` FROM settings ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	settings := []models.Setting{}
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

func (r *SettingRepository) UpdateSetting(ctx context.Context, setting *models.Setting) (*models.Setting, error) {
	query := `UPDATE settings SET name = $2, values_list = $3 WHERE id = $1 RETURNING ` + settingColumns
	s, err := scanSetting(r.db.QueryRowContext(ctx, query, setting.ID, setting.Name, pq.Array(setting.Values)))
	if err != nil {
		return nil, translateError(err)
	}
	return s, nil
}

func (r *SettingRepository) DeleteSetting(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete setting: %w", translateError(err))
	}
	return expectOneRow(res)
}
