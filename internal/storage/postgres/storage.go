package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/rryowa/shopapi/internal/storage"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

type Storage struct {
	db *sql.DB
	*UserRepository
	*RefreshTokenRepository
	*RevokedTokenRepository
	*SettingRepository
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		RefreshTokenRepository: NewRefreshTokenRepository(db),
		RevokedTokenRepository: NewRevokedTokenRepository(db),
		SettingRepository:      NewSettingRepository(db),
	}
}

// DeleteUser removes the refresh record and the account in one transaction.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := NewRefreshTokenRepository(tx).DeleteRefreshToken(ctx, id); err != nil {
		return err
	}
	if err := NewUserRepository(tx).DeleteUser(ctx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func translateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pqErr.Constraint)
		case codeForeignKeyViolation, codeInvalidText:
			return storage.ErrNotFound
		}
	}
	return err
}
