package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// TokenStorage implements the TokenStorage interface for Badger
type TokenStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTokenStorage creates a new TokenStorage instance
func NewTokenStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TokenStorage {
	return &TokenStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TokenStorage) SaveToken(ctx context.Context, token *models.AuthToken) error {
	if token.Token == "" {
		return fmt.Errorf("token is required: %w", models.ErrValidation)
	}

	if err := s.db.Store().Upsert(token.Token, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *TokenStorage) GetToken(ctx context.Context, token string) (*models.AuthToken, error) {
	var record models.AuthToken
	if err := s.db.Store().Get(token, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &record, nil
}

func (s *TokenStorage) DeleteToken(ctx context.Context, token string) error {
	if err := s.db.Store().Delete(token, &models.AuthToken{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
