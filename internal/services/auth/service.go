package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
)

// Service resolves bearer tokens to principals backed by token
// storage. Credential issuance lives outside this service; tokens are
// provisioned through IssueToken (ops tooling) or directly in storage.
type Service struct {
	tokens interfaces.TokenStorage
	logger arbor.ILogger
}

// NewService creates a new auth service
func NewService(tokens interfaces.TokenStorage, logger arbor.ILogger) *Service {
	return &Service{
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate resolves a bearer token to a principal
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.ErrUnauthorized
	}

	record, err := s.tokens.GetToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, fmt.Errorf("token lookup failed: %w", err)
	}

	principal := record.Principal
	return &principal, nil
}

// IssueToken creates and stores a new bearer token for a principal
func (s *Service) IssueToken(ctx context.Context, principal models.Principal) (string, error) {
	if principal.ID == "" {
		return "", fmt.Errorf("principal ID is required: %w", models.ErrValidation)
	}
	if principal.Role == "" {
		principal.Role = models.RoleUser
	}

	token := "tok_" + uuid.New().String()
	record := &models.AuthToken{
		Token:     token,
		Principal: principal,
	}
	if err := s.tokens.SaveToken(ctx, record); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.logger.Info().
		Str("principal_id", principal.ID).
		Str("role", string(principal.Role)).
		Str("issued_at", time.Now().Format(time.RFC3339)).
		Msg("Bearer token issued")

	return token, nil
}

// RevokeToken removes a bearer token
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	if err := s.tokens.DeleteToken(ctx, token); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil // Already gone
		}
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
