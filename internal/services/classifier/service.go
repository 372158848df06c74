package classifier

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/interfaces"
	"github.com/ternarybob/steward/internal/models"
)

// RemoteClassifier is the remote inference strategy. Complete returns
// the raw reply text for one prompt pair.
type RemoteClassifier interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Service composes the remote strategy with the deterministic keyword
// fallback. Classify never fails outward: any remote transport error,
// timeout, or malformed reply falls through to the fallback. The
// fallback is invoked only on remote failure, never speculatively.
type Service struct {
	remote   RemoteClassifier
	fallback *FallbackClassifier
	logger   arbor.ILogger
}

// NewService creates a classifier service. remote may be nil, in which
// case every classification uses the keyword fallback.
func NewService(remote RemoteClassifier, logger arbor.ILogger) interfaces.Classifier {
	return &Service{
		remote:   remote,
		fallback: NewFallbackClassifier(),
		logger:   logger,
	}
}

// Classify assigns a category and priority to a request description
func (s *Service) Classify(ctx context.Context, description string, policy models.ClassifyPolicy) models.Classification {
	if s.remote != nil {
		reply, err := s.remote.Complete(ctx, SystemPrompt(policy), UserPrompt(description))
		if err == nil {
			result, parseErr := ParseReply(reply, policy)
			if parseErr == nil {
				s.logger.Debug().
					Str("category", string(result.Category)).
					Str("priority", string(result.Priority)).
					Msg("Remote classification succeeded")
				return result
			}
			err = parseErr
		}

		s.logger.Warn().
			Err(err).
			Msg("Remote classification failed, using keyword fallback")
	}

	result := s.fallback.Classify(description)
	s.logger.Debug().
		Str("category", string(result.Category)).
		Str("priority", string(result.Priority)).
		Msg("Keyword fallback classification")
	return result
}
