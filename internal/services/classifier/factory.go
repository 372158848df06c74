package classifier

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/common"
)

// NewRemoteClassifier creates the remote strategy for the configured
// provider. Returns an error when the provider is unknown or its
// credentials are missing; callers may run fallback-only in that case.
func NewRemoteClassifier(config *common.ClassifierConfig, logger arbor.ILogger) (RemoteClassifier, error) {
	switch config.Provider {
	case common.ProviderClaude:
		return NewClaudeClassifier(&config.Claude, logger)
	case common.ProviderGemini:
		return NewGeminiClassifier(&config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown classifier provider: %s", config.Provider)
	}
}
