package queue

import (
	"time"

	"github.com/ternarybob/steward/internal/common"
)

// Config holds parsed queue settings
type Config struct {
	QueueName         string
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
	MaxReceive        int
	Concurrency       int
	JobTimeout        time.Duration
}

// ConfigFromCommon parses the duration strings from the application
// config, substituting defaults for missing or malformed values.
func ConfigFromCommon(qc *common.QueueConfig) *Config {
	cfg := &Config{
		QueueName:         qc.QueueName,
		PollInterval:      common.ParseDurationOr(qc.PollInterval, time.Second),
		VisibilityTimeout: common.ParseDurationOr(qc.VisibilityTimeout, 5*time.Minute),
		MaxReceive:        qc.MaxReceive,
		Concurrency:       qc.Concurrency,
		JobTimeout:        common.ParseDurationOr(qc.JobTimeout, 2*time.Minute),
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "steward_classify"
	}
	if cfg.MaxReceive <= 0 {
		cfg.MaxReceive = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg
}
