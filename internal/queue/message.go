package queue

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/steward/internal/models"
)

// MarshalClassifyMessage encodes a classification payload for the queue
func MarshalClassifyMessage(msg *models.ClassifyMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classify message: %w", err)
	}
	return data, nil
}

// UnmarshalClassifyMessage decodes a classification payload
func UnmarshalClassifyMessage(data []byte) (*models.ClassifyMessage, error) {
	var msg models.ClassifyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classify message: %w", err)
	}
	if msg.RequestID == "" {
		return nil, fmt.Errorf("classify message missing request id")
	}
	return &msg, nil
}
