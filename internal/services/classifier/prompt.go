package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/steward/internal/models"
)

// systemPromptStandard enumerates the five categories and the
// three-level priority vocabulary used by the sync and worker paths.
const systemPromptStandard = `You are a building maintenance expert. Categorize the maintenance request into one of these categories:
- electrical: 전기 관련 문제
- plumbing: 배관, 수도 관련 문제
- hvac: 난방, 환기, 에어컨 관련 문제
- structural: 건물 구조, 벽, 바닥 관련 문제
- other: 기타

Also assess the priority as:
- high: 빠른 대응 필요
- medium: 일반적인 유지보수
- low: 긴급하지 않음

Respond in JSON format: {"category": "...", "priority": "..."}`

// systemPromptLegacy additionally allows the urgent priority. Used by
// the admin reclassification path.
const systemPromptLegacy = `You are a building maintenance expert. Categorize the maintenance request into one of these categories:
- electrical: 전기 관련 문제
- plumbing: 배관, 수도 관련 문제
- hvac: 난방, 환기, 에어컨 관련 문제
- structural: 건물 구조, 벽, 바닥 관련 문제
- other: 기타

Also assess the priority as:
- urgent: 즉각적인 위험이나 서비스 중단
- high: 빠른 대응 필요
- medium: 일반적인 유지보수
- low: 긴급하지 않음

Respond in JSON format: {"category": "...", "priority": "..."}`

// SystemPrompt returns the instruction prompt for the given policy
func SystemPrompt(policy models.ClassifyPolicy) string {
	if policy == models.PolicyLegacy {
		return systemPromptLegacy
	}
	return systemPromptStandard
}

// UserPrompt wraps the request description for the remote call
func UserPrompt(description string) string {
	return "Maintenance request: " + description
}

type replyPayload struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
}

// ParseReply decodes a remote reply into a classification. Any
// malformed or out-of-vocabulary reply is an error so the caller falls
// through to the keyword fallback.
func ParseReply(reply string, policy models.ClassifyPolicy) (models.Classification, error) {
	text := strings.TrimSpace(reply)

	// Models wrap JSON in markdown fences despite instructions
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var payload replyPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return models.Classification{}, fmt.Errorf("malformed classification reply: %w", err)
	}

	category := models.Category(strings.ToLower(strings.TrimSpace(payload.Category)))
	priority := models.Priority(strings.ToLower(strings.TrimSpace(payload.Priority)))

	if !models.ValidCategory(category) {
		return models.Classification{}, fmt.Errorf("unknown category in reply: %q", payload.Category)
	}
	if !models.ValidPriority(priority) {
		return models.Classification{}, fmt.Errorf("unknown priority in reply: %q", payload.Priority)
	}
	if priority == models.PriorityUrgent && policy != models.PolicyLegacy {
		return models.Classification{}, fmt.Errorf("priority %q not allowed by policy", payload.Priority)
	}

	return models.Classification{Category: category, Priority: priority}, nil
}
