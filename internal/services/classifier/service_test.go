package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/steward/internal/models"
)

type stubRemote struct {
	reply string
	err   error

	lastSystem string
	lastUser   string
}

func (s *stubRemote) Complete(ctx context.Context, system, user string) (string, error) {
	s.lastSystem = system
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestClassify_RemoteSuccess(t *testing.T) {
	remote := &stubRemote{reply: `{"category": "plumbing", "priority": "high"}`}
	svc := NewService(remote, arbor.NewLogger())

	result := svc.Classify(context.Background(), "water leak in the basement", models.PolicyStandard)

	assert.Equal(t, models.CategoryPlumbing, result.Category)
	assert.Equal(t, models.PriorityHigh, result.Priority)
	assert.Contains(t, remote.lastUser, "water leak in the basement")
	assert.Contains(t, remote.lastSystem, "building maintenance expert")
}

func TestClassify_RemoteErrorFallsBack(t *testing.T) {
	remote := &stubRemote{err: errors.New("connection refused")}
	svc := NewService(remote, arbor.NewLogger())

	result := svc.Classify(context.Background(), "전기 콘센트에서 불꽃이 났어요 긴급", models.PolicyStandard)

	assert.Equal(t, models.CategoryElectrical, result.Category)
	assert.Equal(t, models.PriorityHigh, result.Priority)
}

func TestClassify_MalformedReplyFallsBack(t *testing.T) {
	remote := &stubRemote{reply: "I think it is probably a plumbing issue"}
	svc := NewService(remote, arbor.NewLogger())

	result := svc.Classify(context.Background(), "toilet is clogged", models.PolicyStandard)

	assert.Equal(t, models.CategoryPlumbing, result.Category)
	assert.Equal(t, models.PriorityMedium, result.Priority)
}

func TestClassify_NilRemoteUsesFallback(t *testing.T) {
	svc := NewService(nil, arbor.NewLogger())

	result := svc.Classify(context.Background(), "heating is broken", models.PolicyStandard)

	assert.Equal(t, models.CategoryHVAC, result.Category)
}

func TestClassify_LegacyPolicyPrompt(t *testing.T) {
	remote := &stubRemote{reply: `{"category": "electrical", "priority": "urgent"}`}
	svc := NewService(remote, arbor.NewLogger())

	result := svc.Classify(context.Background(), "sparks from the panel", models.PolicyLegacy)

	assert.Equal(t, models.PriorityUrgent, result.Priority)
	assert.Contains(t, remote.lastSystem, "urgent:")
}
