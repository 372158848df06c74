package classifier

import (
	"strings"

	"github.com/ternarybob/steward/internal/models"
)

// Keyword sets for the deterministic fallback. Category checks run in
// a fixed order and the first match wins; priority checks are
// independent of category and also first-match-wins.
var categoryKeywords = []struct {
	category models.Category
	words    []string
}{
	{models.CategoryElectrical, []string{
		"electric", "outlet", "wiring", "breaker", "light", "power",
		"전기", "콘센트", "누전", "조명", "전등", "정전",
	}},
	{models.CategoryPlumbing, []string{
		"plumb", "leak", "water", "toilet", "faucet", "drain", "pipe",
		"배관", "수도", "누수", "변기", "하수", "수압",
	}},
	{models.CategoryHVAC, []string{
		"hvac", "heating", "air condition", "ventilation", "thermostat",
		"난방", "에어컨", "환기", "보일러", "냉방", "온도",
	}},
	{models.CategoryStructural, []string{
		"wall", "floor", "ceiling", "crack", "door", "window", "roof",
		"구조", "벽", "바닥", "천장", "균열", "창문", "지붕",
	}},
}

var highPriorityWords = []string{
	"urgent", "emergency", "danger", "fire", "spark", "flood", "immediately",
	"긴급", "위험", "화재", "불꽃", "침수", "즉시",
}

var lowPriorityWords = []string{
	"minor", "low priority", "whenever", "cosmetic",
	"사소", "천천히", "낮음",
}

// FallbackClassifier is the deterministic keyword-rule strategy. It is
// a pure function of the lower-cased input and never fails.
type FallbackClassifier struct{}

// NewFallbackClassifier creates the keyword fallback
func NewFallbackClassifier() *FallbackClassifier {
	return &FallbackClassifier{}
}

// Classify assigns a category and priority by substring matching
func (f *FallbackClassifier) Classify(description string) models.Classification {
	text := strings.ToLower(description)

	category := models.CategoryOther
	for _, set := range categoryKeywords {
		if containsAny(text, set.words) {
			category = set.category
			break
		}
	}

	priority := models.PriorityMedium
	if containsAny(text, highPriorityWords) {
		priority = models.PriorityHigh
	} else if containsAny(text, lowPriorityWords) {
		priority = models.PriorityLow
	}

	return models.Classification{Category: category, Priority: priority}
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
