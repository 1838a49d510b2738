package survey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ScaleType selects the response scale a rubric explains.
type ScaleType string

const (
	ScaleLikert5    ScaleType = "likert_5"
	ScaleNumeric100 ScaleType = "numeric_100"
)

func ParseScaleType(s string) (ScaleType, error) {
	switch ScaleType(strings.ToLower(strings.TrimSpace(s))) {
	case ScaleLikert5:
		return ScaleLikert5, nil
	case ScaleNumeric100:
		return ScaleNumeric100, nil
	default:
		return "", fmt.Errorf("unknown scale type %q (expected: likert_5 or numeric_100)", s)
	}
}

// ScaleEntry explains one point (or band) of the response scale.
type ScaleEntry struct {
	ScaleOrder  int    `json:"scale_order"`
	Scale       string `json:"scale"`
	Description string `json:"description"`
}

// Rubric is the scored-scale interpretation generated for one question.
// Entries are kept most-positive first for rendering.
type Rubric struct {
	QuestionOrder    int          `json:"question_order"`
	QualityAttribute string       `json:"quality_attribute"`
	QuestionText     string       `json:"question_text"`
	Entries          []ScaleEntry `json:"scale_interpretations"`
}

var (
	errRubricQuestionOrder = errors.New("rubric question_order must be positive")
	errRubricAttribute     = errors.New("rubric quality_attribute is required")
	errRubricQuestionText  = errors.New("rubric question_text is required")
	errRubricEntries       = errors.New("rubric scale_interpretations is required")
)

// ValidateRubric enforces the rubric contract: all four top-level fields set,
// every entry carrying scale_order, scale and description, and scale_order
// unique within the rubric. A missing description must fail here, never be
// replaced with a placeholder.
func ValidateRubric(r Rubric) error {
	if r.QuestionOrder <= 0 {
		return errRubricQuestionOrder
	}
	if strings.TrimSpace(r.QualityAttribute) == "" {
		return errRubricAttribute
	}
	if strings.TrimSpace(r.QuestionText) == "" {
		return errRubricQuestionText
	}
	if len(r.Entries) == 0 {
		return errRubricEntries
	}

	seenOrders := make(map[int]bool, len(r.Entries))
	for i, entry := range r.Entries {
		if entry.ScaleOrder <= 0 {
			return fmt.Errorf("scale entry %d: scale_order must be positive", i+1)
		}
		if seenOrders[entry.ScaleOrder] {
			return fmt.Errorf("scale entry %d: duplicate scale_order %d", i+1, entry.ScaleOrder)
		}
		seenOrders[entry.ScaleOrder] = true
		if strings.TrimSpace(entry.Scale) == "" {
			return fmt.Errorf("scale entry %d: scale is required", i+1)
		}
		if strings.TrimSpace(entry.Description) == "" {
			return fmt.Errorf("scale entry %d: description is required", i+1)
		}
	}

	return nil
}

// SortEntriesPositiveFirst orders entries by descending scale_order, the
// rendering convention (most positive first).
func SortEntriesPositiveFirst(entries []ScaleEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ScaleOrder > entries[j].ScaleOrder
	})
}
