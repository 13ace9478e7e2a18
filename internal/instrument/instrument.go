// Package instrument holds the static registry of supported screening
// instruments with their scoring rules and risk-tier thresholds.
package instrument

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pulsepoint/pulsepoint/internal/model"
)

var (
	// ErrUnknown is returned when an assessment type is not registered.
	ErrUnknown = errors.New("unknown instrument")
	// ErrInvalidScore is returned when a negative score reaches the
	// classifier. Scores are produced by Score and are never negative, so
	// this indicates a defect in the caller, not a user-facing condition.
	ErrInvalidScore = errors.New("invalid score")
)

// Threshold maps a minimum score to a risk tier. A score equal to Min
// belongs to the tier (inclusive on the upper tier).
type Threshold struct {
	Min   int
	Level model.RiskLevel
}

// ScoreFunc reduces an answer set to a non-negative total.
type ScoreFunc func(model.AnswerSet) int

// Instrument describes one registered screening instrument.
type Instrument struct {
	Type     model.AssessmentType
	Name     string
	NumItems int
	MaxScore int
	Score    ScoreFunc
	// Thresholds are ordered highest minimum first; any score below the
	// last entry classifies as low.
	Thresholds []Threshold
}

// registry is build-time configuration. Thresholds within each table are
// strictly decreasing. PCL-5, ACE, TSQ and PC-PTSD-5 carry their published
// cutoffs; GENERIC is the explicit fallback table for ad-hoc screens.
var registry = map[model.AssessmentType]Instrument{
	model.TypePCL5: {
		Type:     model.TypePCL5,
		Name:     "PTSD Checklist for DSM-5",
		NumItems: 20,
		MaxScore: 80,
		Score:    SumAnswers,
		Thresholds: []Threshold{
			{Min: 50, Level: model.RiskSevere},
			{Min: 38, Level: model.RiskHigh},
			{Min: 20, Level: model.RiskModerate},
		},
	},
	model.TypeACE: {
		Type:     model.TypeACE,
		Name:     "Adverse Childhood Experiences",
		NumItems: 10,
		MaxScore: 10,
		Score:    SumAnswers,
		Thresholds: []Threshold{
			{Min: 4, Level: model.RiskHigh},
			{Min: 1, Level: model.RiskModerate},
		},
	},
	model.TypeTSQ: {
		Type:     model.TypeTSQ,
		Name:     "Trauma Screening Questionnaire",
		NumItems: 10,
		MaxScore: 10,
		Score:    SumAnswers,
		Thresholds: []Threshold{
			{Min: 6, Level: model.RiskHigh},
		},
	},
	model.TypePCPTSD5: {
		Type:     model.TypePCPTSD5,
		Name:     "Primary Care PTSD Screen for DSM-5",
		NumItems: 5,
		MaxScore: 5,
		Score:    SumAnswers,
		Thresholds: []Threshold{
			{Min: 3, Level: model.RiskHigh},
		},
	},
	model.TypeGeneric: {
		Type:     model.TypeGeneric,
		Name:     "Generic Screening Instrument",
		NumItems: 0,
		MaxScore: 100,
		Score:    SumAnswers,
		Thresholds: []Threshold{
			{Min: 75, Level: model.RiskSevere},
			{Min: 50, Level: model.RiskHigh},
			{Min: 25, Level: model.RiskModerate},
		},
	},
}

// listOrder fixes the catalog ordering for List.
var listOrder = []model.AssessmentType{
	model.TypePCL5,
	model.TypeACE,
	model.TypeTSQ,
	model.TypePCPTSD5,
	model.TypeGeneric,
}

// Lookup returns the registered instrument for the given type.
func Lookup(t model.AssessmentType) (Instrument, error) {
	inst, ok := registry[t]
	if !ok {
		return Instrument{}, fmt.Errorf("%w: %q", ErrUnknown, t)
	}
	return inst, nil
}

// List returns all registered instruments in catalog order.
func List() []Instrument {
	out := make([]Instrument, 0, len(listOrder))
	for _, t := range listOrder {
		out = append(out, registry[t])
	}
	return out
}

// Score computes the total for an answer set under the instrument's
// scoring rule. Pure function: same answers, same total.
func Score(t model.AssessmentType, answers model.AnswerSet) (int, error) {
	inst, err := Lookup(t)
	if err != nil {
		return 0, err
	}
	return inst.Score(answers), nil
}

// Classify maps a score to a risk tier by walking the instrument's
// threshold table highest minimum first. A score on a boundary belongs to
// the higher tier; anything below the lowest threshold is low.
func Classify(t model.AssessmentType, score int) (model.RiskLevel, error) {
	inst, err := Lookup(t)
	if err != nil {
		return "", err
	}
	if score < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}
	for _, th := range inst.Thresholds {
		if score >= th.Min {
			return th.Level, nil
		}
	}
	return model.RiskLow, nil
}

// SumAnswers is the default scoring rule: the sum of the integer value of
// every answer. Non-numeric or missing values contribute zero.
func SumAnswers(answers model.AnswerSet) int {
	total := 0
	for _, v := range answers {
		total += answerValue(v)
	}
	return total
}

// answerValue coerces a single response to its integer value. Answers
// arrive either as native numbers or as numeric strings from form input;
// everything else counts as zero.
func answerValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
		return 0
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int(f)
		}
		return 0
	default:
		return 0
	}
}
