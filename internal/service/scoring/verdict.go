// Package scoring turns an assembled transcript into a structured interview
// verdict by way of a hosted chat-completion model.
package scoring

import (
	"encoding/json"
	"fmt"
)

// DimensionScore is the model's score and cited evidence for one rubric
// dimension. The legacy rubric writes its commentary under "summary" rather
// than "evidence"; both are kept.
type DimensionScore struct {
	Score    int    `json:"score"`
	Evidence string `json:"evidence,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// SkillGap names the candidate's dominant weakness and its business cost.
type SkillGap struct {
	PrimaryWeakness  string `json:"primary_weakness"`
	ObservedPattern  string `json:"observed_pattern"`
	CommercialImpact string `json:"commercial_impact"`
}

// TrainingRecommendation is the single prioritized coaching plan.
type TrainingRecommendation struct {
	PriorityFocus string   `json:"priority_focus"`
	WhatToTrain   []string `json:"what_to_train"`
	WhatToObserve string   `json:"what_to_observe"`
}

// BrokerDecision condenses the verdict for the hiring decision.
type BrokerDecision struct {
	SuitableForTraining     bool   `json:"suitable_for_training"`
	SuitableForHighValue    bool   `json:"suitable_for_high_value"`
	RecommendedReevaluation string `json:"recommended_reevaluation"`
}

// Verdict is a scored interview. Both rubric generations decode into it:
// the legacy rubric's "phases" map lands in Dimensions and its flat
// recommendation lists land in Recommendations/ActionPlan.
type Verdict struct {
	RubricVersion  string                    `json:"rubricVersion"`
	OverallScore   int                       `json:"overall_score"`
	Classification string                    `json:"classification,omitempty"`
	Dimensions     map[string]DimensionScore `json:"dimensions,omitempty"`

	SkillGap               *SkillGap               `json:"skill_gap,omitempty"`
	TrainingRecommendation *TrainingRecommendation `json:"training_recommendation,omitempty"`
	BrokerDecision         *BrokerDecision         `json:"broker_decision,omitempty"`
	LabeledTranscript      string                  `json:"labeled_transcript,omitempty"`

	// Legacy rubric fields.
	Recommendations []string `json:"recommendations,omitempty"`
	ActionPlan      []string `json:"action_plan,omitempty"`

	// Filled in by the engine, never by the model.
	Transcript string   `json:"transcript,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// verdictWire mirrors the model's raw output, tolerating both rubric
// generations' field names.
type verdictWire struct {
	OverallScore           *int                       `json:"overall_score"`
	Classification         string                     `json:"classification"`
	Dimensions             map[string]json.RawMessage `json:"dimensions"`
	Phases                 map[string]json.RawMessage `json:"phases"`
	SkillGap               *SkillGap                  `json:"skill_gap"`
	TrainingRecommendation *TrainingRecommendation    `json:"training_recommendation"`
	BrokerDecision         *BrokerDecision            `json:"broker_decision"`
	LabeledTranscript      string                     `json:"labeled_transcript"`
	Recommendations        []string                   `json:"recommendations"`
	ActionPlan             []string                   `json:"action_plan"`
}

// MalformedVerdictError indicates the model's reply was not the JSON object
// the prompt demands. RawPrefix carries up to the first 500 characters of
// the reply for diagnosis.
type MalformedVerdictError struct {
	RawPrefix string
	Err       error
}

func (e *MalformedVerdictError) Error() string {
	return fmt.Sprintf("model returned a malformed verdict: %v (reply prefix: %q)", e.Err, e.RawPrefix)
}

func (e *MalformedVerdictError) Unwrap() error { return e.Err }

const rawPrefixLen = 500

func newMalformedVerdictError(raw string, err error) *MalformedVerdictError {
	if len(raw) > rawPrefixLen {
		raw = raw[:rawPrefixLen]
	}
	return &MalformedVerdictError{RawPrefix: raw, Err: err}
}

// parseVerdict strictly decodes a model reply. Any JSON error is a
// MalformedVerdictError; a structurally valid reply with odd content is
// accepted here and flagged later by shape validation.
func parseVerdict(raw string) (*Verdict, error) {
	var wire verdictWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, newMalformedVerdictError(raw, err)
	}
	if wire.OverallScore == nil {
		return nil, newMalformedVerdictError(raw, fmt.Errorf("missing overall_score"))
	}

	v := &Verdict{
		OverallScore:           *wire.OverallScore,
		Classification:         wire.Classification,
		SkillGap:               wire.SkillGap,
		TrainingRecommendation: wire.TrainingRecommendation,
		BrokerDecision:         wire.BrokerDecision,
		LabeledTranscript:      wire.LabeledTranscript,
		Recommendations:        wire.Recommendations,
		ActionPlan:             wire.ActionPlan,
	}

	scores := wire.Dimensions
	if len(scores) == 0 {
		scores = wire.Phases
	}
	if len(scores) > 0 {
		v.Dimensions = make(map[string]DimensionScore, len(scores))
		for key, msg := range scores {
			ds, err := decodeDimensionScore(msg)
			if err != nil {
				return nil, newMalformedVerdictError(raw, fmt.Errorf("dimension %q: %w", key, err))
			}
			v.Dimensions[key] = ds
		}
	}
	return v, nil
}

// decodeDimensionScore accepts either the object form {"score": n, ...} or,
// from the legacy rubric, a bare number.
func decodeDimensionScore(msg json.RawMessage) (DimensionScore, error) {
	var ds DimensionScore
	if err := json.Unmarshal(msg, &ds); err == nil {
		return ds, nil
	}
	var n int
	if err := json.Unmarshal(msg, &n); err != nil {
		return DimensionScore{}, fmt.Errorf("neither score object nor number: %w", err)
	}
	return DimensionScore{Score: n}, nil
}
