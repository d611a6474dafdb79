// Package rubric defines the versioned evaluation rubrics a transcript is
// scored against. Rubrics are compile-time constants: callers select one by
// version, never edit one at runtime.
package rubric

import (
	"fmt"
	"sort"
)

// Classification labels, ordered from worst to best band.
const (
	ClassHighRisk      = "High Risk"
	ClassTrainable     = "Trainable Potential"
	ClassReliableAgent = "Reliable Agent"
)

// Rubric versions. VersionDimensions is the current default; VersionPhases
// is the legacy golden-questions rubric kept for callers still on it.
const (
	VersionPhases     = "phases-v1"
	VersionDimensions = "dimensions-v2"
	DefaultVersion    = VersionDimensions
)

// Language tags accepted by the scoring boundary.
const (
	LangSpanish = "es"
	LangEnglish = "en"
)

// Dimension is one named scoring axis with a fixed integer range.
type Dimension struct {
	Key         string
	Description string
	MinScore    int
	MaxScore    int
}

// Band maps an inclusive total-score range to a classification label.
type Band struct {
	Min   int
	Max   int
	Label string
}

// Rubric is an immutable, versioned scoring specification.
type Rubric struct {
	Version    string
	Dimensions []Dimension
	MaxScore   int
	Bands      []Band
}

// Classify maps a total score to the rubric's classification label.
// Scores outside [0, MaxScore] are clamped to the nearest band.
func (r *Rubric) Classify(total int) string {
	if total < 0 {
		total = 0
	}
	if total > r.MaxScore {
		total = r.MaxScore
	}
	for _, b := range r.Bands {
		if total >= b.Min && total <= b.Max {
			return b.Label
		}
	}
	// Bands cover [0, MaxScore] by construction; unreachable.
	return r.Bands[len(r.Bands)-1].Label
}

// DimensionKeys returns the rubric's dimension keys in rubric order.
func (r *Rubric) DimensionKeys() []string {
	keys := make([]string, len(r.Dimensions))
	for i, d := range r.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MissingAndExtraKeys compares a verdict's dimension key set against the
// rubric's. Both returned slices are sorted for stable logging.
func (r *Rubric) MissingAndExtraKeys(got map[string]struct{}) (missing, extra []string) {
	want := make(map[string]struct{}, len(r.Dimensions))
	for _, d := range r.Dimensions {
		want[d.Key] = struct{}{}
		if _, ok := got[d.Key]; !ok {
			missing = append(missing, d.Key)
		}
	}
	for k := range got {
		if _, ok := want[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

var registry = map[string]*Rubric{
	VersionPhases:     phasesV1,
	VersionDimensions: dimensionsV2,
}

// Get returns the rubric registered under version. An empty version selects
// the default.
func Get(version string) (*Rubric, error) {
	if version == "" {
		version = DefaultVersion
	}
	r, ok := registry[version]
	if !ok {
		return nil, fmt.Errorf("unknown rubric version %q", version)
	}
	return r, nil
}

// phasesV1 is the legacy 3-phase rubric built around the nine golden
// questions of seller qualification.
var phasesV1 = &Rubric{
	Version: VersionPhases,
	Dimensions: []Dimension{
		{Key: "qualification", Description: "Seller qualification: how thoroughly the agent uncovered motivation, goal, timeline, consequences, decision maker, location, budget, amenities and deal breakers", MinScore: 0, MaxScore: 10},
		{Key: "trust_building", Description: "Rapport and trust: how clearly and professionally the agent explained the sales process", MinScore: 0, MaxScore: 10},
		{Key: "closing", Description: "Closing: how effectively the agent worked toward a concrete commitment", MinScore: 0, MaxScore: 10},
	},
	MaxScore: 30,
	Bands: []Band{
		{Min: 0, Max: 10, Label: ClassHighRisk},
		{Min: 11, Max: 20, Label: ClassTrainable},
		{Min: 21, Max: 30, Label: ClassReliableAgent},
	},
}

// dimensionsV2 is the current 7-dimension, 21-point rubric.
var dimensionsV2 = &Rubric{
	Version: VersionDimensions,
	Dimensions: []Dimension{
		{Key: "agenda_control", Description: "Who directed the conversation: did the agent set and hold the interview agenda", MinScore: 0, MaxScore: 3},
		{Key: "commercial_authority", Description: "Commercial authority: did the agent position themselves as the market expert rather than a passive note taker", MinScore: 0, MaxScore: 3},
		{Key: "seller_diagnosis", Description: "Seller diagnosis: depth of discovery on motivation, goal, timeline, consequences, decision maker, location, budget and decisive amenities", MinScore: 0, MaxScore: 3},
		{Key: "objection_handling", Description: "Objection handling: how price, exchange/trade-in and commitment objections were addressed", MinScore: 0, MaxScore: 3},
		{Key: "value_proposition", Description: "Value proposition: did the agent articulate a concrete reason to work with them", MinScore: 0, MaxScore: 3},
		{Key: "process_closure", Description: "Process closure: did the interview end with a defined next step and commitment", MinScore: 0, MaxScore: 3},
		{Key: "discourse_consistency", Description: "Discourse consistency: coherence between what the agent promised and what they asked for", MinScore: 0, MaxScore: 3},
	},
	MaxScore: 21,
	Bands: []Band{
		{Min: 0, Max: 7, Label: ClassHighRisk},
		{Min: 8, Max: 14, Label: ClassTrainable},
		{Min: 15, Max: 21, Label: ClassReliableAgent},
	},
}
