package routing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thrivewell/wellness-backend/internal/types"
)

// Refinement narrows a classification's packet set based on a single intake
// answer. When the answer under Key equals Value (case-insensitive), each
// entry in Replace is swapped in the ordered type list and each entry in Add
// is appended.
type Refinement struct {
	Key     string                                `yaml:"key"`
	Value   string                                `yaml:"value"`
	Replace map[types.PacketType]types.PacketType `yaml:"replace,omitempty"`
	Add     []types.PacketType                    `yaml:"add,omitempty"`
}

// Rule maps one classification to its ordered packet types.
type Rule struct {
	Classification types.Classification `yaml:"classification"`
	PacketTypes    []types.PacketType   `yaml:"packet_types"`
	Refinements    []Refinement         `yaml:"refinements,omitempty"`
}

// Table is the deterministic classification → packet-type mapping used by the
// routing engine. Tables are immutable after construction.
type Table struct {
	rules map[types.Classification]Rule
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultTable returns the compiled-in rule set.
func DefaultTable() *Table {
	t, err := NewTable([]Rule{
		{
			Classification: types.ClassificationFullProgram,
			PacketTypes:    []types.PacketType{types.PacketTypeIntro, types.PacketTypeNutrition, types.PacketTypeWorkout},
			Refinements: []Refinement{
				{Key: "age_group", Value: "youth", Replace: map[types.PacketType]types.PacketType{types.PacketTypeWorkout: types.PacketTypeYouth}},
				{Key: "training_focus", Value: "competition", Replace: map[types.PacketType]types.PacketType{types.PacketTypeWorkout: types.PacketTypePerformance}},
			},
		},
		{
			Classification: types.ClassificationNutritionOnly,
			PacketTypes:    []types.PacketType{types.PacketTypeNutrition},
		},
		{
			Classification: types.ClassificationWorkoutOnly,
			PacketTypes:    []types.PacketType{types.PacketTypeWorkout},
			Refinements: []Refinement{
				{Key: "age_group", Value: "youth", Replace: map[types.PacketType]types.PacketType{types.PacketTypeWorkout: types.PacketTypeYouth}},
				{Key: "training_focus", Value: "competition", Replace: map[types.PacketType]types.PacketType{types.PacketTypeWorkout: types.PacketTypePerformance}},
			},
		},
		{
			Classification: types.ClassificationPerformance,
			PacketTypes:    []types.PacketType{types.PacketTypeIntro, types.PacketTypePerformance},
			Refinements: []Refinement{
				{Key: "nutrition_coaching", Value: "yes", Add: []types.PacketType{types.PacketTypeNutrition}},
			},
		},
		{
			Classification: types.ClassificationYouth,
			PacketTypes:    []types.PacketType{types.PacketTypeIntro, types.PacketTypeYouth},
		},
		{
			Classification: types.ClassificationRecovery,
			PacketTypes:    []types.PacketType{types.PacketTypeIntro, types.PacketTypeRecovery},
		},
		{
			Classification: types.ClassificationWellness,
			PacketTypes:    []types.PacketType{types.PacketTypeIntro, types.PacketTypeWellness},
		},
	})
	if err != nil {
		// The compiled-in rules are validated by tests; reaching here is a
		// programming error.
		panic(err)
	}
	return t
}

func NewTable(rules []Rule) (*Table, error) {
	byClass := make(map[types.Classification]Rule, len(rules))
	for _, r := range rules {
		if !r.Classification.Valid() {
			return nil, fmt.Errorf("routing: unknown classification %q", r.Classification)
		}
		if len(r.PacketTypes) == 0 {
			return nil, fmt.Errorf("routing: classification %q has no packet types", r.Classification)
		}
		for _, pt := range r.PacketTypes {
			if !pt.Valid() {
				return nil, fmt.Errorf("routing: classification %q references unknown packet type %q", r.Classification, pt)
			}
		}
		for _, ref := range r.Refinements {
			for from, to := range ref.Replace {
				if !from.Valid() || !to.Valid() {
					return nil, fmt.Errorf("routing: classification %q refinement has unknown packet type", r.Classification)
				}
			}
			for _, pt := range ref.Add {
				if !pt.Valid() {
					return nil, fmt.Errorf("routing: classification %q refinement adds unknown packet type %q", r.Classification, pt)
				}
			}
		}
		if _, dup := byClass[r.Classification]; dup {
			return nil, fmt.Errorf("routing: duplicate rule for classification %q", r.Classification)
		}
		byClass[r.Classification] = r
	}
	return &Table{rules: byClass}, nil
}

// LoadFile reads a rule table from YAML, replacing the defaults entirely.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routing: read rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("routing: parse rules file: %w", err)
	}
	return NewTable(f.Rules)
}

// TypesFor resolves the ordered packet types a client requires. The same
// classification and answers always produce the same list.
func (t *Table) TypesFor(classification types.Classification, answers map[string]any) ([]types.PacketType, error) {
	rule, ok := t.rules[classification]
	if !ok {
		return nil, fmt.Errorf("routing: no rule for classification %q", classification)
	}

	ordered := make([]types.PacketType, len(rule.PacketTypes))
	copy(ordered, rule.PacketTypes)

	for _, ref := range rule.Refinements {
		if !answerMatches(answers, ref.Key, ref.Value) {
			continue
		}
		for i, pt := range ordered {
			if to, ok := ref.Replace[pt]; ok {
				ordered[i] = to
			}
		}
		ordered = append(ordered, ref.Add...)
	}

	return dedupe(ordered), nil
}

func answerMatches(answers map[string]any, key, want string) bool {
	if len(answers) == 0 {
		return false
	}
	got, ok := answers[key]
	if !ok {
		return false
	}
	s, ok := got.(string)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(s), want)
}

func dedupe(in []types.PacketType) []types.PacketType {
	seen := make(map[types.PacketType]struct{}, len(in))
	out := make([]types.PacketType, 0, len(in))
	for _, pt := range in {
		if _, ok := seen[pt]; ok {
			continue
		}
		seen[pt] = struct{}{}
		out = append(out, pt)
	}
	return out
}
