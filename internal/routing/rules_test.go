package routing

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/thrivewell/wellness-backend/internal/types"
)

func TestDefaultTable_CompiledRulesAreValid(t *testing.T) {
	table := DefaultTable()
	for _, c := range []types.Classification{
		types.ClassificationFullProgram,
		types.ClassificationNutritionOnly,
		types.ClassificationWorkoutOnly,
		types.ClassificationPerformance,
		types.ClassificationYouth,
		types.ClassificationRecovery,
		types.ClassificationWellness,
	} {
		got, err := table.TypesFor(c, nil)
		if err != nil {
			t.Fatalf("TypesFor(%s): %v", c, err)
		}
		if len(got) == 0 {
			t.Fatalf("TypesFor(%s) returned no packet types", c)
		}
	}
}

func TestTypesFor_IsDeterministic(t *testing.T) {
	table := DefaultTable()
	answers := map[string]any{"age_group": "youth", "goals": "get stronger"}

	first, err := table.TypesFor(types.ClassificationFullProgram, answers)
	if err != nil {
		t.Fatalf("TypesFor: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := table.TypesFor(types.ClassificationFullProgram, answers)
		if err != nil {
			t.Fatalf("TypesFor: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("expected identical output, got %v then %v", first, again)
		}
	}
}

func TestTypesFor_YouthRefinementReplacesWorkout(t *testing.T) {
	table := DefaultTable()
	got, err := table.TypesFor(types.ClassificationFullProgram, map[string]any{"age_group": "Youth"})
	if err != nil {
		t.Fatalf("TypesFor: %v", err)
	}
	want := []types.PacketType{types.PacketTypeIntro, types.PacketTypeNutrition, types.PacketTypeYouth}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTypesFor_AddRefinementAppends(t *testing.T) {
	table := DefaultTable()
	got, err := table.TypesFor(types.ClassificationPerformance, map[string]any{"nutrition_coaching": "yes"})
	if err != nil {
		t.Fatalf("TypesFor: %v", err)
	}
	want := []types.PacketType{types.PacketTypeIntro, types.PacketTypePerformance, types.PacketTypeNutrition}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTypesFor_NonStringAnswerDoesNotMatch(t *testing.T) {
	table := DefaultTable()
	got, err := table.TypesFor(types.ClassificationFullProgram, map[string]any{"age_group": 17})
	if err != nil {
		t.Fatalf("TypesFor: %v", err)
	}
	want := []types.PacketType{types.PacketTypeIntro, types.PacketTypeNutrition, types.PacketTypeWorkout}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected unrefined %v, got %v", want, got)
	}
}

func TestTypesFor_UnknownClassificationFails(t *testing.T) {
	table := DefaultTable()
	if _, err := table.TypesFor(types.Classification("MYSTERY"), nil); err == nil {
		t.Fatalf("expected error for unknown classification")
	}
}

func TestNewTable_RejectsBadRules(t *testing.T) {
	cases := []struct {
		name  string
		rules []Rule
	}{
		{"unknown classification", []Rule{{Classification: "NOPE", PacketTypes: []types.PacketType{types.PacketTypeIntro}}}},
		{"empty packet types", []Rule{{Classification: types.ClassificationWellness}}},
		{"unknown packet type", []Rule{{Classification: types.ClassificationWellness, PacketTypes: []types.PacketType{"BROCHURE"}}}},
		{"duplicate rule", []Rule{
			{Classification: types.ClassificationWellness, PacketTypes: []types.PacketType{types.PacketTypeWellness}},
			{Classification: types.ClassificationWellness, PacketTypes: []types.PacketType{types.PacketTypeIntro}},
		}},
	}
	for _, tc := range cases {
		if _, err := NewTable(tc.rules); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLoadFile_ParsesYAMLRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	raw := `rules:
  - classification: NUTRITION_ONLY
    packet_types: [NUTRITION]
  - classification: FULL_PROGRAM
    packet_types: [INTRO, NUTRITION, WORKOUT]
    refinements:
      - key: age_group
        value: youth
        replace:
          WORKOUT: YOUTH
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got, err := table.TypesFor(types.ClassificationFullProgram, map[string]any{"age_group": "youth"})
	if err != nil {
		t.Fatalf("TypesFor: %v", err)
	}
	want := []types.PacketType{types.PacketTypeIntro, types.PacketTypeNutrition, types.PacketTypeYouth}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// The loaded table replaces the defaults entirely.
	if _, err := table.TypesFor(types.ClassificationWellness, nil); err == nil {
		t.Fatalf("expected unlisted classification to have no rule")
	}
}
