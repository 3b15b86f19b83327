package loader

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/types"
)

func validCatalog() *state.Catalog {
	return &state.Catalog{
		Game: types.GameDef{Title: "Valid"},
		Levels: []types.Level{
			{
				Number:          1,
				Key:             "one",
				DecoherenceTime: 30,
				Choices: []types.Choice{
					{ID: "a", Outcomes: []types.Outcome{{Probability: 1, Result: types.ResultSuccess, NextAction: types.ActionAdvance}}},
					{ID: "b", Outcomes: []types.Outcome{{Probability: 1, Result: types.ResultFailure, NextAction: types.ActionRetry}}},
				},
				Entanglements: []types.EntanglementLink{
					{Participants: []int{0, 1}, Correlation: types.CorrelationPositive, Strength: 0.5},
				},
			},
		},
	}
}

func quietLog() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestValidate_ValidCatalog(t *testing.T) {
	log, buf := quietLog()
	if err := validate(validCatalog(), nil, log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected warnings: %s", buf.String())
	}
}

func TestValidate_EmptyTitle(t *testing.T) {
	cat := validCatalog()
	cat.Game.Title = ""
	log, _ := quietLog()

	err := validate(cat, nil, log)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	assertContains(t, ve.Errors, "Game.Title is required")
}

func TestValidate_NoLevels(t *testing.T) {
	log, _ := quietLog()
	err := validate(&state.Catalog{Game: types.GameDef{Title: "x"}}, nil, log)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	assertContains(t, ve.Errors, "no levels defined")
}

func TestValidate_DuplicateKeysAndNumbers(t *testing.T) {
	cat := validCatalog()
	cat.Levels = append(cat.Levels, cat.Levels[0])
	log, _ := quietLog()

	err := validate(cat, nil, log)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	assertContains(t, ve.Errors, `duplicate level key "one"`)
	assertContains(t, ve.Errors, "share number 1")
}

func TestValidate_CompileProblemsMerged(t *testing.T) {
	log, _ := quietLog()
	ve := &ValidationError{Errors: []string{`level "one": entanglement 0 references unknown choice "ghost"`}}

	err := validate(validCatalog(), ve, log)
	if err == nil {
		t.Fatal("compile problems must fail validation")
	}
	if !errors.Is(err, state.ErrInvalidLevelData) {
		t.Errorf("error does not wrap ErrInvalidLevelData: %v", err)
	}
}

func TestValidate_BarrierWidth(t *testing.T) {
	cat := validCatalog()
	cat.Levels[0].Choices[0].Barrier = &types.Barrier{Height: 1, Width: 0}
	log, _ := quietLog()

	err := validate(cat, nil, log)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	assertContains(t, ve.Errors, "barrier width must be positive")
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*state.Catalog)
		want   string
	}{
		{
			name:   "probability sum",
			mutate: func(c *state.Catalog) { c.Levels[0].Choices[0].Outcomes[0].Probability = 0.4 },
			want:   "sum to 0.400",
		},
		{
			name:   "unknown result",
			mutate: func(c *state.Catalog) { c.Levels[0].Choices[1].Outcomes[0].Result = "explode" },
			want:   "explode",
		},
		{
			name:   "unknown bonus",
			mutate: func(c *state.Catalog) { c.Levels[0].Choices[0].Outcomes[0].Bonus = "lucky-guess" },
			want:   "lucky-guess",
		},
		{
			name:   "unknown correlation",
			mutate: func(c *state.Catalog) { c.Levels[0].Entanglements[0].Correlation = "spooky" },
			want:   "spooky",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := validCatalog()
			tt.mutate(cat)
			log, buf := quietLog()

			if err := validate(cat, nil, log); err != nil {
				t.Fatalf("warnings must not fail validation: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("log missing %q: %s", tt.want, buf.String())
			}
		})
	}
}
