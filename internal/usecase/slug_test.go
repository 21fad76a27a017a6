package usecase

import (
	"context"
	"errors"
	"testing"
)

func neverTaken(context.Context, string) (bool, error) { return false, nil }

func TestGenerateUniqueSlug_Basic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want string
	}{
		{"Monaco Masters", "monaco-masters"},
		{"  Monaco   Masters  ", "monaco-masters"},
		{"Grand Prix 2026!", "grand-prix-2026"},
		{"Überholmanöver", "uberholmanover"},
		{"São Paulo Héros", "sao-paulo-heros"},
		{"---", "league"},
		{"", "league"},
	}

	for _, tc := range cases {
		got, err := GenerateUniqueSlug(context.Background(), tc.name, neverTaken)
		if err != nil {
			t.Fatalf("slug %q: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("slug %q: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestGenerateUniqueSlug_SuffixesOnCollision(t *testing.T) {
	t.Parallel()

	taken := map[string]bool{"monaco-masters": true, "monaco-masters-1": true}
	got, err := GenerateUniqueSlug(context.Background(), "Monaco Masters", func(_ context.Context, slug string) (bool, error) {
		return taken[slug], nil
	})
	if err != nil {
		t.Fatalf("generate slug: %v", err)
	}
	if got != "monaco-masters-2" {
		t.Fatalf("got %q want monaco-masters-2", got)
	}
}

func TestGenerateUniqueSlug_PropagatesCheckError(t *testing.T) {
	t.Parallel()

	boom := errors.New("storage down")
	_, err := GenerateUniqueSlug(context.Background(), "Monaco Masters", func(context.Context, string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped check error, got %v", err)
	}
}
