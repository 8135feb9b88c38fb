package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunShippedConfig(t *testing.T) {
	var out bytes.Buffer
	cfg := &config{
		ConfigDir: "../../config",
		Game:      "starfall",
		Pool:      "limited",
		Seed:      "audit-cmd",
		Draws:     2000,
		Batch:     10,
		Trials:    200,
		Alpha:     0.05,
		NoPity:    true,
		Quiet:     true,
	}
	if _, err := run(context.Background(), cfg, &out); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, want := range []string{"draws: 2,000", "2026.10-starfall", "draws to first S+ (pity 60"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunRejectsBadCounts(t *testing.T) {
	if _, err := run(context.Background(), &config{ConfigDir: "../../config", Draws: 0, Batch: 1}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for n=0")
	}
}
