package main

import (
	"strings"
	"testing"

	"life-gpu/internal/core"
	"life-gpu/internal/life"
)

func TestParseSizes(t *testing.T) {
	grids, err := parseSizes("32x32, 7x3,")
	if err != nil {
		t.Fatal(err)
	}
	if len(grids) != 2 || grids[0] != (core.Grid{W: 32, H: 32}) || grids[1] != (core.Grid{W: 7, H: 3}) {
		t.Fatalf("grids %v", grids)
	}
	for _, bad := range []string{"", "32", "0x4", "ax4", "4xb"} {
		if _, err := parseSizes(bad); err == nil {
			t.Errorf("parseSizes(%q) accepted", bad)
		}
	}
}

func TestSweepEnginesAgree(t *testing.T) {
	grids := []core.Grid{{W: 16, H: 16}, {W: 13, H: 9}}
	scenarios := buildScenarios(grids, 2, life.Engines())
	if len(scenarios) != 2*2*len(life.Engines()) {
		t.Fatalf("%d scenarios", len(scenarios))
	}
	results := sweep(scenarios, 12, 3)
	if len(results) != len(scenarios) {
		t.Fatalf("%d results for %d scenarios", len(results), len(scenarios))
	}
	for _, res := range results {
		if res.err != nil {
			t.Fatalf("%s: %v", res.scenario, res.err)
		}
	}
	if msgs := divergences(results); len(msgs) != 0 {
		t.Fatalf("engines diverged:\n%s", strings.Join(msgs, "\n"))
	}
}

func TestDivergencesReportsMismatch(t *testing.T) {
	g := core.Grid{W: 4, H: 4}
	results := []scenarioResult{
		{scenario: scenario{grid: g, seed: 1, engine: "reference"}, checksum: 1},
		{scenario: scenario{grid: g, seed: 1, engine: "parallel"}, checksum: 1},
		{scenario: scenario{grid: g, seed: 1, engine: "gpu"}, checksum: 2},
	}
	msgs := divergences(results)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "engine=gpu") {
		t.Fatalf("divergences %q", msgs)
	}
}
