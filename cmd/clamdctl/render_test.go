package main

import (
	"strings"
	"testing"

	clamd "github.com/clammyhq/clamd-client-go"
)

func sampleOutcome() *clamd.ScanOutcome {
	return &clamd.ScanOutcome{Verdicts: []clamd.Verdict{
		{Path: "/srv/a.txt", Status: clamd.StatusOK},
		{Path: "/srv/b.txt", Status: clamd.StatusFound, Detail: "Eicar-Test-Signature"},
		{Path: "/srv/c.txt", Status: clamd.StatusError, Detail: "Permission denied"},
	}}
}

func TestRenderVerdictsPlain(t *testing.T) {
	out := renderVerdicts(sampleOutcome(), false)

	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 3 verdicts + summary:\n%s", len(lines), out)
	}
	if lines[1] != "/srv/b.txt\tFOUND\tEicar-Test-Signature" {
		t.Errorf("found line = %q", lines[1])
	}
	if lines[3] != "scanned: 3  infected: 1  errors: 1" {
		t.Errorf("summary = %q", lines[3])
	}
}

func TestRenderVerdictsPretty(t *testing.T) {
	out := renderVerdicts(sampleOutcome(), true)
	for _, want := range []string{"PATH", "STATUS", "DETAIL", "Eicar-Test-Signature", "scanned: 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("pretty output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatsPlain(t *testing.T) {
	stats := &clamd.Stats{Fields: []clamd.StatField{
		{Key: "POOLS", Value: "1"},
		{Key: "QUEUE", Value: "0 items"},
	}}
	out := renderStats(stats, false)
	if out != "POOLS\t1\nQUEUE\t0 items" {
		t.Errorf("output = %q", out)
	}
}

func TestOutcomeDocument(t *testing.T) {
	doc := outcomeDocument(sampleOutcome())
	if !doc.AnyFound || !doc.AnyError {
		t.Errorf("aggregates = %+v", doc)
	}
	if len(doc.Verdicts) != 3 {
		t.Fatalf("verdicts = %d", len(doc.Verdicts))
	}
	if doc.Verdicts[0].Detail != "" {
		t.Errorf("clean verdict detail = %q", doc.Verdicts[0].Detail)
	}
}

func TestStatsDocument(t *testing.T) {
	stats := &clamd.Stats{Fields: []clamd.StatField{{Key: "STATE", Value: "VALID PRIMARY"}}}
	doc := statsDocument(stats)
	if doc["STATE"] != "VALID PRIMARY" {
		t.Errorf("doc = %v", doc)
	}
}
