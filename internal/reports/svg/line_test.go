package svg

import (
	"strings"
	"testing"
)

func TestLinesProducesSVG(t *testing.T) {
	html, err := Lines(720, 240, []Series{
		{Label: "Invoices", Values: []float64{1000, 0, 2000}},
		{Label: "Expenses", Values: []float64{300, 150, 0}},
	}, []string{"2024-01", "2024-02", "2024-03"}, LineOpts{
		Title:       "Financial Trend",
		Description: "Monthly invoices vs expenses",
		ShowDots:    true,
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if strings.Count(output, "<path") != 2 {
		t.Fatalf("expected one path per series")
	}
	if !strings.Contains(output, "aria-labelledby") {
		t.Fatalf("expected accessibility attributes")
	}
	if !strings.Contains(output, "Invoices") || !strings.Contains(output, "Expenses") {
		t.Fatalf("expected legend entries for both series")
	}
}

func TestLinesRejectsMismatchedSeries(t *testing.T) {
	_, err := Lines(720, 240, []Series{
		{Label: "Invoices", Values: []float64{1, 2}},
	}, []string{"2024-01"}, LineOpts{})
	if err == nil {
		t.Fatal("expected error for mismatched series length")
	}
}

func TestLinesRejectsEmptyInput(t *testing.T) {
	if _, err := Lines(720, 240, nil, []string{"2024-01"}, LineOpts{}); err == nil {
		t.Fatal("expected error for missing series")
	}
	if _, err := Lines(720, 240, []Series{{Label: "Net"}}, nil, LineOpts{}); err == nil {
		t.Fatal("expected error for missing labels")
	}
}

func TestLinesSingleBucket(t *testing.T) {
	html, err := Lines(720, 240, []Series{
		{Label: "Net", Values: []float64{500}},
	}, []string{"2024-03"}, LineOpts{})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	if !strings.Contains(string(html), "M") {
		t.Fatalf("expected path start for single point")
	}
}

func TestLinesHandlesNegativeValues(t *testing.T) {
	html, err := Lines(720, 240, []Series{
		{Label: "Net", Values: []float64{-200, 300}},
	}, []string{"2024-01", "2024-02"}, LineOpts{})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	if !strings.Contains(string(html), "<path") {
		t.Fatalf("expected path element")
	}
}
