package analysis

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestLabelFor(t *testing.T) {
	cases := []struct {
		polarity float64
		want     Label
	}{
		{0.5, LabelPositive},
		{0.11, LabelPositive},
		{0.1, LabelNeutral},
		{0, LabelNeutral},
		{-0.1, LabelNeutral},
		{-0.11, LabelNegative},
		{-1, LabelNegative},
	}
	for _, tc := range cases {
		if got := LabelFor(tc.polarity); got != tc.want {
			t.Errorf("LabelFor(%v) = %s, want %s", tc.polarity, got, tc.want)
		}
	}
}

func TestRuleAnalyzer(t *testing.T) {
	a := RuleAnalyzer{}
	cases := []struct {
		name  string
		text  string
		label Label
	}{
		{"positive", "this stream is awesome, great content!", LabelPositive},
		{"negative", "boring trash stream", LabelNegative},
		{"no sentiment words", "the quick brown fox", LabelNeutral},
		{"mixed", "good game but terrible ending", LabelNeutral},
		{"chat slang", "POG POG POG", LabelPositive},
		{"punctuation stripped", "awesome!!!", LabelPositive},
		{"empty", "", LabelNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := a.Analyze(context.Background(), tc.text)
			if err != nil {
				t.Fatalf("analyze: %v", err)
			}
			if s.Label != tc.label {
				t.Errorf("label = %s (polarity %v), want %s", s.Label, s.Polarity, tc.label)
			}
			if s.Polarity < -1 || s.Polarity > 1 {
				t.Errorf("polarity %v out of range", s.Polarity)
			}
		})
	}
}

type stubAnalyzer struct {
	scores map[string]float64
	err    error
}

func (s stubAnalyzer) Analyze(_ context.Context, text string) (Sentiment, error) {
	if s.err != nil {
		return Sentiment{}, s.err
	}
	p := s.scores[text]
	return Sentiment{Polarity: p, Label: LabelFor(p)}, nil
}

func TestAnalyzeBatch(t *testing.T) {
	a := stubAnalyzer{scores: map[string]float64{
		"up":   0.8,
		"down": -0.6,
		"meh":  0,
	}}

	sum, err := AnalyzeBatch(context.Background(), a, []string{"up", "down", "meh", ""})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if sum.Analyzed != 3 {
		t.Errorf("analyzed = %d, want 3 (empty text skipped)", sum.Analyzed)
	}
	if sum.Positive != 1 || sum.Negative != 1 || sum.Neutral != 1 {
		t.Errorf("unexpected distribution: %+v", sum)
	}
	want := (0.8 - 0.6) / 3
	if math.Abs(sum.AvgPolarity-want) > 1e-9 {
		t.Errorf("avg = %v, want %v", sum.AvgPolarity, want)
	}
}

func TestAnalyzeBatch_SkipsFailures(t *testing.T) {
	a := stubAnalyzer{err: errors.New("upstream down")}

	sum, err := AnalyzeBatch(context.Background(), a, []string{"a", "b"})
	if err != nil {
		t.Fatalf("batch should tolerate per-text failures: %v", err)
	}
	if sum.Analyzed != 0 {
		t.Errorf("analyzed = %d, want 0", sum.Analyzed)
	}
}

func TestAnalyzeBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AnalyzeBatch(ctx, RuleAnalyzer{}, []string{"good"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParsePolarity(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    float64
		wantErr bool
	}{
		{"plain json", `{"polarity": 0.7}`, 0.7, false},
		{"code fence", "```json\n{\"polarity\": -0.4}\n```", -0.4, false},
		{"bare fence", "```\n{\"polarity\": 0}\n```", 0, false},
		{"out of range", `{"polarity": 2.5}`, 0, true},
		{"not json", "very positive!", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePolarity(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("polarity = %v, want %v", got, tc.want)
			}
		})
	}
}
