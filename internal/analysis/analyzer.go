// Package analysis scores the sentiment of collected text: chat messages,
// tweets, post titles. It runs on demand over store contents; nothing here
// participates in scheduling.
package analysis

import "context"

// Label classifies a sentiment score.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Sentiment is one scored text. Polarity is in [-1, 1].
type Sentiment struct {
	Polarity float64 `json:"polarity"`
	Label    Label   `json:"label"`
}

// Analyzer scores the sentiment of a piece of text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Sentiment, error)
}

// LabelFor maps a polarity to its label. The thresholds match the usual
// neutral dead-zone of +-0.1.
func LabelFor(polarity float64) Label {
	switch {
	case polarity > 0.1:
		return LabelPositive
	case polarity < -0.1:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Summary aggregates sentiment over a batch of texts.
type Summary struct {
	Analyzed    int     `json:"analyzed"`
	AvgPolarity float64 `json:"avg_polarity"`
	Positive    int     `json:"positive"`
	Neutral     int     `json:"neutral"`
	Negative    int     `json:"negative"`
}

// AnalyzeBatch scores each text and aggregates the results. Individual
// failures are skipped, not fatal: a batch over live chat should not die
// on one bad line.
func AnalyzeBatch(ctx context.Context, a Analyzer, texts []string) (Summary, error) {
	var sum Summary
	var total float64

	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if text == "" {
			continue
		}
		s, err := a.Analyze(ctx, text)
		if err != nil {
			continue
		}
		sum.Analyzed++
		total += s.Polarity
		switch s.Label {
		case LabelPositive:
			sum.Positive++
		case LabelNegative:
			sum.Negative++
		default:
			sum.Neutral++
		}
	}

	if sum.Analyzed > 0 {
		sum.AvgPolarity = total / float64(sum.Analyzed)
	}
	return sum, nil
}
