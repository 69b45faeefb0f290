package analysis

import (
	"context"
	"strings"
)

// RuleAnalyzer is a word-list sentiment scorer used as the offline
// fallback and in tests. Crude, but stable and free.
type RuleAnalyzer struct{}

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "love": {}, "awesome": {}, "amazing": {},
	"best": {}, "nice": {}, "cool": {}, "fun": {}, "happy": {},
	"excellent": {}, "wonderful": {}, "fantastic": {}, "pog": {},
	"poggers": {}, "hype": {}, "win": {}, "winning": {}, "lets": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "hate": {}, "awful": {}, "worst": {},
	"boring": {}, "sad": {}, "angry": {}, "trash": {}, "garbage": {},
	"horrible": {}, "annoying": {}, "lose": {}, "losing": {}, "cringe": {},
	"toxic": {}, "scam": {},
}

// Analyze scores text by counting sentiment-bearing words.
func (RuleAnalyzer) Analyze(_ context.Context, text string) (Sentiment, error) {
	var pos, neg int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:'\"()")
		if _, ok := positiveWords[word]; ok {
			pos++
		}
		if _, ok := negativeWords[word]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return Sentiment{Polarity: 0, Label: LabelNeutral}, nil
	}
	polarity := float64(pos-neg) / float64(total)
	return Sentiment{Polarity: polarity, Label: LabelFor(polarity)}, nil
}
