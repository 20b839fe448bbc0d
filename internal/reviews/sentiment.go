package reviews

import (
	"fmt"
	"strings"

	"github.com/cdipaolo/sentiment"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

// Analyzer labels a review comment.
type Analyzer interface {
	Classify(text string) string
}

// NaiveBayes classifies comments with the pretrained cdipaolo model.
type NaiveBayes struct {
	model sentiment.Models
}

// NewNaiveBayes restores the bundled model.
func NewNaiveBayes() (*NaiveBayes, error) {
	model, err := sentiment.Restore()
	if err != nil {
		return nil, fmt.Errorf("restore sentiment model: %w", err)
	}
	return &NaiveBayes{model: model}, nil
}

// Classify returns neutral for blank comments.
func (n *NaiveBayes) Classify(text string) string {
	if strings.TrimSpace(text) == "" {
		return domain.SentimentNeutral
	}
	if n.model.SentimentAnalysis(text, sentiment.English).Score == 0 {
		return domain.SentimentNegative
	}
	return domain.SentimentPositive
}

type neutralAnalyzer struct{}

func (neutralAnalyzer) Classify(string) string { return domain.SentimentNeutral }
