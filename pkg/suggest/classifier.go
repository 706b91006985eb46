package suggest

import (
	"context"

	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

// Classifier scores how likely candidate is a derivative of parent, in
// [0,1]. The production model is an external collaborator; anything
// satisfying this single method can be plugged in.
type Classifier interface {
	Score(ctx context.Context, parent, candidate *models.ContentNode) (float64, error)
}

// HeuristicClassifier is the built-in deterministic classifier: title
// similarity dominates, publish proximity and platform spread refine. It is
// also the test stand-in for the external model.
type HeuristicClassifier struct {
	scorer *Scorer
}

// NewHeuristicClassifier creates the default classifier
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{scorer: NewScorer()}
}

// Score combines title similarity, publish-date proximity and platform
// spread into one confidence value
func (c *HeuristicClassifier) Score(ctx context.Context, parent, candidate *models.ContentNode) (float64, error) {
	title := c.scorer.JaroWinkler(parent.Title, candidate.Title)
	if overlap := c.scorer.TokenOverlap(parent.Title, candidate.Title); overlap > title {
		title = overlap
	}

	scores := map[string]float64{
		"title":     title,
		"published": c.scorer.DateProximity(parent.PublishedAt, candidate.PublishedAt, 30),
		"platform":  0.0,
	}

	// Derivatives nearly always live on a different platform than the
	// original; same-platform pairs are usually unrelated uploads.
	if parent.Platform != candidate.Platform {
		scores["platform"] = 1.0
	}

	weights := map[string]float64{
		"title":     0.6,
		"published": 0.25,
		"platform":  0.15,
	}

	return c.scorer.WeightedScore(scores, weights), nil
}
