package rollup

import (
	"github.com/bronxpinstripes/engagerr-analytics/pkg/models"
)

// EstimateDuplication derives the estimated audience duplication for a
// family from pairwise platform overlaps and per-platform view counts.
//
// Each overlapping pair contributes overlap * min(views_a, views_b) double
// counted views; the sum over all pairs divided by total views is the
// duplication fraction. Weighting by the smaller side keeps a tiny platform
// paired with a huge one from distorting the estimate. The result is clamped
// to [0,1]. This is a documented heuristic, not exact deduplication; exact
// would need cross-platform identity resolution which aggregate data cannot
// provide.
func EstimateDuplication(platformViews map[string]float64, overlaps []models.AudienceOverlap) float64 {
	var totalViews float64
	for _, views := range platformViews {
		totalViews += views
	}
	if totalViews <= 0 {
		return 0
	}

	var duplicated float64
	for _, pair := range overlaps {
		if pair.Overlap <= 0 {
			continue
		}
		viewsA, okA := platformViews[pair.PlatformA]
		viewsB, okB := platformViews[pair.PlatformB]
		if !okA || !okB {
			continue
		}
		duplicated += pair.Overlap * min(viewsA, viewsB)
	}

	duplication := duplicated / totalViews
	if duplication < 0 {
		return 0
	}
	if duplication > 1 {
		return 1
	}
	return duplication
}
