// Package ranking scores and filters technician profiles for recommendations
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/homefix/homefix-api/models"
)

const (
	// DefaultLimit is how many technicians are recommended when no limit is given
	DefaultLimit = 3
	// DefaultCompletionRate is assumed for technicians without a recorded rate
	DefaultCompletionRate = 90.0

	ratingWeight         = 10.0
	availabilityBonus    = 20.0
	reviewsPerPoint      = 10.0
	maxReviewPoints      = 15.0
	completionRateWeight = 0.15
)

// Score computes the recommendation score of a technician:
//
//	rating*10 + (available ? 20 : 0) + min(reviewCount/10, 15) + completionRate*0.15
//
// Missing or non-finite inputs fall back to their defaults.
func Score(t models.TechnicianProfile) float64 {
	score := rating(t.Rating) * ratingWeight
	if t.Available {
		score += availabilityBonus
	}
	score += math.Min(float64(reviewCount(t.ReviewCount))/reviewsPerPoint, maxReviewPoints)
	score += completionRate(t.CompletionRate) * completionRateWeight
	return score
}

// Rank returns at most limit technicians ordered by descending score. Ties
// keep their input order. A non-positive limit means DefaultLimit.
func Rank(techs []models.TechnicianProfile, limit int) []models.TechnicianProfile {
	scored := RankScored(techs, limit)
	ranked := make([]models.TechnicianProfile, len(scored))
	for i, s := range scored {
		ranked[i] = s.Technician
	}
	return ranked
}

// Scored pairs a technician with its recommendation score
type Scored struct {
	Technician models.TechnicianProfile `json:"technician"`
	Score      float64                  `json:"score"`
}

// RankScored is Rank but keeps the computed scores
func RankScored(techs []models.TechnicianProfile, limit int) []Scored {
	if limit <= 0 {
		limit = DefaultLimit
	}

	scored := make([]Scored, len(techs))
	for i, t := range techs {
		scored[i] = Scored{Technician: t, Score: Score(t)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Criteria narrows a technician listing. Empty strings match everything.
type Criteria struct {
	ServiceType   string
	Location      string
	AvailableOnly bool
}

// Filter keeps the technicians whose service type and location contain the
// criteria (case-insensitive), preserving order.
func Filter(techs []models.TechnicianProfile, c Criteria) []models.TechnicianProfile {
	service := strings.ToLower(strings.TrimSpace(c.ServiceType))
	location := strings.ToLower(strings.TrimSpace(c.Location))

	filtered := make([]models.TechnicianProfile, 0, len(techs))
	for _, t := range techs {
		if service != "" && !strings.Contains(strings.ToLower(t.ServiceType), service) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(t.Location), location) {
			continue
		}
		if c.AvailableOnly && !t.Available {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

func rating(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return models.DefaultRating
	}
	return clamp(r, 0, models.MaxRating)
}

func reviewCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func completionRate(rate *float64) float64 {
	if rate == nil || math.IsNaN(*rate) || math.IsInf(*rate, 0) {
		return DefaultCompletionRate
	}
	return clamp(*rate, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
