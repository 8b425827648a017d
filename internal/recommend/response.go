package recommend

import (
	"time"

	"github.com/hyperjump/licita/internal/models"
)

// Enrich joins a ranking with the supplier records it was computed from, for display.
// Recommendations whose supplier is missing keep only the id, score and rank.
func Enrich(tender *models.Tender, result *models.RecommendationResult, suppliers []*models.Supplier, elapsed time.Duration) *models.RecommendationResponse {
	byID := make(map[string]*models.Supplier, len(suppliers))
	for _, s := range suppliers {
		byID[s.ID] = s
	}
	resp := &models.RecommendationResponse{
		TenderID:        tender.ID,
		TenderTitle:     tender.Title,
		Strategy:        result.Strategy,
		QueryTime:       elapsed.Milliseconds(),
		Recommendations: make([]models.RecommendedSupplier, 0, len(result.Recommendations)),
	}
	for _, rec := range result.Recommendations {
		item := models.RecommendedSupplier{
			SupplierID:   rec.SupplierID,
			ScorePercent: rec.ScorePercent,
			Rank:         rec.Rank,
		}
		if s, ok := byID[rec.SupplierID]; ok {
			item.CompanyName = s.CompanyName
			item.Area = s.Area
			item.Rating = s.Rating
		}
		resp.Recommendations = append(resp.Recommendations, item)
	}
	return resp
}
