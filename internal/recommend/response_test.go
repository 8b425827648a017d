package recommend

import (
	"testing"
	"time"

	"github.com/hyperjump/licita/internal/models"
)

func TestEnrich(t *testing.T) {
	tender := &models.Tender{ID: "t1", Title: "Notebooks"}
	result := &models.RecommendationResult{
		TenderID: "t1",
		Strategy: "tfidf",
		Recommendations: []models.Recommendation{
			{SupplierID: "2", ScorePercent: 80.5, Rank: 1},
			{SupplierID: "9", ScorePercent: 10, Rank: 2},
		},
	}
	suppliers := []*models.Supplier{
		{ID: "1", CompanyName: "Verde Jardins"},
		{ID: "2", CompanyName: "TechSolutions", Area: "Tecnologia", Rating: 4.5},
	}
	resp := Enrich(tender, result, suppliers, 1500*time.Microsecond)
	if resp.TenderTitle != "Notebooks" || resp.Strategy != "tfidf" || resp.QueryTime != 1 {
		t.Errorf("header = %+v", resp)
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("got %d recommendations", len(resp.Recommendations))
	}
	first := resp.Recommendations[0]
	if first.CompanyName != "TechSolutions" || first.Area != "Tecnologia" || first.Rating != 4.5 || first.Rank != 1 {
		t.Errorf("first = %+v", first)
	}
	if missing := resp.Recommendations[1]; missing.CompanyName != "" || missing.SupplierID != "9" || missing.ScorePercent != 10 {
		t.Errorf("missing supplier = %+v", missing)
	}
}
