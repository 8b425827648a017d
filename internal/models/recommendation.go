package models

// Recommendation is one ranked supplier for a tender.
type Recommendation struct {
	SupplierID   string  `json:"supplier_id"`
	ScorePercent float64 `json:"score_percent"`
	Rank         int     `json:"rank"`
}

// RecommendationResult is the ordered output of the recommender. Rank is dense and 1-based;
// ScorePercent is non-increasing with position.
type RecommendationResult struct {
	TenderID        string           `json:"tender_id"`
	Strategy        string           `json:"strategy"`
	Recommendations []Recommendation `json:"recommendations"`
}

// RecommendedSupplier is a recommendation enriched with supplier details for display.
type RecommendedSupplier struct {
	SupplierID   string  `json:"supplier_id"`
	CompanyName  string  `json:"company_name"`
	Area         string  `json:"area,omitempty"`
	Rating       float64 `json:"rating"`
	ScorePercent float64 `json:"score_percent"`
	Rank         int     `json:"rank"`
}

// RecommendationResponse is the API response for a tender's recommendations.
type RecommendationResponse struct {
	TenderID        string                `json:"tender_id"`
	TenderTitle     string                `json:"tender_title"`
	Strategy        string                `json:"strategy"`
	QueryTime       int64                 `json:"query_time_ms"`
	Recommendations []RecommendedSupplier `json:"recommendations"`
}
