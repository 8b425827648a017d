package recommend

import (
	"context"
	"fmt"

	"github.com/hyperjump/licita/internal/models"
)

// EvalCase is a tender with the suppliers judged relevant to it.
type EvalCase struct {
	Tender   models.TenderQuery `yaml:"tender" json:"tender"`
	Relevant []string           `yaml:"relevant" json:"relevant"`
}

// EvalReport holds mean precision, recall and F1 at K over all cases.
type EvalReport struct {
	K         int     `json:"k"`
	Cases     int     `json:"cases"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Evaluate runs every case through the engine and averages precision@k, recall@k and F1@k.
// Cases without relevant suppliers are skipped. k <= 0 means 10.
func Evaluate(ctx context.Context, engine *Engine, cases []EvalCase, suppliers []models.SupplierProfile, k int) (*EvalReport, error) {
	if k <= 0 {
		k = 10
	}
	report := &EvalReport{K: k}
	for _, c := range cases {
		if len(c.Relevant) == 0 {
			continue
		}
		res, err := engine.Recommend(ctx, c.Tender, suppliers, k)
		if err != nil {
			return nil, fmt.Errorf("evaluate tender %s: %w", c.Tender.ID, err)
		}
		relevant := make(map[string]struct{}, len(c.Relevant))
		for _, id := range c.Relevant {
			relevant[id] = struct{}{}
		}
		hits := 0
		for _, r := range res.Recommendations {
			if _, ok := relevant[r.SupplierID]; ok {
				hits++
			}
		}
		var p, r, f float64
		if n := len(res.Recommendations); n > 0 {
			p = float64(hits) / float64(n)
		}
		r = float64(hits) / float64(len(relevant))
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		report.Precision += p
		report.Recall += r
		report.F1 += f
		report.Cases++
	}
	if report.Cases > 0 {
		n := float64(report.Cases)
		report.Precision /= n
		report.Recall /= n
		report.F1 /= n
	}
	return report, nil
}
