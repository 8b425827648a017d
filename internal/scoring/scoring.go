// Package scoring rates proposals on price, delivery time and supplier rating.
package scoring

import (
	"context"
	"fmt"

	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/storage"
	"github.com/hyperjump/licita/pkg/utils"
	"go.uber.org/zap"
)

// neutralScore is used for a factor that cannot be computed.
const neutralScore = 50

// Weights are the relative contributions of each factor and the delivery horizon used to
// scale delivery time.
type Weights struct {
	Price               float64 `yaml:"price_weight" json:"price_weight"`
	Delivery            float64 `yaml:"delivery_weight" json:"delivery_weight"`
	Rating              float64 `yaml:"rating_weight" json:"rating_weight"`
	DeliveryHorizonDays int     `yaml:"delivery_horizon_days" json:"delivery_horizon_days"`
}

// DefaultWeights returns price 0.5, delivery 0.3, rating 0.2 over a 30 day horizon.
func DefaultWeights() Weights {
	return Weights{Price: 0.5, Delivery: 0.3, Rating: 0.2, DeliveryHorizonDays: 30}
}

// Breakdown holds the per-factor scores (0..100) and the weighted total.
type Breakdown struct {
	Price    float64 `json:"price"`
	Delivery float64 `json:"delivery"`
	Rating   float64 `json:"rating"`
	Total    float64 `json:"total"`
}

// Score rates one proposal. A proposal at or above the estimated value scores 0 on price;
// without an estimate price is neutral. Delivery scales linearly to 0 at the horizon and is
// neutral when unknown. Rating maps 0..5 stars to 0..100.
func Score(tender *models.Tender, proposal *models.Proposal, supplier *models.Supplier, w Weights) Breakdown {
	var b Breakdown
	if tender.EstimatedValue > 0 {
		b.Price = utils.Clamp(100-proposal.Value/tender.EstimatedValue*100, 0, 100)
	} else {
		b.Price = neutralScore
	}

	horizon := w.DeliveryHorizonDays
	if horizon <= 0 {
		horizon = DefaultWeights().DeliveryHorizonDays
	}
	if proposal.DeliveryDays > 0 {
		b.Delivery = utils.Clamp(100-float64(proposal.DeliveryDays)/float64(horizon)*100, 0, 100)
	} else {
		b.Delivery = neutralScore
	}

	b.Rating = utils.Clamp(supplier.Rating*20, 0, 100)
	b.Total = utils.RoundTo(b.Price*w.Price+b.Delivery*w.Delivery+b.Rating*w.Rating, 2)
	return b
}

// Report summarizes a ScoreTender run.
type Report struct {
	TenderID  string `json:"tender_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
}

// Service scores stored proposals and persists the result.
type Service struct {
	store   storage.Storage
	weights Weights
	logger  *zap.Logger
}

// NewService creates a scoring service. A nil logger disables logging.
func NewService(store storage.Storage, weights Weights, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, weights: weights, logger: logger}
}

// ScoreTender scores every proposal of the tender and stores each total as the proposal's
// ai_score. Proposals whose supplier no longer exists are skipped.
func (s *Service) ScoreTender(ctx context.Context, tenderID string) (*Report, error) {
	tender, err := s.store.GetTender(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	proposals, err := s.store.ListProposalsByTender(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	ids := make([]string, 0, len(proposals))
	for _, p := range proposals {
		ids = append(ids, p.SupplierID)
	}
	suppliers, err := s.store.GetSuppliersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load suppliers: %w", err)
	}

	report := &Report{TenderID: tenderID}
	for _, p := range proposals {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sup, ok := suppliers[p.SupplierID]
		if !ok {
			report.Skipped++
			continue
		}
		b := Score(tender, p, sup, s.weights)
		if err := s.store.UpdateProposalScore(ctx, p.ID, b.Total); err != nil {
			return report, fmt.Errorf("store score for proposal %s: %w", p.ID, err)
		}
		report.Processed++
	}
	s.logger.Info("proposal scores computed",
		zap.String("tender_id", tenderID),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped))
	return report, nil
}
