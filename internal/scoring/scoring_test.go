package scoring

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/storage"
)

func TestScore(t *testing.T) {
	w := DefaultWeights()
	tests := []struct {
		name     string
		tender   models.Tender
		proposal models.Proposal
		rating   float64
		want     Breakdown
	}{
		{
			name:     "typical bid",
			tender:   models.Tender{EstimatedValue: 1000},
			proposal: models.Proposal{Value: 800, DeliveryDays: 15},
			rating:   4,
			want:     Breakdown{Price: 20, Delivery: 50, Rating: 80, Total: 41},
		},
		{
			name:     "no estimate and no delivery",
			tender:   models.Tender{},
			proposal: models.Proposal{Value: 800},
			rating:   5,
			want:     Breakdown{Price: 50, Delivery: 50, Rating: 100, Total: 60},
		},
		{
			name:     "over budget and late",
			tender:   models.Tender{EstimatedValue: 1000},
			proposal: models.Proposal{Value: 1500, DeliveryDays: 45},
			rating:   0,
			want:     Breakdown{Price: 0, Delivery: 0, Rating: 0, Total: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(&tt.tender, &tt.proposal, &models.Supplier{Rating: tt.rating}, w)
			if !near(got.Price, tt.want.Price) || !near(got.Delivery, tt.want.Delivery) ||
				!near(got.Rating, tt.want.Rating) || !near(got.Total, tt.want.Total) {
				t.Errorf("Score() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScore_customHorizon(t *testing.T) {
	w := Weights{Delivery: 1, DeliveryHorizonDays: 60}
	got := Score(&models.Tender{}, &models.Proposal{DeliveryDays: 15}, &models.Supplier{}, w)
	if !near(got.Delivery, 75) || !near(got.Total, 75) {
		t.Errorf("got %+v", got)
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestService_ScoreTender(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	mustDo(t, store.CreateTender(ctx, &models.Tender{ID: "t1", Title: "Computadores", EstimatedValue: 1000}))
	mustDo(t, store.CreateSupplier(ctx, &models.Supplier{ID: "s1", CompanyName: "Alfa", Rating: 4}))
	mustDo(t, store.CreateSupplier(ctx, &models.Supplier{ID: "s2", CompanyName: "Beta", Rating: 5}))
	mustDo(t, store.CreateProposal(ctx, &models.Proposal{ID: "p1", TenderID: "t1", SupplierID: "s1", Value: 800, DeliveryDays: 15}))
	mustDo(t, store.CreateProposal(ctx, &models.Proposal{ID: "p2", TenderID: "t1", SupplierID: "s2", Value: 1000}))

	svc := NewService(store, DefaultWeights(), nil)
	report, err := svc.ScoreTender(ctx, "t1")
	if err != nil {
		t.Fatalf("ScoreTender: %v", err)
	}
	if report.Processed != 2 || report.Skipped != 0 {
		t.Errorf("report = %+v", report)
	}
	list, err := store.ListProposalsByTender(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{"p1": 41, "p2": 35}
	for _, p := range list {
		if p.AIScore == nil || !near(*p.AIScore, want[p.ID]) {
			t.Errorf("%s score = %v, want %v", p.ID, p.AIScore, want[p.ID])
		}
	}

	if _, err := svc.ScoreTender(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
