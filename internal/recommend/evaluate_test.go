package recommend

import (
	"context"
	"math"
	"testing"

	"github.com/hyperjump/licita/internal/models"
)

func TestEvaluate(t *testing.T) {
	e := newTFIDFEngine(t, WithOnDemandBuild(true))
	cases := []EvalCase{
		{Tender: models.TenderQuery{ID: "t1", Text: "computadores e servidores"}, Relevant: []string{"1"}},
		{Tender: models.TenderQuery{ID: "t2", Text: "limpeza predial"}, Relevant: []string{"3"}},
		{Tender: models.TenderQuery{ID: "t3", Text: "ignored"}},
	}
	report, err := Evaluate(context.Background(), e, cases, catalog(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if report.Cases != 2 || report.K != 1 {
		t.Fatalf("report = %+v", report)
	}
	for name, v := range map[string]float64{"precision": report.Precision, "recall": report.Recall, "f1": report.F1} {
		if math.Abs(v-1) > 1e-9 {
			t.Errorf("%s = %v, want 1", name, v)
		}
	}

	wide, _ := Evaluate(context.Background(), e, cases[:1], catalog(), 0)
	if wide.K != 10 {
		t.Errorf("default k = %d", wide.K)
	}
	// five suppliers returned, one relevant
	if math.Abs(wide.Precision-0.2) > 1e-9 || wide.Recall != 1 {
		t.Errorf("wide report = %+v", wide)
	}
}
