package e2e

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildCorpus_Deterministic(t *testing.T) {
	a := BuildCorpus(7, 3)
	b := BuildCorpus(7, 3)
	if len(a.Suppliers) != len(topics)*4 || len(a.Tenders) != len(topics) {
		t.Fatalf("got %d suppliers, %d tenders", len(a.Suppliers), len(a.Tenders))
	}
	for i := range a.Suppliers {
		if !reflect.DeepEqual(a.Suppliers[i], b.Suppliers[i]) {
			t.Fatalf("supplier %d differs between runs: %+v vs %+v", i, a.Suppliers[i], b.Suppliers[i])
		}
	}
	if !reflect.DeepEqual(a.Relevant, b.Relevant) {
		t.Error("relevant sets differ between runs")
	}
}

func TestBuildCorpus_RelevantAreActiveAndInArea(t *testing.T) {
	c := BuildCorpus(1, 2)
	byID := make(map[string]int)
	for i, s := range c.Suppliers {
		if _, dup := byID[s.ID]; dup {
			t.Fatalf("duplicate supplier id %s", s.ID)
		}
		byID[s.ID] = i
		if s.Rating < 2 || s.Rating > 5 {
			t.Errorf("rating %v out of range", s.Rating)
		}
	}
	for ti, tender := range c.Tenders {
		ids := c.Relevant[tender.ID]
		if len(ids) != 2 {
			t.Fatalf("tender %s has %d relevant suppliers", tender.ID, len(ids))
		}
		for _, id := range ids {
			s := c.Suppliers[byID[id]]
			if !s.IsActive() || s.Area != topics[ti].area {
				t.Errorf("relevant supplier %+v for tender %s", s, tender.ID)
			}
			if !strings.Contains(s.Description, topics[ti].signature) {
				t.Errorf("supplier %s lacks the topic signature", id)
			}
		}
		if c.Cases[ti].Tender.ID != tender.ID || !reflect.DeepEqual(c.Cases[ti].Relevant, ids) {
			t.Errorf("case %d = %+v", ti, c.Cases[ti])
		}
	}
}
