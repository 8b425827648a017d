// Package models defines core data structures for tenders, suppliers, proposals and recommendations.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TenderStatus is the lifecycle stage of a tender.
type TenderStatus string

const (
	TenderDraft     TenderStatus = "rascunho"
	TenderPublished TenderStatus = "publicada"
	TenderReviewing TenderStatus = "em_analise"
	TenderAwarded   TenderStatus = "adjudicada"
	TenderApproved  TenderStatus = "homologada"
	TenderClosed    TenderStatus = "concluida"
	TenderCancelled TenderStatus = "cancelada"
	TenderSuspended TenderStatus = "suspensa"
)

// Tender is a government bidding process record.
type Tender struct {
	ID             string       `json:"id" yaml:"id"`
	Number         string       `json:"number,omitempty" yaml:"number"`
	Title          string       `json:"title" yaml:"title"`
	Description    string       `json:"description" yaml:"description"`
	Object         string       `json:"object,omitempty" yaml:"object"`
	Keywords       []string     `json:"keywords,omitempty" yaml:"keywords"`
	Status         TenderStatus `json:"status,omitempty" yaml:"status"`
	Type           string       `json:"type,omitempty" yaml:"type"`
	EstimatedValue float64      `json:"estimated_value,omitempty" yaml:"estimated_value"`
	Agency         string       `json:"agency,omitempty" yaml:"agency"`
	// Document is a path to the tender notice (edital); only used at import time.
	Document  string    `json:"-" yaml:"document"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks the fields required to store a tender and fills a default status.
func (t *Tender) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("tender title cannot be empty")
	}
	if t.Status == "" {
		t.Status = TenderDraft
	}
	return nil
}

// Query builds the relevance input for the recommender: title, description, object and keywords.
func (t *Tender) Query() TenderQuery {
	return TenderQuery{
		ID:   t.ID,
		Text: joinText(t.Title, t.Description, t.Object, strings.Join(t.Keywords, " ")),
	}
}

// TenderQuery is the ephemeral recommender input for one tender.
type TenderQuery struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func joinText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
