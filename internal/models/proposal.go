package models

import (
	"fmt"
	"time"
)

// Proposal is a supplier's bid for a tender.
type Proposal struct {
	ID           string    `json:"id" yaml:"id"`
	TenderID     string    `json:"tender_id" yaml:"tender_id"`
	SupplierID   string    `json:"supplier_id" yaml:"supplier_id"`
	Value        float64   `json:"value" yaml:"value"`
	DeliveryDays int       `json:"delivery_days" yaml:"delivery_days"`
	Description  string    `json:"description,omitempty" yaml:"description"`
	Status       string    `json:"status,omitempty" yaml:"status"`
	AIScore      *float64  `json:"ai_score,omitempty" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks the fields required to store a proposal and fills a default status.
func (p *Proposal) Validate() error {
	if p.TenderID == "" || p.SupplierID == "" {
		return fmt.Errorf("proposal requires tender_id and supplier_id")
	}
	if p.Value < 0 {
		return fmt.Errorf("proposal value cannot be negative")
	}
	if p.Status == "" {
		p.Status = "enviada"
	}
	return nil
}
