package models

import (
	"fmt"
	"strings"
	"time"
)

// Supplier is a vendor profile that can be matched against tenders.
type Supplier struct {
	ID          string    `json:"id" yaml:"id"`
	CompanyName string    `json:"company_name" yaml:"company_name"`
	TradeName   string    `json:"trade_name,omitempty" yaml:"trade_name"`
	CNPJ        string    `json:"cnpj,omitempty" yaml:"cnpj"`
	Area        string    `json:"area,omitempty" yaml:"area"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Specialties string    `json:"specialties,omitempty" yaml:"specialties"`
	Keywords    []string  `json:"keywords,omitempty" yaml:"keywords"`
	Rating      float64   `json:"rating" yaml:"rating"`
	Active      *bool     `json:"active,omitempty" yaml:"active"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

// IsActive reports whether the supplier may be recommended. Unset means active.
func (s *Supplier) IsActive() bool {
	return s.Active == nil || *s.Active
}

// Validate checks the fields required to store a supplier.
func (s *Supplier) Validate() error {
	if strings.TrimSpace(s.CompanyName) == "" {
		return fmt.Errorf("supplier company_name cannot be empty")
	}
	if s.Rating < 0 || s.Rating > 5 {
		return fmt.Errorf("supplier rating must be between 0 and 5, got %v", s.Rating)
	}
	return nil
}

// Profile builds the recommender input: description, area, specialties and keywords.
func (s *Supplier) Profile() SupplierProfile {
	active := s.IsActive()
	return SupplierProfile{
		ID:     s.ID,
		Text:   joinText(s.Description, s.Area, s.Specialties, strings.Join(s.Keywords, " ")),
		Active: &active,
	}
}

// SupplierProfile is the recommender's view of a supplier.
type SupplierProfile struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Active *bool  `json:"active,omitempty"`
}

// IsActive reports whether the profile takes part in recommendations. Unset means active.
func (p SupplierProfile) IsActive() bool {
	return p.Active == nil || *p.Active
}

// Profiles converts suppliers to recommender profiles, preserving order.
func Profiles(suppliers []*Supplier) []SupplierProfile {
	out := make([]SupplierProfile, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, s.Profile())
	}
	return out
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
