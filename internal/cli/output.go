// Package cli renders licita command output for terminals and scripts.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/licita/internal/catalog"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/hyperjump/licita/internal/scoring"
	"github.com/hyperjump/licita/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const (
	separator     = "─────────────────────────────────────────────────────────"
	maxNameLength = 40
)

// ParseFormat parses an --output flag value. Empty means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecommendations writes a tender's ranked suppliers to w in the given format.
func WriteRecommendations(w io.Writer, resp *models.RecommendationResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	fmt.Fprintf(w, "\nTender %s", resp.TenderID)
	if resp.TenderTitle != "" {
		fmt.Fprintf(w, ": %s", resp.TenderTitle)
	}
	fmt.Fprintf(w, "\n%d supplier(s) in %dms (strategy: %s)\n", len(resp.Recommendations), resp.QueryTime, resp.Strategy)
	if len(resp.Recommendations) == 0 {
		fmt.Fprintln(w, "No suppliers to recommend.")
		return nil
	}
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "%-5s %-8s %-12s %-*s %s\n", "RANK", "SCORE", "SUPPLIER", maxNameLength+3, "COMPANY", "RATING")
	for _, rec := range resp.Recommendations {
		name := rec.CompanyName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%-5d %-8s %-12s %-*s %.1f\n",
			rec.Rank,
			fmt.Sprintf("%.1f%%", rec.ScorePercent),
			utils.Truncate(rec.SupplierID, 9),
			maxNameLength+3, utils.Truncate(name, maxNameLength),
			rec.Rating)
	}
	fmt.Fprintln(w, separator)
	return nil
}

// WriteImportResult writes import counts.
func WriteImportResult(w io.Writer, res *catalog.Result, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	fmt.Fprintf(w, "files:      %d\n", res.Files)
	fmt.Fprintf(w, "suppliers:  %d\n", res.Suppliers)
	fmt.Fprintf(w, "tenders:    %d\n", res.Tenders)
	fmt.Fprintf(w, "proposals:  %d\n", res.Proposals)
	if res.Skipped > 0 {
		fmt.Fprintf(w, "skipped:    %d   # invalid records\n", res.Skipped)
	}
	return nil
}

// WriteScores writes the scored proposals of a tender, highest score first as given.
func WriteScores(w io.Writer, report *scoring.Report, proposals []*models.Proposal, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, struct {
			*scoring.Report
			Proposals []*models.Proposal `json:"proposals"`
		}{report, proposals})
	}
	fmt.Fprintf(w, "Scored %d proposal(s) for tender %s", report.Processed, report.TenderID)
	if report.Skipped > 0 {
		fmt.Fprintf(w, " (%d skipped)", report.Skipped)
	}
	fmt.Fprintln(w)
	if len(proposals) == 0 {
		return nil
	}
	fmt.Fprintln(w, separator)
	for _, p := range proposals {
		score := "-"
		if p.AIScore != nil {
			score = fmt.Sprintf("%.2f", *p.AIScore)
		}
		fmt.Fprintf(w, "%-8s supplier=%s value=%.2f delivery_days=%d\n", score, p.SupplierID, p.Value, p.DeliveryDays)
	}
	fmt.Fprintln(w, separator)
	return nil
}

// WriteEvalReport writes evaluation metrics.
func WriteEvalReport(w io.Writer, report *recommend.EvalReport, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, report)
	}
	fmt.Fprintf(w, "cases:         %d\n", report.Cases)
	fmt.Fprintf(w, "precision@%-3d %.4f\n", report.K, report.Precision)
	fmt.Fprintf(w, "recall@%-6d %.4f\n", report.K, report.Recall)
	fmt.Fprintf(w, "f1@%-10d %.4f\n", report.K, report.F1)
	return nil
}
