// Package export renders reconciliation previews as HTML, CSV or PDF reports
// and optionally archives them to object storage.
package export

import (
	"errors"
	"time"

	"fundops/api/internal/reconcile"
)

// Format represents the export output format
type Format string

const (
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query value to a Format. Empty means HTML.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatCSV, FormatPDF:
		return Format(value), nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Report is one rendered Preview for a source company.
type Report struct {
	Company     reconcile.Company
	GeneratedAt time.Time
	Preview     reconcile.PreviewReport
}

// Row flattens a MatchResult for tabular output.
type Row struct {
	InvestorID         string
	InvestorName       string
	ClientName         string
	Status             reconcile.Status
	MatchType          reconcile.MatchType
	MatchedCompanyID   string
	MatchedCompanyName string
	Candidates         []reconcile.Company
}

func rowFromResult(result reconcile.MatchResult) Row {
	row := Row{
		InvestorID:   result.InvestorID,
		InvestorName: result.InvestorName,
		ClientName:   result.ClientName,
		Status:       result.Status(),
	}
	switch outcome := result.Outcome.(type) {
	case reconcile.Matched:
		row.MatchType = outcome.MatchType
		row.MatchedCompanyID = outcome.Company.ID
		row.MatchedCompanyName = outcome.Company.Name
	case reconcile.Ambiguous:
		row.Candidates = outcome.Candidates
	}
	return row
}

// Result contains the export output
type Result struct {
	Data      []byte
	Filename  string
	MimeType  string
	ObjectKey string
}

var (
	// ErrUnsupportedFormat indicates an unknown export format was requested.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrArchiveUnavailable indicates archiving was requested without object storage.
	ErrArchiveUnavailable = errors.New("report archive not configured")
)
