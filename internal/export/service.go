package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Service renders reconciliation reports.
type Service struct {
	pdf      PDFRenderer
	archiver Archiver
	logger   *zap.Logger
}

// NewService creates a report service. pdf and archiver may be nil, which
// disables PDF output and archiving respectively.
func NewService(pdf PDFRenderer, archiver Archiver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{pdf: pdf, archiver: archiver, logger: logger.Named("export")}
}

// Render produces report in format. With archive set the output is also
// stored under reports/{company_id}/{timestamp}-{filename}.
func (s *Service) Render(ctx context.Context, report Report, format Format, archive bool) (*Result, error) {
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}
	if archive && s.archiver == nil {
		return nil, ErrArchiveUnavailable
	}

	base := sanitizeFilename("reconciliation " + firstNonEmpty(report.Company.Name, report.Company.ID))
	var result *Result
	switch format {
	case FormatCSV:
		data, err := renderCSV(report)
		if err != nil {
			return nil, err
		}
		result = &Result{Data: data, Filename: base + ".csv", MimeType: "text/csv; charset=utf-8"}
	case FormatHTML, FormatPDF:
		html, err := RenderReportHTML(newTemplateData(report))
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		if format == FormatHTML {
			result = &Result{Data: []byte(html), Filename: base + ".html", MimeType: "text/html; charset=utf-8"}
			break
		}
		if s.pdf == nil {
			return nil, fmt.Errorf("%w: chromium not configured", ErrPDFDependencyMissing)
		}
		data, err := s.pdf.RenderPDF(ctx, html)
		if err != nil {
			return nil, err
		}
		result = &Result{Data: data, Filename: base + ".pdf", MimeType: "application/pdf"}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if archive {
		key := ObjectKey(report.Company.ID, report.GeneratedAt, result.Filename)
		if err := s.archiver.Put(ctx, key, result.Data, result.MimeType); err != nil {
			return nil, fmt.Errorf("archive report: %w", err)
		}
		result.ObjectKey = key
		s.logger.Info("report archived",
			zap.String("company_id", report.Company.ID),
			zap.String("key", key),
			zap.Int("bytes", len(result.Data)),
		)
	}
	return result, nil
}

func ObjectKey(companyID string, generatedAt time.Time, filename string) string {
	return fmt.Sprintf("reports/%s/%s-%s", companyID, generatedAt.UTC().Format("20060102T150405Z"), filename)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
