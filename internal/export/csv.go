package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

var csvHeader = []string{
	"investor_id", "investor_name", "client_name", "status", "match_type",
	"matched_company_id", "matched_company_name", "candidates",
}

// renderCSV writes one row per result. Ambiguous candidates are joined with
// "; " as "name (id)".
func renderCSV(report Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, result := range report.Preview.Results {
		row := rowFromResult(result)
		candidates := make([]string, 0, len(row.Candidates))
		for _, candidate := range row.Candidates {
			candidates = append(candidates, fmt.Sprintf("%s (%s)", candidate.Name, candidate.ID))
		}
		record := []string{
			row.InvestorID,
			row.InvestorName,
			row.ClientName,
			string(row.Status),
			string(row.MatchType),
			row.MatchedCompanyID,
			row.MatchedCompanyName,
			strings.Join(candidates, "; "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", row.InvestorID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
