package audit

import (
	"bytes"
	"encoding/csv"
)

// CSVExporter menulis baris timeline menjadi dokumen CSV.
type CSVExporter struct{}

// WriteCSV menghasilkan CSV dengan header tetap.
func (CSVExporter) WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"waktu", "aktor", "aksi", "detail", "meta"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.At.UTC().Format("2006-01-02 15:04:05"),
			row.Actor,
			row.Action,
			row.Detail,
			row.Meta,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
