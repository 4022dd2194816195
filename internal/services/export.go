package services

import (
	"bytes"
	"encoding/csv"

	"github.com/soaringjerry/kavili/internal/models"
)

const exportDateLayout = "2006-01-02"

// ExportEntriesCSV renders entries as Name,Phone,Result,Date in the given order.
func ExportEntriesCSV(entries []*models.Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"Name", "Phone", "Result", "Date"})
	for _, e := range entries {
		rec := []string{
			e.Name,
			e.Phone,
			e.Result,
			e.CreatedAt.UTC().Format(exportDateLayout),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
