package services

import (
	"context"
	"time"
)

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	entries *EntryService
	now     func() time.Time
}

func NewExportService(entries *EntryService) *ExportService {
	return &ExportService{entries: entries, now: func() time.Time { return time.Now().UTC() }}
}

// ExportCSV renders every entry created at or after since, newest first.
func (s *ExportService) ExportCSV(ctx context.Context, since time.Time) (*ExportResult, error) {
	entries, err := s.entries.List(ctx, since)
	if err != nil {
		return nil, err
	}
	b, err := ExportEntriesCSV(entries)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    "avrudu_quiz_data_" + s.now().Format(exportDateLayout) + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        b,
	}, nil
}
