package api

import (
	"context"

	"cutagent/internal/store"
)

// RunReader abstracts the history queries the API needs.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// HistoryService exposes read-only run history as API DTOs.
type HistoryService struct {
	reader RunReader
}

// NewHistoryService constructs a HistoryService around reader. A nil reader
// yields a nil service, which reports an empty history.
func NewHistoryService(reader RunReader) *HistoryService {
	if reader == nil {
		return nil
	}
	return &HistoryService{reader: reader}
}

// List returns the most recent runs, newest first.
func (s *HistoryService) List(ctx context.Context, limit int) ([]RunItem, error) {
	if s == nil || s.reader == nil {
		return []RunItem{}, nil
	}
	runs, err := s.reader.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromRuns(runs), nil
}
