package api

import (
	"context"
	"io"
	"log/slog"

	"github.com/phrazzld/taskoverflow-api/internal/domain"
	"github.com/phrazzld/taskoverflow-api/internal/query"
	"github.com/phrazzld/taskoverflow-api/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockExportService is a mock implementation of service.ExportService for testing
type MockExportService struct {
	SubmitExportFn         func(ctx context.Context, todos []domain.TodoSnapshot) (string, error)
	SubmitFilteredExportFn func(ctx context.Context, c query.Criteria) (string, error)
	ExportStatusFn         func(ctx context.Context, jobID string) (*domain.JobInfo, error)
	ExportResultFn         func(ctx context.Context, jobID string) (*service.CalendarDocument, error)
}

func (m *MockExportService) SubmitExport(ctx context.Context, todos []domain.TodoSnapshot) (string, error) {
	if m.SubmitExportFn != nil {
		return m.SubmitExportFn(ctx, todos)
	}
	return "", nil
}

func (m *MockExportService) SubmitFilteredExport(ctx context.Context, c query.Criteria) (string, error) {
	if m.SubmitFilteredExportFn != nil {
		return m.SubmitFilteredExportFn(ctx, c)
	}
	return "", nil
}

func (m *MockExportService) ExportStatus(ctx context.Context, jobID string) (*domain.JobInfo, error) {
	if m.ExportStatusFn != nil {
		return m.ExportStatusFn(ctx, jobID)
	}
	return &domain.JobInfo{ID: jobID, Status: domain.JobStatusUnknown}, nil
}

func (m *MockExportService) ExportResult(ctx context.Context, jobID string) (*service.CalendarDocument, error) {
	if m.ExportResultFn != nil {
		return m.ExportResultFn(ctx, jobID)
	}
	return nil, service.ErrJobNotReady
}
