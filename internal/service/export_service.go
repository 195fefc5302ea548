package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/altitutor/admin-api/internal/dto"
	"github.com/altitutor/admin-api/internal/models"
	"github.com/altitutor/admin-api/pkg/dates"
	appErrors "github.com/altitutor/admin-api/pkg/errors"
	"github.com/altitutor/admin-api/pkg/export"
)

const (
	exportColumnName     = "Name"
	exportColumnKind     = "Kind"
	exportColumnRole     = "Role"
	exportColumnPlanned  = "Planned"
	exportColumnCrossRef = "Cross-reference"
	exportColumnActual   = "Actual"
)

var reconciliationHeaders = []string{exportColumnName, exportColumnKind, exportColumnRole, exportColumnPlanned, exportColumnCrossRef, exportColumnActual}

type reconciliationReader interface {
	GetSessionReconciliation(ctx context.Context, sessionID string) (*models.SessionReconciliation, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, subtitles ...string) ([]byte, error)
}

// ExportService renders reconciliation sheets for printing or spreadsheets.
type ExportService struct {
	reconciliation reconciliationReader
	csv            csvRenderer
	pdf            pdfRenderer
	logger         *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export ones.
func NewExportService(reconciliation reconciliationReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reconciliation: reconciliation, csv: csv, pdf: pdf, logger: logger}
}

// ExportReconciliation renders one row per participant of the session in the requested format.
func (s *ExportService) ExportReconciliation(ctx context.Context, sessionID string, format dto.ExportFormat) (*dto.ExportFile, error) {
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	rec, _, err := s.reconciliation.GetSessionReconciliation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	dataset := reconciliationDataset(rec)

	var body []byte
	file := &dto.ExportFile{}
	switch format {
	case dto.ExportFormatPDF:
		status := "Tutor log submitted"
		if !rec.Logged {
			status = "No tutor log yet"
		}
		body, err = s.pdf.Render(dataset, rec.Title, rec.DateLabel, status)
		file.ContentType = "application/pdf"
	default:
		body, err = s.csv.Render(dataset)
		file.ContentType = "text/csv"
	}
	if err != nil {
		return nil, internalError(err, "failed to render export")
	}

	file.Body = body
	file.Filename = fmt.Sprintf("reconciliation_%s_%s.%s", sanitizeFilename(rec.Title), rec.Session.SessionDate.Format(dates.DateLayout), format)
	s.logger.Debug("reconciliation exported", zap.String("session_id", sessionID), zap.String("format", string(format)), zap.Int("bytes", len(body)))
	return file, nil
}

func reconciliationDataset(rec *models.SessionReconciliation) export.Dataset {
	dataset := export.Dataset{Headers: reconciliationHeaders}
	add := func(p models.ParticipantReconciliation) {
		role := ""
		if p.Role != nil {
			role = string(*p.Role)
		}
		crossRef := ""
		if p.PlannedCrossRef != nil {
			crossRef = p.PlannedCrossRef.Label
		} else if p.Redirect == models.RedirectUnresolved {
			crossRef = "Unresolved"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			exportColumnName:     p.Name,
			exportColumnKind:     string(p.Kind),
			exportColumnRole:     role,
			exportColumnPlanned:  p.PlannedLabel,
			exportColumnCrossRef: crossRef,
			exportColumnActual:   p.ActualLabel,
		})
	}
	for _, p := range rec.Students {
		add(p)
	}
	for _, p := range rec.Staff {
		add(p)
	}

	unplanned := append(append([]models.UnplannedAttendance{}, rec.UnplannedStudents...), rec.UnplannedStaff...)
	for _, u := range unplanned {
		dataset.Rows = append(dataset.Rows, map[string]string{
			exportColumnName:    u.Name,
			exportColumnKind:    string(u.Kind),
			exportColumnPlanned: "Not planned",
			exportColumnActual:  u.ActualLabel,
		})
	}
	return dataset
}

func sanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "session"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(strings.TrimSpace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
