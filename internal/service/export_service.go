package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
	"github.com/edumarket/course-market-api/pkg/export"
)

type rosterReader interface {
	ListByCourse(ctx context.Context, tenantID, courseID string) ([]models.Purchase, error)
}

// Roster export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ExportService renders course rosters for instructors and admins.
type ExportService struct {
	purchases rosterReader
	courses   courseReader
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(purchases rosterReader, courses courseReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		purchases: purchases,
		courses:   courses,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// RosterExport carries rendered export content.
type RosterExport struct {
	Content     []byte
	ContentType string
	Filename    string
}

var rosterHeaders = []string{"Alumno", "Documento", "Estado", "Días", "Inicio", "Fin"}

// Roster renders the purchase roster of a course in the requested
// format. Instructors may only export their own courses.
func (s *ExportService) Roster(ctx context.Context, identity *models.Identity, courseID, format string) (*RosterExport, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "formato inválido, se espera csv o pdf")
	}

	course, err := s.courses.FindByID(ctx, identity.TenantID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curso no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if identity.Role != models.RoleAdmin && course.InstructorID != identity.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "solo el instructor del curso puede exportar su lista")
	}

	purchases, err := s.purchases.ListByCourse(ctx, identity.TenantID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(purchases))}
	for _, p := range purchases {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Alumno":    p.StudentName,
			"Documento": p.StudentID,
			"Estado":    string(p.State),
			"Días":      strings.Join(p.Days, ", "),
			"Inicio":    p.StartTime,
			"Fin":       p.EndTime,
		})
	}

	switch format {
	case FormatPDF:
		content, err := s.pdf.Render(dataset, course.Name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &RosterExport{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("roster-%s.pdf", course.ID),
		}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &RosterExport{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("roster-%s.csv", course.ID),
		}, nil
	}
}
