package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/observability"
)

// Export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
	ExportFormatPDF  = "pdf"
)

var exportHeader = []string{"Position", "Rank", "Candidate", "Partylist", "Votes", "Percentage", "Winner", "Tied"}

// ExportFile is a rendered results document.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders the current results for download.
type ExportService interface {
	Export(ctx context.Context, actor ActivityActor, format string) (ExportFile, error)
}

type exportService struct {
	results  ResultsService
	activity ActivityRecorder
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(results ResultsService, activity ActivityRecorder, logger zerolog.Logger) ExportService {
	return &exportService{
		results:  results,
		activity: activity,
		logger:   logger.With().Str("component", "export_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/campus-evote-api/internal/service/export"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *exportService) Export(ctx context.Context, actor ActivityActor, format string) (ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	ctx, span := s.tracer.Start(ctx, "results.export", trace.WithAttributes(attribute.String("export.format", format)))
	defer span.End()

	var render func(dto.ResultsResponse) ([]byte, error)
	var contentType string
	switch format {
	case ExportFormatCSV:
		render, contentType = renderCSV, "text/csv; charset=utf-8"
	case ExportFormatXLSX:
		render, contentType = renderXLSX, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatPDF:
		render, contentType = renderPDF, "application/pdf"
	default:
		return ExportFile{}, election.NewValidationError("format", "must be one of csv, xlsx, pdf")
	}

	results, err := s.results.Current(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_results_failed")
		return ExportFile{}, err
	}

	data, err := render(results)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render_failed")
		return ExportFile{}, fmt.Errorf("render %s export: %w", format, err)
	}

	observability.ResultsExports().WithLabelValues(format).Inc()
	recordActivity(ctx, s.activity, s.logger, actor, "results.export", "election", nil, map[string]interface{}{
		"format":    format,
		"positions": len(results.Positions),
	})

	return ExportFile{
		FileName:    fmt.Sprintf("election-results-%s.%s", s.now().Format("20060102-150405"), format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func exportRows(results dto.ResultsResponse) [][]string {
	rows := make([][]string, 0)
	for _, position := range results.Positions {
		for _, candidate := range position.Candidates {
			rows = append(rows, []string{
				position.PositionName,
				strconv.Itoa(candidate.Rank),
				candidate.Name,
				candidate.Partylist,
				strconv.FormatInt(candidate.VoteCount, 10),
				strconv.FormatFloat(candidate.Percentage, 'f', 1, 64),
				yesNo(candidate.IsWinner),
				yesNo(candidate.Tied),
			})
		}
	}
	return rows
}

func renderCSV(results dto.ResultsResponse) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeader); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(exportRows(results)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(results dto.ResultsResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, len(exportHeader))
	for _, title := range exportHeader {
		header = append(header, title)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, values := range exportRows(results) {
		row := make([]interface{}, 0, len(values))
		for col, value := range values {
			switch col {
			case 1, 4:
				n, _ := strconv.ParseInt(value, 10, 64)
				row = append(row, n)
			case 5:
				pct, _ := strconv.ParseFloat(value, 64)
				row = append(row, pct)
			default:
				row = append(row, value)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDF(results dto.ResultsResponse) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Election Results", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Election Results", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	summary := fmt.Sprintf("Status: %s   Published: %s   Ballots cast: %d   Generated: %s",
		results.ElectionStatus, yesNo(results.Published), results.TotalBallots, results.GeneratedAt.Format(time.RFC1123))
	pdf.CellFormat(0, 8, summary, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{55, 15, 70, 55, 20, 25, 18, 18}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, title := range exportHeader {
		pdf.CellFormat(widths[i], 8, title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range exportRows(results) {
		for i, value := range row {
			align := "L"
			if i == 1 || i >= 4 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
