package export

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/mbolis/encuestas-pae/model"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	ResponsesSheet        = "Respuestas"
	SummarySheet          = "Resumen"
	ExecutiveSummarySheet = "Resumen Ejecutivo"

	minColWidth = 15
)

// Filename names the responses workbook of one survey type, or of every
// survey when surveyType is empty.
func Filename(surveyType model.SurveyType, now time.Time) string {
	if surveyType == "" {
		return "todas-las-encuestas-" + now.Format("2006-01-02") + ".xlsx"
	}
	return "encuesta-" + string(surveyType) + "-" + now.Format("2006-01-02") + ".xlsx"
}

func SummaryFilename(now time.Time) string {
	return "resumen-ejecutivo-" + now.Format("2006-01-02") + ".xlsx"
}

// WriteResponses writes a workbook with one row per response and a summary
// sheet.
func (s *Shaper) WriteResponses(w io.Writer, responses []model.Response) error {
	if len(responses) == 0 {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResponsesSheet); err != nil {
		return errors.Wrap(err, "export.responses.sheet")
	}
	if err := s.writeResponsesSheet(f, s.Shape(responses)); err != nil {
		return errors.Wrap(err, "export.responses")
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return errors.Wrap(err, "export.summary.sheet")
	}
	if err := writeRows(f, SummarySheet, 1, s.SummaryRows(Summarize(responses), false)); err != nil {
		return errors.Wrap(err, "export.summary")
	}
	if err := f.SetColWidth(SummarySheet, "A", "B", 35); err != nil {
		return errors.Wrap(err, "export.summary.width")
	}

	return errors.Wrap(f.Write(w), "export.responses.write")
}

// WriteExecutiveSummary writes a workbook holding only the rollup of every
// response, with the institutions they come from.
func (s *Shaper) WriteExecutiveSummary(w io.Writer, responses []model.Response, now time.Time) error {
	if len(responses) == 0 {
		return ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExecutiveSummarySheet); err != nil {
		return errors.Wrap(err, "export.executive.sheet")
	}

	rows := [][]any{
		{"Resumen Ejecutivo - Encuestas PAE"},
		{"Generado", s.formatTime(now)},
		{},
	}
	rows = append(rows, s.SummaryRows(Summarize(responses), true)...)
	if err := writeRows(f, ExecutiveSummarySheet, 1, rows); err != nil {
		return errors.Wrap(err, "export.executive")
	}
	if err := f.SetColWidth(ExecutiveSummarySheet, "A", "B", 40); err != nil {
		return errors.Wrap(err, "export.executive.width")
	}

	return errors.Wrap(f.Write(w), "export.executive.write")
}

// writeResponsesSheet puts a category band on row 1, labels on row 2 and the
// responses below.
func (s *Shaper) writeResponsesSheet(f *excelize.File, sheet Sheet) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	start := 0
	for start < len(sheet.Columns) {
		end := start
		for end+1 < len(sheet.Columns) && sheet.Columns[end+1].Category == sheet.Columns[start].Category {
			end++
		}

		label := "Respuesta"
		if sheet.Columns[start].Category != "" {
			label = s.catalog.CategoryLabel(sheet.Columns[start].Category)
		}
		first, err := excelize.CoordinatesToCellName(start+1, 1)
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(end+1, 1)
		if err != nil {
			return err
		}
		if err = f.SetCellValue(ResponsesSheet, first, label); err != nil {
			return err
		}
		if end > start {
			if err = f.MergeCell(ResponsesSheet, first, last); err != nil {
				return err
			}
		}
		start = end + 1
	}

	header := make([]any, len(sheet.Columns))
	for i, col := range sheet.Columns {
		header[i] = col.Label

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(len([]rune(col.Label)))
		if width < minColWidth {
			width = minColWidth
		}
		if err = f.SetColWidth(ResponsesSheet, name, name, width); err != nil {
			return err
		}
	}
	if err = writeRows(f, ResponsesSheet, 2, [][]any{header}); err != nil {
		return err
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(sheet.Columns), 2)
	if err != nil {
		return err
	}
	if err = f.SetCellStyle(ResponsesSheet, "A1", lastHeader, bold); err != nil {
		return err
	}

	return writeRows(f, ResponsesSheet, 3, sheet.Rows)
}

func writeRows(f *excelize.File, sheet string, firstRow int, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, firstRow+i)
		if err != nil {
			return err
		}
		row := row
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
