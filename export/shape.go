package export

import (
	"errors"
	"sort"
	"time"

	"github.com/mbolis/encuestas-pae/model"
)

var ErrNoData = errors.New("no hay datos para exportar")

const (
	DateLayout     = "02/01/2006"
	TimeLayout     = "15:04:05"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

var weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

func Weekday(t time.Time) string {
	return weekdays[t.Weekday()]
}

// Column of a shaped sheet. Leading columns have no Field and no Category.
type Column struct {
	Field    string
	Label    string
	Category Category
}

type Sheet struct {
	Columns []Column
	Rows    [][]any
}

var leadingColumns = []Column{
	{Label: "N°"},
	{Label: "ID"},
	{Label: "Tipo de Encuesta"},
	{Label: "Fecha"},
	{Label: "Hora"},
	{Label: "Día"},
}

type Shaper struct {
	catalog *Catalog
	loc     *time.Location
}

// NewShaper renders dates in loc; nil means time.Local.
func NewShaper(catalog *Catalog, loc *time.Location) *Shaper {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Shaper{catalog: catalog, loc: loc}
}

// Shape lays out one row per response: the leading columns, then every
// answer field grouped by category.
func (s *Shaper) Shape(responses []model.Response) Sheet {
	byCategory := map[Category][]string{}
	seen := map[string]bool{}
	for _, r := range responses {
		for field := range r.Answers {
			if seen[field] {
				continue
			}
			seen[field] = true
			cat := s.catalog.Category(field)
			byCategory[cat] = append(byCategory[cat], field)
		}
	}

	columns := append([]Column{}, leadingColumns...)
	for _, cat := range Categories {
		fields := byCategory[cat]
		sort.Strings(fields)
		for _, field := range fields {
			columns = append(columns, Column{
				Field:    field,
				Label:    s.catalog.Label(field),
				Category: cat,
			})
		}
	}

	rows := make([][]any, 0, len(responses))
	for i, r := range responses {
		at := r.SubmittedAt.In(s.loc)
		row := []any{
			i + 1,
			r.ID,
			r.SurveyType.DisplayName(),
			at.Format(DateLayout),
			at.Format(TimeLayout),
			Weekday(at),
		}
		for _, col := range columns[len(leadingColumns):] {
			if v, ok := r.Answers[col.Field]; ok {
				row = append(row, v.Interface())
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}

	return Sheet{Columns: columns, Rows: rows}
}

type Summary struct {
	Total        int
	First        time.Time
	Last         time.Time
	CountsByType map[model.SurveyType]int
	Institutions []string
}

func Summarize(responses []model.Response) Summary {
	sum := Summary{
		Total:        len(responses),
		CountsByType: map[model.SurveyType]int{},
		Institutions: []string{},
	}

	seen := map[string]bool{}
	for _, r := range responses {
		if sum.First.IsZero() || r.SubmittedAt.Before(sum.First) {
			sum.First = r.SubmittedAt
		}
		if r.SubmittedAt.After(sum.Last) {
			sum.Last = r.SubmittedAt
		}
		sum.CountsByType[r.SurveyType]++

		if inst, ok := r.Institution(); ok && !seen[inst] {
			seen[inst] = true
			sum.Institutions = append(sum.Institutions, inst)
		}
	}
	sort.Strings(sum.Institutions)
	return sum
}

// SummaryRows renders a summary as label/value rows.
func (s *Shaper) SummaryRows(sum Summary, withInstitutions bool) [][]any {
	rows := [][]any{
		{"Total de respuestas", sum.Total},
		{"Primera respuesta", s.formatTime(sum.First)},
		{"Última respuesta", s.formatTime(sum.Last)},
		{},
		{"Respuestas por tipo de encuesta"},
	}
	for _, t := range model.SurveyTypes {
		rows = append(rows, []any{t.DisplayName(), sum.CountsByType[t]})
	}
	for t, n := range sum.CountsByType {
		if !t.Valid() {
			rows = append(rows, []any{string(t), n})
		}
	}

	if withInstitutions {
		rows = append(rows, []any{}, []any{"Instituciones", len(sum.Institutions)})
		for _, inst := range sum.Institutions {
			rows = append(rows, []any{inst})
		}
	}
	return rows
}

func (s *Shaper) formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(s.loc).Format(DateTimeLayout)
}
