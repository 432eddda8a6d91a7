package store

import (
	"sort"

	"github.com/mbolis/encuestas-pae/model"
)

// Tabulate counts, for every field present in any of the responses, how many
// times each value occurs, with percentages and the mean of numeric fields.
// Tallies are ordered by field name.
func Tabulate(responses []model.Response) []model.FieldTally {
	byField := map[string]*model.FieldTally{}
	for _, r := range responses {
		for _, field := range r.Answers.Fields() {
			t, ok := byField[field]
			if !ok {
				t = model.NewFieldTally(field)
				byField[field] = t
			}
			t.Add(r.Answers[field])
		}
	}

	fields := make([]string, 0, len(byField))
	for field := range byField {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	tallies := make([]model.FieldTally, 0, len(fields))
	for _, field := range fields {
		t := byField[field]
		t.Summarize()
		tallies = append(tallies, *t)
	}
	return tallies
}
