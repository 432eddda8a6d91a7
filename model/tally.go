package model

import "math"

type TallyEntry struct {
	Value   Value   `json:"value"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// FieldTally counts the distinct values seen for one field. Entries keep the
// order in which values were first seen, which is the chart label order.
type FieldTally struct {
	Field   string       `json:"field"`
	Entries []TallyEntry `json:"entries"`
	// Mean is set by Summarize when every value is a number, as for ratings.
	Mean *float64 `json:"mean,omitempty"`

	index map[Value]int
}

func NewFieldTally(field string) *FieldTally {
	return &FieldTally{Field: field, index: map[Value]int{}}
}

func (t *FieldTally) Add(v Value) {
	if t.index == nil {
		t.index = map[Value]int{}
		for i, e := range t.Entries {
			t.index[e.Value] = i
		}
	}
	if i, ok := t.index[v]; ok {
		t.Entries[i].Count++
		return
	}
	t.index[v] = len(t.Entries)
	t.Entries = append(t.Entries, TallyEntry{Value: v, Count: 1})
}

func (t FieldTally) Count(v Value) int {
	for _, e := range t.Entries {
		if e.Value == v {
			return e.Count
		}
	}
	return 0
}

// Counts keys the tally by the textual form of each value.
func (t FieldTally) Counts() map[string]int {
	counts := make(map[string]int, len(t.Entries))
	for _, e := range t.Entries {
		counts[e.Value.String()] += e.Count
	}
	return counts
}

func (t FieldTally) Total() (n int) {
	for _, e := range t.Entries {
		n += e.Count
	}
	return
}

// Summarize sets the share of the total of every entry and, for numeric
// fields, the mean. Both are rounded to one decimal.
func (t *FieldTally) Summarize() {
	total := t.Total()
	if total == 0 {
		return
	}

	sum, numeric := 0.0, true
	for i := range t.Entries {
		e := &t.Entries[i]
		e.Percent = round1(float64(e.Count) * 100 / float64(total))
		if e.Value.Kind != NumberValue {
			numeric = false
			continue
		}
		sum += e.Value.Number * float64(e.Count)
	}

	t.Mean = nil
	if numeric {
		mean := round1(sum / float64(total))
		t.Mean = &mean
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
