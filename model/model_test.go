package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseSurveyType(t *testing.T) {
	for _, st := range SurveyTypes {
		parsed, err := ParseSurveyType(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
		assert.NotEqual(t, string(st), st.Title())
		assert.NotEqual(t, string(st), st.DisplayName())
	}

	_, err := ParseSurveyType("encuesta-inexistente")
	assert.ErrorIs(t, err, ErrUnknownSurveyType)
}

func TestValueJSON(t *testing.T) {
	var answers Answers
	err := json.Unmarshal([]byte(`{"institucion":"IE Central","grado":5,"comida":{"choice":"c-12"},"vacio":null}`), &answers)
	require.NoError(t, err)

	assert.Equal(t, Text("IE Central"), answers["institucion"])
	assert.Equal(t, Number(5), answers["grado"])
	assert.Equal(t, Choice("c-12"), answers["comida"])
	assert.Equal(t, Text(""), answers["vacio"])
	assert.Equal(t, []string{"comida", "grado", "institucion", "vacio"}, answers.Fields())

	out, err := json.Marshal(Answers{"grado": Number(5), "comida": Choice("c-12")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"grado":5,"comida":{"choice":"c-12"}}`, string(out))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "5", Number(5).String())
	assert.Equal(t, "4.5", Number(4.5).String())
	assert.Equal(t, "alta", Text("alta").String())
	assert.NotEqual(t, Text("5"), Number(5))
}

func TestWithDeletedAtDoesNotAlias(t *testing.T) {
	r := Response{ID: "1", SurveyType: RacionServida, Answers: Answers{"grado": Text("5")}}
	deleted := r.WithDeletedAt(date("2024-03-01 10:00"))

	assert.Nil(t, r.DeletedAt)
	require.NotNil(t, deleted.DeletedAt)

	deleted.Answers["grado"] = Text("6")
	assert.Equal(t, Text("5"), r.Answers["grado"])

	restored := deleted.Restored()
	assert.Nil(t, restored.DeletedAt)
	assert.NotNil(t, deleted.DeletedAt)
}

func TestAgeAt(t *testing.T) {
	birth := date("2015-03-01 00:00")

	assert.Equal(t, 9, AgeAt(birth, date("2024-03-01 00:00")))
	assert.Equal(t, 8, AgeAt(birth, date("2024-02-29 23:00")))
	assert.Equal(t, 9, AgeAt(birth, date("2024-12-31 00:00")))
}

func TestParseAgeRange(t *testing.T) {
	r, err := ParseAgeRange("9-12")
	require.NoError(t, err)
	assert.True(t, r.Contains(9))
	assert.True(t, r.Contains(12))
	assert.False(t, r.Contains(13))

	_, err = ParseAgeRange("1-4")
	assert.ErrorIs(t, err, ErrInvalidAgeRange)
}

func TestCriteriaValidate(t *testing.T) {
	assert.ErrorIs(t, Criteria{}.Validate(), ErrMissingDateRange)
	assert.ErrorIs(t, Criteria{DateFrom: date("2024-01-01 00:00")}.Validate(), ErrMissingDateRange)
	assert.NoError(t, Criteria{DateFrom: date("2024-01-01 00:00"), DateTo: date("2024-01-01 00:00")}.Validate())
}

func TestCriteriaMatch(t *testing.T) {
	now := date("2024-03-01 12:00")
	base := Criteria{DateFrom: date("2024-01-01 00:00"), DateTo: date("2024-01-31 00:00")}

	r := Response{
		SurveyType:  RacionServida,
		SubmittedAt: date("2024-01-31 23:30"),
		Answers: Answers{
			"institucion":      Text("Escuela A"),
			"grado":            Text("5"),
			"sexo":             Text("F"),
			"fecha_nacimiento": Text("2015-03-01"),
		},
	}

	tests := []struct {
		name  string
		c     func(Criteria) Criteria
		match bool
	}{
		{"date range includes end of day", func(c Criteria) Criteria { return c }, true},
		{"before range", func(c Criteria) Criteria { c.DateFrom = date("2024-02-01 00:00"); c.DateTo = date("2024-02-02 00:00"); return c }, false},
		{"institution exact", func(c Criteria) Criteria { c.Institution = "Escuela A"; return c }, true},
		{"institution is case sensitive", func(c Criteria) Criteria { c.Institution = "escuela a"; return c }, false},
		{"grade", func(c Criteria) Criteria { c.Grade = "5"; return c }, true},
		{"sex mismatch", func(c Criteria) Criteria { c.Sex = "M"; return c }, false},
		{"survey type", func(c Criteria) Criteria { c.SurveyType = Coordinadores; return c }, false},
		{"age bucket 9-12", func(c Criteria) Criteria { c.AgeRange = &AgeRange{9, 12}; return c }, true},
		{"age bucket 5-8", func(c Criteria) Criteria { c.AgeRange = &AgeRange{5, 8}; return c }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, tt.c(base).Match(r, now))
		})
	}
}

func TestCriteriaMatchMissingFields(t *testing.T) {
	now := date("2024-03-01 12:00")
	c := Criteria{DateFrom: date("2024-01-01 00:00"), DateTo: date("2024-12-31 00:00")}
	r := Response{SubmittedAt: date("2024-02-01 08:00"), Answers: Answers{}}

	assert.True(t, c.Match(r, now))

	withInstitution := c
	withInstitution.Institution = "Escuela A"
	assert.False(t, withInstitution.Match(r, now))

	withAge := c
	withAge.AgeRange = &AgeRange{9, 12}
	assert.False(t, withAge.Match(r, now))

	r.Answers[FieldBirthDate] = Text("not a date")
	assert.False(t, withAge.Match(r, now))
}

func TestFieldTally(t *testing.T) {
	tally := NewFieldTally("satisfaccion")
	tally.Add(Text("alta"))
	tally.Add(Text("alta"))
	tally.Add(Text("baja"))

	assert.Equal(t, map[string]int{"alta": 2, "baja": 1}, tally.Counts())
	assert.Equal(t, 2, tally.Count(Text("alta")))
	assert.Equal(t, 0, tally.Count(Text("media")))
	assert.Equal(t, 3, tally.Total())
	assert.Equal(t, Text("alta"), tally.Entries[0].Value)

	tally.Summarize()
	assert.Equal(t, 66.7, tally.Entries[0].Percent)
	assert.Equal(t, 33.3, tally.Entries[1].Percent)
	assert.Nil(t, tally.Mean)
}

func TestFieldTallyMeanOfRatings(t *testing.T) {
	tally := NewFieldTally("calificacion")
	for _, n := range []float64{5, 4, 4, 2} {
		tally.Add(Number(n))
	}
	tally.Summarize()

	require.NotNil(t, tally.Mean)
	assert.Equal(t, 3.8, *tally.Mean)
	assert.Equal(t, 50.0, tally.Entries[1].Percent)

	tally.Add(Text("no sabe"))
	tally.Summarize()
	assert.Nil(t, tally.Mean)
	assert.Equal(t, 20.0, tally.Entries[0].Percent)

	empty := NewFieldTally("vacio")
	empty.Summarize()
	assert.Nil(t, empty.Mean)
}

func TestCountStats(t *testing.T) {
	stats := CountStats([]Response{
		{SurveyType: RacionServida},
		{SurveyType: RacionServida},
		{SurveyType: Coordinadores},
	}, 4)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 4, stats.Deleted)
	assert.Equal(t, 2, stats.CountsByType[RacionServida])
	assert.Equal(t, 0, stats.CountsByType[ComedoresComunitarios])
}
