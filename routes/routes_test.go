package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mbolis/encuestas-pae/app"
	"github.com/mbolis/encuestas-pae/export"
	"github.com/mbolis/encuestas-pae/local"
	"github.com/mbolis/encuestas-pae/model"
	"github.com/mbolis/encuestas-pae/store"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

type fakeArchiver struct {
	names []string
}

func (a *fakeArchiver) Archive(ctx context.Context, name string, data []byte) error {
	a.names = append(a.names, name)
	return nil
}

func setup(t *testing.T) (http.Handler, *fakeArchiver) {
	t.Helper()

	storage, err := local.Open(t.TempDir())
	require.NoError(t, err)

	clock := func() time.Time { return now }
	s := store.New(storage, storage, store.WithClock(clock))
	s.Load(context.Background())

	archiver := &fakeArchiver{}
	return Wire(app.App{
		Store:    s,
		Shaper:   export.NewShaper(export.DefaultCatalog(), time.Local),
		Archiver: archiver,
		Now:      clock,
	}), archiver
}

func do(t *testing.T, h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("content-type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func submit(t *testing.T, h http.Handler, surveyType, answers string) model.Response {
	t.Helper()

	w := do(t, h, "POST", "/api/surveys/"+surveyType+"/responses", `{"answers":`+answers+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var r model.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestListSurveyTypes(t *testing.T) {
	h, _ := setup(t)

	w := do(t, h, "GET", "/api/surveys", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Surveys []surveyTypeInfo `json:"surveys"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Surveys, 4)
	assert.Equal(t, model.ComedoresComunitarios, body.Surveys[3].Type)
}

func TestSubmitResponse(t *testing.T) {
	h, _ := setup(t)

	r := submit(t, h, "racion-servida", `{"institucion":"IE Central","grado":"5"}`)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, model.RacionServida, r.SurveyType)
	assert.True(t, now.Equal(r.SubmittedAt))
	assert.Equal(t, model.Text("IE Central"), r.Answers["institucion"])

	w := do(t, h, "POST", "/api/surveys/encuesta-x/responses", `{"answers":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/api/surveys/coordinadores/responses", `{"answers":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListResponsesRequiresDateRange(t *testing.T) {
	h, _ := setup(t)

	w := do(t, h, "GET", "/api/admin/responses?to=2024-03-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), model.ErrMissingDateRange.Error())

	w = do(t, h, "GET", "/api/admin/responses?from=2024-03-01&to=2024-03-01&age=1-2", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "GET", "/api/admin/responses?from=01/03/2024&to=2024-03-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFilterAndTally(t *testing.T) {
	h, _ := setup(t)

	submit(t, h, "racion-servida", `{"institucion":"Escuela A","satisfaccion":"alta"}`)
	submit(t, h, "racion-servida", `{"institucion":"Escuela A","satisfaccion":"baja"}`)
	submit(t, h, "racion-servida", `{"institucion":"Escuela B","satisfaccion":"alta"}`)
	submit(t, h, "coordinadores", `{"satisfaccion":"alta"}`)

	w := do(t, h, "GET", "/api/admin/responses?from=2024-03-01&to=2024-03-01&institution=Escuela+A", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total     int              `json:"total"`
		Responses []model.Response `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)

	w = do(t, h, "GET", "/api/admin/responses?from=2024-02-01&to=2024-02-28", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Total)

	w = do(t, h, "GET", "/api/admin/responses/tally?from=2024-03-01&to=2024-03-01&type=racion-servida", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tally struct {
		Total   int                `json:"total"`
		Tallies []model.FieldTally `json:"tallies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tally))
	assert.Equal(t, 3, tally.Total)
	require.Len(t, tally.Tallies, 2)
	assert.Equal(t, "satisfaccion", tally.Tallies[1].Field)
	assert.Equal(t, map[string]int{"alta": 2, "baja": 1}, tally.Tallies[1].Counts())
	assert.Equal(t, 66.7, tally.Tallies[1].Entries[0].Percent)

	w = do(t, h, "GET", "/api/admin/institutions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"institutions":["Escuela A","Escuela B"]}`, w.Body.String())
}

func TestDeleteAndRestore(t *testing.T) {
	h, _ := setup(t)

	r := submit(t, h, "racion-industrializada", `{"grado":"3"}`)

	w := do(t, h, "DELETE", "/api/admin/responses/"+r.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "DELETE", "/api/admin/responses/"+r.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/api/admin/trash", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trash struct {
		Responses []model.Response `json:"responses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trash))
	require.Len(t, trash.Responses, 1)
	assert.NotNil(t, trash.Responses[0].DeletedAt)

	w = do(t, h, "GET", "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 1, stats.Deleted)

	w = do(t, h, "POST", "/api/admin/trash/"+r.ID+"/restore", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "POST", "/api/admin/trash/"+r.ID+"/restore", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/api/admin/stats", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.CountsByType[model.RacionIndustrializada])
}

func TestExport(t *testing.T) {
	h, archiver := setup(t)

	w := do(t, h, "GET", "/api/admin/export", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	submit(t, h, "racion-servida", `{"institucion":"Escuela A"}`)
	submit(t, h, "comedores-comunitarios", `{"institucion":"Comedor Norte"}`)

	w = do(t, h, "GET", "/api/admin/export?type=racion-servida", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("content-type"))
	assert.Contains(t, w.Header().Get("content-disposition"), "encuesta-racion-servida-2024-03-01.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows(export.ResponsesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	f.Close()

	w = do(t, h, "GET", "/api/admin/export?type=coordinadores", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "GET", "/api/admin/export?type=otra", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "GET", "/api/admin/export/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("content-disposition"), "resumen-ejecutivo-2024-03-01.xlsx")

	assert.Equal(t, []string{
		"encuesta-racion-servida-2024-03-01.xlsx",
		"resumen-ejecutivo-2024-03-01.xlsx",
	}, archiver.names)
}
