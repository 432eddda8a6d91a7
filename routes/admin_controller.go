package routes

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/encuestas-pae/app"
	"github.com/mbolis/encuestas-pae/export"
	"github.com/mbolis/encuestas-pae/httpx"
	"github.com/mbolis/encuestas-pae/log"
	"github.com/mbolis/encuestas-pae/model"
	"github.com/mbolis/encuestas-pae/store"
)

const queryDateLayout = "2006-01-02"

// parseCriteria reads from, to, type, institution, grade, sex, age and order
// from the query string.
func parseCriteria(r *http.Request) (c model.Criteria, err error) {
	q := r.URL.Query()

	if from := q.Get("from"); from != "" {
		c.DateFrom, err = time.ParseInLocation(queryDateLayout, from, time.Local)
		if err != nil {
			return c, errors.New("invalid date: from")
		}
	}
	if to := q.Get("to"); to != "" {
		c.DateTo, err = time.ParseInLocation(queryDateLayout, to, time.Local)
		if err != nil {
			return c, errors.New("invalid date: to")
		}
	}
	if err = c.Validate(); err != nil {
		return
	}

	if t := q.Get("type"); t != "" {
		c.SurveyType, err = model.ParseSurveyType(t)
		if err != nil {
			return
		}
	}
	if age := q.Get("age"); age != "" {
		var ageRange model.AgeRange
		ageRange, err = model.ParseAgeRange(age)
		if err != nil {
			return
		}
		c.AgeRange = &ageRange
	}

	c.Institution = q.Get("institution")
	c.Grade = q.Get("grade")
	c.Sex = q.Get("sex")
	c.NewestFirst = q.Get("order") == "newest"
	return
}

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		criteria, err := parseCriteria(r)
		if err != nil {
			httpx.LogInvalid(w, "request.criteria", err)
			return
		}

		responses, err := app.Filter(criteria)
		if err != nil {
			httpx.LogInvalid(w, "store.filter", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"total":     len(responses),
			"responses": responses,
		})
	}
}

func TallyResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		criteria, err := parseCriteria(r)
		if err != nil {
			httpx.LogInvalid(w, "request.criteria", err)
			return
		}

		responses, err := app.Filter(criteria)
		if err != nil {
			httpx.LogInvalid(w, "store.filter", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"total":   len(responses),
			"tallies": store.Tabulate(responses),
		})
	}
}

func DeleteResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !app.SoftDelete(r.Context(), id) {
			httpx.LogNotFound(w, "delete_response", id)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ListDeletedResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses := app.Deleted()

		render.JSON(w, r, map[string]any{
			"total":     len(responses),
			"responses": responses,
		})
	}
}

func RestoreResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !app.Restore(r.Context(), id) {
			httpx.LogNotFound(w, "restore_response", id)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetStats(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, app.Stats(r.Context()))
	}
}

func ListInstitutions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"institutions": app.Institutions(),
		})
	}
}

func ExportResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var surveyType model.SurveyType
		if t := r.URL.Query().Get("type"); t != "" {
			var err error
			surveyType, err = model.ParseSurveyType(t)
			if err != nil {
				httpx.LogInvalid(w, "request.type", err)
				return
			}
		}

		responses := []model.Response{}
		for _, resp := range app.Active() {
			if surveyType == "" || resp.SurveyType == surveyType {
				responses = append(responses, resp)
			}
		}

		var buf bytes.Buffer
		err := app.Shaper.WriteResponses(&buf, responses)
		if errors.Is(err, export.ErrNoData) {
			httpx.LogStatusMsg(w, http.StatusNotFound, log.DebugLevel, "export.responses", "%s", err)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "export.responses", err)
			return
		}

		sendWorkbook(w, r, app, export.Filename(surveyType, app.Now()), buf.Bytes())
	}
}

func ExportSummary(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := app.Now()

		var buf bytes.Buffer
		err := app.Shaper.WriteExecutiveSummary(&buf, app.Active(), now)
		if errors.Is(err, export.ErrNoData) {
			httpx.LogStatusMsg(w, http.StatusNotFound, log.DebugLevel, "export.summary", "%s", err)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "export.summary", err)
			return
		}

		sendWorkbook(w, r, app, export.SummaryFilename(now), buf.Bytes())
	}
}

func sendWorkbook(w http.ResponseWriter, r *http.Request, app app.App, filename string, data []byte) {
	if app.Archiver != nil {
		err := app.Archiver.Archive(r.Context(), filename, data)
		if err != nil {
			log.Warnf("export.archive: %s", err)
		}
	}

	err := httpx.WriteAttachment(w, filename, export.ContentType, data)
	if err != nil {
		log.Debugf("export.write: %s", err)
	}
}
