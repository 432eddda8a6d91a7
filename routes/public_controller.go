package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/encuestas-pae/app"
	"github.com/mbolis/encuestas-pae/httpx"
	"github.com/mbolis/encuestas-pae/log"
	"github.com/mbolis/encuestas-pae/model"
)

type surveyTypeInfo struct {
	Type  model.SurveyType `json:"type"`
	Title string           `json:"title"`
	Name  string           `json:"name"`
}

func ListSurveyTypes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys := make([]surveyTypeInfo, 0, len(model.SurveyTypes))
		for _, t := range model.SurveyTypes {
			surveys = append(surveys, surveyTypeInfo{t, t.Title(), t.DisplayName()})
		}

		render.JSON(w, r, map[string]any{
			"surveys": surveys,
		})
	}
}

type submission struct {
	Answers model.Answers `json:"answers"`
}

func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyType, err := model.ParseSurveyType(chi.URLParam(r, "type"))
		if err != nil {
			httpx.LogInvalid(w, "request.get_url_param.type", err)
			return
		}

		body := submission{}
		err = render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		response, err := app.Submit(r.Context(), surveyType, body.Answers)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusInternalServerError, log.ErrorLevel, "store.submit",
				"La respuesta no pudo guardarse: %s", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response)
	}
}
