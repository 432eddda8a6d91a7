package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/encuestas-pae/app"
	"github.com/mbolis/encuestas-pae/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middlewares.RequestLogger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/surveys", ListSurveyTypes())
	api.Post("/surveys/{type}/responses", SubmitResponse(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.NoCache)

		r.Get("/responses", ListResponses(app))
		r.Get("/responses/tally", TallyResponses(app))
		r.Delete("/responses/{id}", DeleteResponse(app))

		r.Get("/trash", ListDeletedResponses(app))
		r.Post("/trash/{id}/restore", RestoreResponse(app))

		r.Get("/stats", GetStats(app))
		r.Get("/institutions", ListInstitutions(app))

		r.Get("/export", ExportResponses(app))
		r.Get("/export/summary", ExportSummary(app))
	})

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}
