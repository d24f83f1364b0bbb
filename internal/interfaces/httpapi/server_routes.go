package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/tournaments/finished", handler.ListFinishedTournaments)
	mux.HandleFunc("GET /v1/tournaments/finished/{leagueID}", handler.GetFinishedTournament)
	mux.HandleFunc("GET /v1/cache/stats", handler.GetCacheStats)
	mux.HandleFunc("GET /v1/cache/due", handler.ListDueTournaments)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/revalidate", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRevalidateJob)))
	mux.Handle("POST /v1/internal/jobs/fix", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunFixJob)))
}
