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
	mux.HandleFunc("GET /v1/races/next", handler.NextRace)
	mux.HandleFunc("GET /v1/races/upcoming", handler.UpcomingRaces)
	mux.HandleFunc("GET /v1/races/past", handler.PastRaces)
	mux.HandleFunc("GET /v1/races/{raceID}", handler.GetRace)
	mux.HandleFunc("GET /v1/races/{raceID}/results", handler.GetRaceResults)
	mux.HandleFunc("GET /v1/races/{raceID}/can-predict", handler.CanPredictRace)
	mux.HandleFunc("GET /v1/seasons/{season}/races", handler.SeasonRaces)
	mux.HandleFunc("GET /v1/seasons/{season}/calendar", handler.SeasonCalendar)
	mux.HandleFunc("GET /v1/seasons/{season}/stats", handler.SeasonStats)
	mux.HandleFunc("GET /v1/pilots", handler.ListPilots)
	mux.HandleFunc("GET /v1/leagues", handler.SearchLeagues)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	registerAuthorizedRaceRoutes(mux, handler, verifier)
	registerAuthorizedLeagueRoutes(mux, handler, verifier)
	registerAuthorizedPredictionRoutes(mux, handler, verifier)
	registerAuthorizedDashboardRoutes(mux, handler, verifier)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/bootstrap", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunBootstrapJob)))
	mux.Handle("POST /v1/internal/jobs/race-clock", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRaceClockJob)))
	mux.Handle("POST /v1/internal/jobs/calendar-sync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunCalendarSyncJob)))
}

// Race mutations are admin-only; the handlers enforce the role after auth.
func registerAuthorizedRaceRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/races", RequireAuth(verifier, http.HandlerFunc(handler.CreateRace)))
	mux.Handle("PATCH /v1/races/{raceID}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateRace)))
	mux.Handle("POST /v1/races/{raceID}/transition", RequireAuth(verifier, http.HandlerFunc(handler.TransitionRace)))
	mux.Handle("PUT /v1/races/{raceID}/results", RequireAuth(verifier, http.HandlerFunc(handler.RecordRaceResults)))
}

func registerAuthorizedLeagueRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/leagues", RequireAuth(verifier, http.HandlerFunc(handler.CreateLeague)))
	mux.Handle("GET /v1/leagues/me", RequireAuth(verifier, http.HandlerFunc(handler.ListMyLeagues)))
	mux.Handle("POST /v1/leagues/join", RequireAuth(verifier, http.HandlerFunc(handler.JoinLeagueByInvite)))
	mux.Handle("GET /v1/leagues/slug/{slug}", RequireAuth(verifier, http.HandlerFunc(handler.GetLeagueBySlug)))
	mux.Handle("GET /v1/leagues/{leagueID}", RequireAuth(verifier, http.HandlerFunc(handler.GetLeague)))
	mux.Handle("PATCH /v1/leagues/{leagueID}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateLeague)))
	mux.Handle("POST /v1/leagues/{leagueID}/join", RequireAuth(verifier, http.HandlerFunc(handler.JoinLeague)))
	mux.Handle("POST /v1/leagues/{leagueID}/leave", RequireAuth(verifier, http.HandlerFunc(handler.LeaveLeague)))
	mux.Handle("POST /v1/leagues/{leagueID}/invite-code", RequireAuth(verifier, http.HandlerFunc(handler.RegenerateLeagueInviteCode)))
	mux.Handle("PUT /v1/leagues/{leagueID}/members/{userID}/role", RequireAuth(verifier, http.HandlerFunc(handler.ChangeLeagueMemberRole)))
	mux.Handle("POST /v1/leagues/{leagueID}/members/{userID}/ban", RequireAuth(verifier, http.HandlerFunc(handler.BanLeagueMember)))
	mux.Handle("GET /v1/leagues/{leagueID}/ranking", RequireAuth(verifier, http.HandlerFunc(handler.LeagueRanking)))
	mux.Handle("GET /v1/leagues/{leagueID}/stats", RequireAuth(verifier, http.HandlerFunc(handler.LeagueStats)))
}

func registerAuthorizedPredictionRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("PUT /v1/predictions", RequireAuth(verifier, http.HandlerFunc(handler.SavePrediction)))
	mux.Handle("POST /v1/predictions/{predictionID}/submit", RequireAuth(verifier, http.HandlerFunc(handler.SubmitPrediction)))
	mux.Handle("GET /v1/predictions/race/{raceID}", RequireAuth(verifier, http.HandlerFunc(handler.GetPredictionForRace)))
	mux.Handle("GET /v1/predictions/me", RequireAuth(verifier, http.HandlerFunc(handler.ListMyPredictions)))
}

func registerAuthorizedDashboardRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/dashboard", RequireAuth(verifier, http.HandlerFunc(handler.GetDashboard)))
}
