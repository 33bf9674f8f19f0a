package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coveplatform/mosh/internal/cultural"
)

// CountryHandler serves the supported-country catalogue and per-country
// calling briefings.
type CountryHandler struct{}

func NewCountryHandler() *CountryHandler {
	return &CountryHandler{}
}

// SetupCountryRoutes registers country routes on the given router.
func (h *CountryHandler) SetupCountryRoutes(router *mux.Router) {
	router.HandleFunc("/countries", h.ListCountries).Methods("GET")
	router.HandleFunc("/countries/{key}/briefing", h.GetBriefing).Methods("GET")
}

func (h *CountryHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"countries": cultural.CountryOptions(),
	})
}

func (h *CountryHandler) GetBriefing(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	profile, ok := cultural.Lookup(key)
	if !ok {
		writeError(w, http.StatusNotFound, "unsupported country: "+key)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"country":  profile.Country,
		"language": profile.Language,
		"briefing": cultural.Briefing(key),
	})
}
