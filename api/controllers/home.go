package controllers

import (
	"net/http"

	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

func Home(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.Render(r.Context(), logg, w, http.StatusOK, "home.html", newPage(r, "Home", nil))
	}
}
