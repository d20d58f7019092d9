package controllers

import (
	"net/http"

	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/internal/orders"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

type ordersView struct {
	Orders []models.Order
}

func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListForUser(r.Context(), currentUserID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Render(r.Context(), logg, w, http.StatusOK, "orders.html", newPage(r, "My orders", ordersView{Orders: list}))
	}
}
