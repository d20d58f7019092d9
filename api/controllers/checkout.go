package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/moviestore/api/middleware"
	"github.com/angelmondragon/moviestore/api/responses"
	"github.com/angelmondragon/moviestore/internal/checkout"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/logger"
)

type orderRecorder interface {
	OrderPlaced(lines int)
}

// Checkout turns the session cart into an order.
func Checkout(svc checkout.Service, recorder orderRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sess, err := requestSession(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), currentUserID(r), sess)
		if errors.Is(err, checkout.ErrEmptyCart) {
			flashError(r, "Your cart is empty.")
			responses.Redirect(w, r, cartURL)
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if recorder != nil {
			recorder.OrderPlaced(len(order.Items))
		}
		ctx := logg.WithFields(r.Context(), map[string]any{
			"order_id": order.ID.String(),
			"total":    order.Total().StringFixed(2),
		})
		logg.Info(ctx, "checkout.order_placed")

		flashSuccess(r, "Thank you for your order!")
		// The emptied cart must be stored before the redirect, or a resubmit
		// would place the same order again.
		if err := middleware.CommitSession(ctx); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.Redirect(w, r, "/orders/")
	}
}
