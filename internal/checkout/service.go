package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/internal/cart"
	"github.com/angelmondragon/moviestore/internal/orders"
	"github.com/angelmondragon/moviestore/pkg/db"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/enums"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/outbox"
	"github.com/angelmondragon/moviestore/pkg/outbox/payloads"
)

// ErrEmptyCart is returned when there is nothing purchasable in the cart.
var ErrEmptyCart = pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartResolver interface {
	Resolve(ctx context.Context, store cart.Store) (cart.Summary, error)
	Clear(store cart.Store)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service turns a session cart into an order.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, store cart.Store) (*models.Order, error)
}

type ServiceParams struct {
	DB         txRunner
	Cart       cartResolver
	OrdersRepo orders.Repository
	Outbox     outboxPublisher
}

type service struct {
	tx         txRunner
	cart       cartResolver
	ordersRepo orders.Repository
	outbox     outboxPublisher
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         params.DB,
		cart:       params.Cart,
		ordersRepo: params.OrdersRepo,
		outbox:     params.Outbox,
	}, nil
}

// Execute writes one order plus one item per resolved cart line in a single
// transaction, snapshotting current prices. The cart is cleared only after
// the transaction commits.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, store cart.Store) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	summary, err := s.cart.Resolve(ctx, store)
	if err != nil {
		return nil, err
	}
	if summary.Empty() {
		return nil, ErrEmptyCart
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		order = &models.Order{ID: uuid.New(), UserID: userID}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(summary.Lines))
		lines := make([]payloads.OrderLine, 0, len(summary.Lines))
		for _, line := range summary.Lines {
			items = append(items, models.OrderItem{
				ID:       uuid.New(),
				OrderID:  order.ID,
				MovieID:  line.Movie.ID,
				Quantity: line.Quantity,
				Price:    line.Movie.Price,
			})
			lines = append(lines, payloads.OrderLine{
				MovieID:  line.Movie.ID,
				Quantity: line.Quantity,
				Price:    line.Movie.Price,
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a movie in your cart is no longer available")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}
		order.Items = items

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.OrderPlacedEvent{
				OrderID: order.ID,
				UserID:  userID,
				Total:   summary.Total,
				Items:   lines,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order_placed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cart.Clear(store)
	return order, nil
}
