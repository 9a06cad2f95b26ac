package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/draft"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/lifecycle"
	"github.com/comanda-app/api/internal/viewsync"
)

func (s *OrderService) getOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	order, err := s.store().GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// Advance moves an order to the next status in its sequence.
func (s *OrderService) Advance(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := lifecycle.Next(order.Status, order.OrderType)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, next)
}

// Cancel moves a live order to canceled.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	return s.SetStatus(ctx, id, enum.OrderStatusCanceled)
}

// SetStatus applies a column move from the kanban board or the orders table.
// Only the next status in sequence or canceled is accepted.
func (s *OrderService) SetStatus(ctx context.Context, id uuid.UUID, to string) (*OrderView, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.CanTransition(order.Status, to, order.OrderType); err != nil {
		return nil, err
	}
	return s.transition(ctx, order, to)
}

// transition writes the new status with compare-and-set on the status that
// was read. The cached kanban board is patched before the write; a failed
// write invalidates it instead.
func (s *OrderService) transition(ctx context.Context, order database.Order, to string) (*OrderView, error) {
	from := order.Status
	var updated database.Order

	err := viewsync.Optimistic(ctx, s.views, viewsync.TopicKanban, kanbanKey,
		func(b KanbanBoard) KanbanBoard { return b.Move(order.ID, to) },
		func(ctx context.Context) error {
			return s.inTx(ctx, func(store Store) error {
				o, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
					ID:       order.ID,
					Status:   to,
					Status_2: from,
				})
				if err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						return ErrStatusChanged
					}
					return fmt.Errorf("update order status: %w", err)
				}
				updated = o

				// A canceled dispatch frees its driver.
				if to == enum.OrderStatusCanceled && o.DeliveryDriverID.Valid &&
					o.DeliveryStatus.String == enum.DeliveryStatusInProgress {
					if err := releaseDriver(ctx, store, uuid.UUID(o.DeliveryDriverID.Bytes)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	)
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransition(from, to)
	s.views.Publish(ctx, viewsync.Change{OrderID: updated.ID, Number: updated.Number, Reason: viewsync.ReasonStatusChanged})
	s.logger.Info("order status changed",
		zap.String("order_id", updated.ID.String()),
		zap.String("number", updated.Number),
		zap.String("from", from),
		zap.String("to", to),
	)

	v := toOrderView(updated)
	return &v, nil
}

// UpdateOrderRequest patches editable order fields. Nil fields are kept.
type UpdateOrderRequest struct {
	CustomerName    *string
	CustomerPhone   *string
	Notes           *string
	TableNumber     *string
	DeliveryAddress *string
	PaymentMethodID *string
	PaymentStatus   *string
}

// UpdateOrder applies a partial patch to a live order. Table and address
// fields are only accepted for the order type that carries them.
func (s *OrderService) UpdateOrder(ctx context.Context, id uuid.UUID, req UpdateOrderRequest) (*OrderView, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if lifecycle.IsTerminal(order.Status) {
		return nil, ErrOrderFinished
	}

	params, err := s.updateParams(ctx, order, req)
	if err != nil {
		return nil, err
	}

	updated, err := s.store().UpdateOrder(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order: %w", err)
	}

	s.views.Publish(ctx, viewsync.Change{OrderID: updated.ID, Number: updated.Number, Reason: viewsync.ReasonUpdated})
	v := toOrderView(updated)
	return &v, nil
}

func (s *OrderService) updateParams(ctx context.Context, order database.Order, req UpdateOrderRequest) (database.UpdateOrderParams, error) {
	verr := map[string]string{}
	params := database.UpdateOrderParams{ID: order.ID}

	if req.CustomerName != nil {
		name := strings.TrimSpace(*req.CustomerName)
		if len([]rune(name)) < draft.MinNameLength(draft.SurfaceAdmin) {
			verr["name"] = fmt.Sprintf("must have at least %d characters", draft.MinNameLength(draft.SurfaceAdmin))
		}
		params.CustomerName = pgtype.Text{String: name, Valid: true}
	}
	if req.CustomerPhone != nil {
		if len(draft.DigitsOnly(*req.CustomerPhone)) < draft.MinPhoneDigits {
			verr["phone"] = fmt.Sprintf("must have at least %d digits", draft.MinPhoneDigits)
		}
		params.CustomerPhone = pgtype.Text{String: draft.NormalizePhone(*req.CustomerPhone, s.phonePrefix), Valid: true}
	}
	if req.Notes != nil {
		params.Notes = pgtype.Text{String: strings.TrimSpace(*req.Notes), Valid: true}
	}
	if req.TableNumber != nil {
		table := strings.TrimSpace(*req.TableNumber)
		switch {
		case order.OrderType != enum.OrderTypeInStore:
			verr["table_number"] = "only in-store orders have a table"
		case table == "":
			verr["table_number"] = "is required"
		}
		params.TableNumber = pgtype.Text{String: table, Valid: true}
	}
	if req.DeliveryAddress != nil {
		addr := strings.TrimSpace(*req.DeliveryAddress)
		switch {
		case order.OrderType != enum.OrderTypeDelivery:
			verr["delivery_address"] = "only delivery orders have an address"
		case addr == "":
			verr["delivery_address"] = "is required"
		}
		params.DeliveryAddress = pgtype.Text{String: addr, Valid: true}
	}
	if req.PaymentMethodID != nil {
		pid, err := uuid.Parse(*req.PaymentMethodID)
		if err != nil {
			verr["payment_method_id"] = "is not a valid id"
		} else {
			pm, err := s.store().GetPaymentMethod(ctx, pid)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				verr["payment_method_id"] = "payment method not found"
			case err != nil:
				return params, fmt.Errorf("get payment method: %w", err)
			case !pm.Enabled:
				verr["payment_method_id"] = "payment method is not available"
			default:
				params.PaymentMethodID = pgtype.UUID{Bytes: pm.ID, Valid: true}
			}
		}
	}
	if req.PaymentStatus != nil {
		switch *req.PaymentStatus {
		case enum.PaymentStatusPending, enum.PaymentStatusPaid:
			params.PaymentStatus = pgtype.Text{String: *req.PaymentStatus, Valid: true}
		default:
			verr["payment_status"] = "must be pending or paid"
		}
	}

	if len(verr) > 0 {
		return params, &draft.ValidationError{Fields: verr}
	}
	return params, nil
}
