package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/database"
	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/lifecycle"
	"github.com/comanda-app/api/internal/pricing"
	"github.com/comanda-app/api/internal/viewsync"
)

const deliveryListLimit = 200

// Deliveries lists live delivery orders, optionally filtered by delivery status.
func (s *OrderService) Deliveries(ctx context.Context, deliveryStatus string) ([]DeliveryView, error) {
	return viewsync.ReadThrough(ctx, s.views, viewsync.TopicDeliveries, "s="+deliveryStatus, func(ctx context.Context) ([]DeliveryView, error) {
		status := pgtype.Text{}
		if deliveryStatus != "" {
			status = pgtype.Text{String: deliveryStatus, Valid: true}
		}
		rows, err := s.store().ListDeliveryOrders(ctx, database.ListDeliveryOrdersParams{
			DeliveryStatus: status,
			Limit:          deliveryListLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("list delivery orders: %w", err)
		}
		out := make([]DeliveryView, 0, len(rows))
		for _, r := range rows {
			out = append(out, DeliveryView{
				OrderView:  toOrderView(r.Order),
				RegionName: optionalString(r.RegionName),
				DriverName: optionalString(r.DriverName),
			})
		}
		return out, nil
	})
}

// SetRegion assigns a delivery region, snapshotting its fee into the order
// and recomputing the total.
func (s *OrderService) SetRegion(ctx context.Context, orderID, regionID uuid.UUID) (*OrderView, error) {
	var updated database.Order
	err := s.inTx(ctx, func(store Store) error {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		if order.OrderType != enum.OrderTypeDelivery {
			return ErrNotDeliveryOrder
		}
		if lifecycle.IsTerminal(order.Status) {
			return ErrOrderFinished
		}
		if order.DeliveryStatus.Valid && order.DeliveryStatus.String != enum.DeliveryStatusPending {
			return ErrRegionLocked
		}

		region, err := store.GetDeliveryRegion(ctx, regionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRegionNotFound
			}
			return fmt.Errorf("get delivery region: %w", err)
		}

		fee := pricing.Round(numericToDecimal(region.Fee))
		total := pricing.OrderTotal(numericToDecimal(order.Subtotal), fee, numericToDecimal(order.Discount))
		updated, err = store.SetOrderRegion(ctx, database.SetOrderRegionParams{
			ID:          orderID,
			RegionID:    regionID,
			DeliveryFee: decimalToNumeric(fee),
			Total:       decimalToNumeric(total),
		})
		if err != nil {
			return fmt.Errorf("set order region: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.views.Publish(ctx, viewsync.Change{OrderID: updated.ID, Number: updated.Number, Reason: viewsync.ReasonRegionSet})
	v := toOrderView(updated)
	return &v, nil
}

// AssignDriver dispatches a delivery order with an available driver. The
// order and driver rows are locked for the duration of the transaction.
func (s *OrderService) AssignDriver(ctx context.Context, orderID, driverID uuid.UUID) (*OrderView, error) {
	var updated database.Order
	err := s.inTx(ctx, func(store Store) error {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		if order.OrderType != enum.OrderTypeDelivery {
			return ErrNotDeliveryOrder
		}
		if lifecycle.IsTerminal(order.Status) {
			return ErrOrderFinished
		}
		if !order.DeliveryRegionID.Valid {
			return ErrRegionRequired
		}
		if order.DeliveryStatus.String != enum.DeliveryStatusPending {
			return ErrDeliveryStarted
		}

		driver, err := store.GetDriverForUpdate(ctx, driverID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrDriverNotFound
			}
			return fmt.Errorf("get driver: %w", err)
		}
		if driver.Status != enum.DriverStatusAvailable {
			return ErrDriverUnavailable
		}

		if _, err := store.SetDriverStatus(ctx, database.SetDriverStatusParams{
			ID:     driverID,
			Status: enum.DriverStatusBusy,
		}); err != nil {
			return fmt.Errorf("set driver busy: %w", err)
		}
		updated, err = store.StartOrderDelivery(ctx, database.StartOrderDeliveryParams{
			ID:       orderID,
			DriverID: driverID,
		})
		if err != nil {
			return fmt.Errorf("start order delivery: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.views.Publish(ctx, viewsync.Change{OrderID: updated.ID, Number: updated.Number, Reason: viewsync.ReasonDriverAssigned})
	s.logger.Info("driver assigned",
		zap.String("order_id", updated.ID.String()),
		zap.String("driver_id", driverID.String()),
	)
	v := toOrderView(updated)
	return &v, nil
}

// CompleteDelivery confirms a dispatched delivery. The order becomes
// delivered and its driver available again.
func (s *OrderService) CompleteDelivery(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	var (
		from    string
		updated database.Order
	)
	err := s.inTx(ctx, func(store Store) error {
		order, err := lockOrder(ctx, store, orderID)
		if err != nil {
			return err
		}
		if order.OrderType != enum.OrderTypeDelivery {
			return ErrNotDeliveryOrder
		}
		if order.DeliveryStatus.String != enum.DeliveryStatusInProgress || !order.DeliveryDriverID.Valid {
			return ErrDeliveryNotStarted
		}
		if lifecycle.IsTerminal(order.Status) {
			return lifecycle.ErrTerminal
		}
		from = order.Status

		updated, err = store.CompleteOrderDelivery(ctx, orderID)
		if err != nil {
			return fmt.Errorf("complete order delivery: %w", err)
		}
		return releaseDriver(ctx, store, uuid.UUID(order.DeliveryDriverID.Bytes))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransition(from, updated.Status)
	s.views.Publish(ctx, viewsync.Change{OrderID: updated.ID, Number: updated.Number, Reason: viewsync.ReasonDeliveryCompleted})
	s.logger.Info("delivery completed",
		zap.String("order_id", updated.ID.String()),
		zap.String("number", updated.Number),
	)
	v := toOrderView(updated)
	return &v, nil
}

func lockOrder(ctx context.Context, store Store, id uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("lock order: %w", err)
	}
	return order, nil
}

// releaseDriver marks a driver available. A driver that no longer exists is
// ignored.
func releaseDriver(ctx context.Context, store Store, driverID uuid.UUID) error {
	if _, err := store.GetDriverForUpdate(ctx, driverID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("lock driver: %w", err)
	}
	if _, err := store.SetDriverStatus(ctx, database.SetDriverStatusParams{
		ID:     driverID,
		Status: enum.DriverStatusAvailable,
	}); err != nil {
		return fmt.Errorf("release driver: %w", err)
	}
	return nil
}
