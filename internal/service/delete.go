package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/viewsync"
)

// SoftDelete hides an order from every list by prefixing its number.
func (s *OrderService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	var number string
	err := s.inTx(ctx, func(store Store) error {
		order, err := store.SoftDeleteOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("soft delete order: %w", err)
		}
		number = order.Number
		if order.DeliveryDriverID.Valid && order.DeliveryStatus.String == enum.DeliveryStatusInProgress &&
			!isFinished(order.Status) {
			return releaseDriver(ctx, store, uuid.UUID(order.DeliveryDriverID.Bytes))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.views.Publish(ctx, viewsync.Change{OrderID: id, Number: number, Reason: viewsync.ReasonDeleted})
	s.logger.Info("order deleted", zap.String("order_id", id.String()), zap.String("number", number))
	return nil
}

// DeleteOrderCascade permanently removes an order: addon lines, then items,
// then the order row, in one transaction. Soft-deleted orders can be purged.
func (s *OrderService) DeleteOrderCascade(ctx context.Context, id uuid.UUID) error {
	var number string
	err := s.inTx(ctx, func(store Store) error {
		if err := store.DeleteOrderItemAddonsByOrder(ctx, id); err != nil {
			return fmt.Errorf("delete order item addons: %w", err)
		}
		if err := store.DeleteOrderItemsByOrder(ctx, id); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		order, err := store.DeleteOrder(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("delete order: %w", err)
		}
		number = order.Number
		// Soft delete already released the driver.
		if order.DeliveryDriverID.Valid && order.DeliveryStatus.String == enum.DeliveryStatusInProgress &&
			!isFinished(order.Status) && !strings.HasPrefix(order.Number, enum.DeletedNumberPrefix) {
			return releaseDriver(ctx, store, uuid.UUID(order.DeliveryDriverID.Bytes))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.views.Publish(ctx, viewsync.Change{OrderID: id, Number: number, Reason: viewsync.ReasonPurged})
	s.logger.Info("order purged", zap.String("order_id", id.String()), zap.String("number", number))
	return nil
}

// isFinished is true once the driver was already released by the lifecycle.
func isFinished(status string) bool {
	return status == enum.OrderStatusCanceled || status == enum.OrderStatusDelivered
}

// DeleteAddon removes an addon that no product links to and no order used.
func (s *OrderService) DeleteAddon(ctx context.Context, id uuid.UUID) error {
	err := s.inTx(ctx, func(store Store) error {
		links, err := store.CountAddonLinks(ctx, id)
		if err != nil {
			return fmt.Errorf("count addon links: %w", err)
		}
		if links > 0 {
			return ErrAddonInUse
		}
		n, err := store.DeleteAddon(ctx, id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return ErrAddonInUse
			}
			return fmt.Errorf("delete addon: %w", err)
		}
		if n == 0 {
			return ErrAddonNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.views.Publish(ctx, viewsync.Change{Reason: viewsync.ReasonCatalogChanged})
	return nil
}
