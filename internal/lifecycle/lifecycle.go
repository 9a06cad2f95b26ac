// Package lifecycle holds the order status rules. It decides transitions;
// persisting them is the service layer's job.
package lifecycle

import (
	"errors"

	"github.com/comanda-app/api/internal/enum"
)

var (
	ErrTerminal                     = errors.New("order is already finished")
	ErrInvalidTransition            = errors.New("invalid status transition")
	ErrDeliveryConfirmationRequired = errors.New("delivery orders are finished by completing the delivery")
	ErrUnknownStatus                = errors.New("unknown order status")
)

// Tracker stages shown to customers.
const (
	StageReceived  = "received"
	StagePreparing = "preparing"
	StageReady     = "ready"
	StageOnTheWay  = "on_the_way"
	StageDone      = "done"
	StageCanceled  = "canceled"
)

// sequence is the forward path shared by every order type.
var sequence = []string{
	enum.OrderStatusPending,
	enum.OrderStatusPreparing,
	enum.OrderStatusReady,
	enum.OrderStatusOutForDelivery,
}

// KanbanStatuses are the statuses shown on the kitchen board.
var KanbanStatuses = []string{
	enum.OrderStatusPending,
	enum.OrderStatusPreparing,
	enum.OrderStatusReady,
}

// IsKnown reports whether s is a valid order status.
func IsKnown(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusPreparing, enum.OrderStatusReady,
		enum.OrderStatusOutForDelivery, enum.OrderStatusDelivered,
		enum.OrderStatusCompleted, enum.OrderStatusCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s string) bool {
	return s == enum.OrderStatusDelivered || s == enum.OrderStatusCompleted || s == enum.OrderStatusCanceled
}

// CanonicalTerminal is the finished status for an order type.
func CanonicalTerminal(orderType string) string {
	if orderType == enum.OrderTypeDelivery {
		return enum.OrderStatusDelivered
	}
	return enum.OrderStatusCompleted
}

// Next returns the status that follows current. Statuses are never skipped.
func Next(current, orderType string) (string, error) {
	if !IsKnown(current) {
		return "", ErrUnknownStatus
	}
	if IsTerminal(current) {
		return "", ErrTerminal
	}
	if current == enum.OrderStatusOutForDelivery {
		if orderType == enum.OrderTypeDelivery {
			return "", ErrDeliveryConfirmationRequired
		}
		return CanonicalTerminal(orderType), nil
	}
	for i, s := range sequence {
		if s == current {
			return sequence[i+1], nil
		}
	}
	return "", ErrInvalidTransition
}

// CanTransition reports whether a direct move from -> to is allowed: either
// the next status in sequence or a cancellation of a live order.
func CanTransition(from, to, orderType string) error {
	if !IsKnown(from) || !IsKnown(to) {
		return ErrUnknownStatus
	}
	if IsTerminal(from) {
		return ErrTerminal
	}
	if to == enum.OrderStatusCanceled {
		return nil
	}
	next, err := Next(from, orderType)
	if err != nil {
		return err
	}
	if to != next {
		return ErrInvalidTransition
	}
	return nil
}

// TrackerStage maps a status to the customer-facing stage.
func TrackerStage(status string) string {
	switch status {
	case enum.OrderStatusPending:
		return StageReceived
	case enum.OrderStatusPreparing:
		return StagePreparing
	case enum.OrderStatusReady:
		return StageReady
	case enum.OrderStatusOutForDelivery:
		return StageOnTheWay
	case enum.OrderStatusDelivered, enum.OrderStatusCompleted:
		return StageDone
	case enum.OrderStatusCanceled:
		return StageCanceled
	}
	return StageReceived
}
