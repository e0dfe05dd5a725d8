package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/events"
)

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

type Service struct {
	inbox      Inbox
	authorizer internal.Authorizer
	logger     *slog.Logger
}

func NewService(inbox Inbox, authorizer internal.Authorizer, logger *slog.Logger) *Service {
	return &Service{inbox: inbox, authorizer: authorizer, logger: logger}
}

// Register hooks the service onto the transaction events.
func (s *Service) Register(bus Subscriber) {
	bus.Subscribe(events.EventTypeTransactionStatusChanged, s.HandleStatusChanged)
	bus.Subscribe(events.EventTypePaymentSubmitted, s.HandlePaymentSubmitted)
}

// HandleStatusChanged tells the owner what an administrator did to their transaction.
func (s *Service) HandleStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.TransactionStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}

	n := FromStatusChange(e)
	if err := s.inbox.Push(ctx, UserInbox(e.UserID), n); err != nil {
		return fmt.Errorf("push status notification: %w", err)
	}
	s.logger.Info("notification queued",
		"type", n.Type,
		"recipient", UserInbox(e.UserID),
		"transaction_id", e.TransactionID,
		"status", e.ToStatus)
	return nil
}

// HandlePaymentSubmitted puts the submission on the review queue.
func (s *Service) HandlePaymentSubmitted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentSubmittedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}

	n := FromPaymentSubmitted(e)
	if err := s.inbox.Push(ctx, ReviewQueue, n); err != nil {
		return fmt.Errorf("push review notification: %w", err)
	}
	s.logger.Info("notification queued",
		"type", n.Type,
		"recipient", ReviewQueue,
		"transaction_id", e.TransactionID)
	return nil
}

// List returns the caller's own notifications merged with the review queue for reviewers.
func (s *Service) List(ctx context.Context, principal *internal.User, limit int64) ([]Notification, error) {
	if !s.authorizer.CanPerform(ctx, principal, internal.ActionView, internal.ResourceNotification) {
		return nil, internal.ErrUnauthorizedAccess
	}

	items, err := s.inbox.List(ctx, UserInbox(principal.ID), limit)
	if err != nil {
		s.logger.Error("failed to read inbox", "error", err, "user_id", principal.ID)
		return nil, internal.NewInternalError("failed to read notifications", err)
	}

	if s.authorizer.CanPerform(ctx, principal, internal.ActionViewAny, internal.ResourceNotification) {
		queue, err := s.inbox.List(ctx, ReviewQueue, limit)
		if err != nil {
			s.logger.Error("failed to read review queue", "error", err)
			return nil, internal.NewInternalError("failed to read notifications", err)
		}
		items = append(items, queue...)
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
		if limit > 0 && int64(len(items)) > limit {
			items = items[:limit]
		}
	}
	return items, nil
}
