package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/auth"
	"github.com/frahmantamala/payflow/internal/core/events"
	"github.com/frahmantamala/payflow/internal/notification"
	"github.com/frahmantamala/payflow/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish transaction events through the notification pipeline for debugging`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [status-changed|payment-submitted]",
	Short:     "Publish a test transaction event",
	Long:      `Publish a transaction event on an in-process bus and print the notifications it produces`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"status-changed", "payment-submitted"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var (
	eventTransactionID int64
	eventUserID        int64
	eventCode          string
	eventFrom          string
	eventTo            string
	eventMethod        string
)

func testEvent(kind string) (events.Event, error) {
	switch kind {
	case "status-changed":
		return events.NewTransactionStatusChangedEvent(eventTransactionID, eventCode, eventUserID, eventFrom, eventTo, 0), nil
	case "payment-submitted":
		return events.NewPaymentSubmittedEvent(eventTransactionID, eventCode, eventUserID, eventMethod, ""), nil
	default:
		return nil, fmt.Errorf("unknown event %q", kind)
	}
}

func publishTestEvent(ctx context.Context, kind string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.LoggerWrapper()

	event, err := testEvent(kind)
	if err != nil {
		return err
	}

	bus := events.NewEventBus(log)
	service := notification.NewService(notification.NewMemoryInbox(10), auth.NewPermissionChecker(), log)
	service.Register(bus)

	log.Info("publishing test event", "event_type", event.EventType(), "event_id", event.EventID())
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType(), err)
	}

	// a reviewer sees both the own inbox and the review queue
	reader := &internal.User{ID: eventUserID, Permissions: []string{auth.PermissionApproveTransactions}}
	items, err := service.List(ctx, reader, 0)
	if err != nil {
		return err
	}
	for _, n := range items {
		fmt.Printf("%s\t%s\t%s\n", n.Type, n.Title, n.Body)
	}
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventTransactionID, "transaction", 1, "transaction id")
	publishEventCmd.Flags().Int64Var(&eventUserID, "user", 1, "owner user id")
	publishEventCmd.Flags().StringVar(&eventCode, "code", "TRX-19700101-0000001", "transaction code")
	publishEventCmd.Flags().StringVar(&eventFrom, "from", "pending", "previous status")
	publishEventCmd.Flags().StringVar(&eventTo, "to", "complete", "new status")
	publishEventCmd.Flags().StringVar(&eventMethod, "method", "transfer", "payment method")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
