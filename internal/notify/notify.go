// Package notify is the outbound customer-notification collaborator.
// Delivery is fire and forget: a failure is logged and never blocks the
// workflow transition that triggered it.
package notify

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Notifier interface {
	ApprovalRequested(ctx context.Context, customerID, appointmentID snowflake.ID, amountCents int64) error
}

type logNotifier struct {
	log *zap.Logger
}

func New(log *zap.Logger) Notifier {
	return &logNotifier{log: log.Named("notify")}
}

func (n *logNotifier) ApprovalRequested(ctx context.Context, customerID, appointmentID snowflake.ID, amountCents int64) error {
	n.log.Info("approval requested notification",
		zap.String("customer_id", customerID.String()),
		zap.String("appointment_id", appointmentID.String()),
		zap.Int64("amount_cents", amountCents),
	)
	return nil
}

var Module = fx.Module("notify",
	fx.Provide(New),
)
