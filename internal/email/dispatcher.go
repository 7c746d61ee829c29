package email

import (
	"context"

	"go.uber.org/zap"

	"teamos/backend/internal/telemetry"
)

// LogSender writes the recipient and subject to the log instead of sending. Used when no
// provider is configured. The body is not logged because it can carry a token.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if s.Log != nil {
		s.Log.Info("email not configured, skipping delivery", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	}
	return nil
}

// Dispatcher sends messages off the request path. Send never fails the caller.
type Dispatcher struct {
	sender Sender
	bg     *telemetry.Background
	log    *zap.Logger
}

// NewDispatcher returns a dispatcher delivering through sender on bg.
func NewDispatcher(sender Sender, bg *telemetry.Background, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{sender: sender, bg: bg, log: log}
}

// SendInvitation renders and queues an invitation email. Rendering or delivery failures are logged.
func (d *Dispatcher) SendInvitation(ctx context.Context, to string, data InvitationData) {
	if d == nil || d.sender == nil {
		return
	}
	msg, err := Invitation(to, data)
	if err != nil {
		d.log.Error("render invitation email", zap.Error(err))
		return
	}
	d.bg.Go(ctx, "email.invitation", func(taskCtx context.Context) error {
		return d.sender.Send(taskCtx, msg)
	})
}
