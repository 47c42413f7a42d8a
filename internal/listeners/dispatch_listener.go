package listeners

import (
	"context"
	"time"

	"go.uber.org/zap"

	"AlsitoQC/internal/workflow"
	"AlsitoQC/pkg/notification"
)

// DispatchListener alerts responders when a flow reaches Verified.
// Delivery runs in the background so navigation is never held up by a
// slow gateway.
type DispatchListener struct {
	notifier notification.Notifier
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewDispatchListener(n notification.Notifier, timeout time.Duration, logger *zap.Logger) *DispatchListener {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchListener{notifier: n, timeout: timeout, logger: logger, now: time.Now}
}

// For returns the navigator for one flow.
func (l *DispatchListener) For(flowID string) workflow.Navigator {
	return workflow.NavigatorFunc(func(r workflow.Route) {
		if l == nil || l.notifier == nil || r.Screen != workflow.Verified || r.Draft == nil {
			return
		}
		d := *r.Draft
		alert := notification.Alert{
			FlowID:      flowID,
			Kind:        string(d.Emergency.Kind),
			Title:       d.Emergency.Title,
			Bureau:      d.Emergency.BureauName(),
			Location:    d.Location,
			Description: d.Description,
			ImageURL:    d.ImageURL,
			VerifiedAt:  l.now(),
		}
		go l.deliver(alert)
	})
}

func (l *DispatchListener) deliver(a notification.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.notifier.Notify(ctx, a); err != nil {
		l.logger.Warn("dispatch alert failed", zap.String("flow", a.FlowID), zap.Error(err))
		return
	}
	l.logger.Info("dispatch alert sent", zap.String("flow", a.FlowID), zap.String("kind", a.Kind))
}
