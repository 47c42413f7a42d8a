package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Alert 已核实报告的派遣通知
type Alert struct {
	FlowID      string    `json:"flow_id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Bureau      string    `json:"bureau"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	VerifiedAt  time.Time `json:"verified_at"`
}

// Summary is the one-line body used by push and SMS.
func (a Alert) Summary() string {
	return fmt.Sprintf("%s at %s", a.Title, a.Location)
}

// Notifier delivers an alert to responders.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, a Alert) error

func (f NotifierFunc) Notify(ctx context.Context, a Alert) error { return f(ctx, a) }

// ErrNotConfigured 表示未配置客户端
var ErrNotConfigured = errors.New("notification client not configured")

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
