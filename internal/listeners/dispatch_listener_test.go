package listeners

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"AlsitoQC/internal/models"
	"AlsitoQC/internal/workflow"
	"AlsitoQC/pkg/notification"
)

func verifiedRoute(t *testing.T) workflow.Route {
	t.Helper()
	opt, err := models.LookupKind("fire")
	require.NoError(t, err)
	d := models.NewDraft(opt)
	d.Location = "Marikina Heights"
	return workflow.Route{Screen: workflow.Verified, Draft: &d}
}

func TestDispatchOnVerified(t *testing.T) {
	got := make(chan notification.Alert, 1)
	n := notification.NotifierFunc(func(_ context.Context, a notification.Alert) error {
		got <- a
		return nil
	})
	l := NewDispatchListener(n, time.Second, nil)

	l.For("f1").Navigate(verifiedRoute(t))

	select {
	case a := <-got:
		assert.Equal(t, "f1", a.FlowID)
		assert.Equal(t, "fire", a.Kind)
		assert.Equal(t, "Bureau of Fire Marikina City", a.Bureau)
		assert.Equal(t, "Marikina Heights", a.Location)
		assert.False(t, a.VerifiedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("alert not delivered")
	}
}

func TestIgnoresOtherScreens(t *testing.T) {
	n := notification.NotifierFunc(func(context.Context, notification.Alert) error {
		t.Error("unexpected alert")
		return nil
	})
	l := NewDispatchListener(n, time.Second, nil)
	r := verifiedRoute(t)
	r.Screen = workflow.Reporting
	l.For("f1").Navigate(r)
	l.For("f1").Navigate(workflow.Route{Screen: workflow.Verified})

	var nilListener *DispatchListener
	nilListener.For("f1").Navigate(verifiedRoute(t))
	time.Sleep(50 * time.Millisecond)
}

func TestFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := notification.NotifierFunc(func(context.Context, notification.Alert) error {
		return errors.New("gateway down")
	})
	l := NewDispatchListener(n, time.Second, zap.New(core))
	l.For("f1").Navigate(verifiedRoute(t))

	require.Eventually(t, func() bool { return logs.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "dispatch alert failed", logs.All()[0].Message)
}
