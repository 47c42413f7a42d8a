package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPush struct {
	title, content string
	audience       map[string]interface{}
	extras         map[string]interface{}
}

type fakePush struct{ got []recordedPush }

func (f *fakePush) Push(_ context.Context, title, content string, audience, extras map[string]interface{}) error {
	f.got = append(f.got, recordedPush{title, content, audience, extras})
	return nil
}

type fakeSMS struct {
	phones []string
	fail   string
}

func (f *fakeSMS) Send(_ context.Context, phone, _, _ string, params map[string]string) error {
	f.phones = append(f.phones, phone)
	if phone == f.fail {
		return errors.New("rejected")
	}
	return nil
}

var alert = Alert{
	FlowID:   "f1",
	Kind:     "fire",
	Title:    "Fire Incident",
	Bureau:   "Bureau of Fire Marikina City",
	Location: "Marikina Heights",
}

func TestPushTopics(t *testing.T) {
	cli := &fakePush{}
	require.NoError(t, NewPush(PushConfig{Topics: []string{"bfp"}}, cli).Notify(context.Background(), alert))

	require.Len(t, cli.got, 1)
	assert.Equal(t, "Fire Incident", cli.got[0].title)
	assert.Equal(t, "Fire Incident at Marikina Heights", cli.got[0].content)
	assert.Equal(t, []string{"bfp"}, cli.got[0].audience["tag"])
	assert.Equal(t, "f1", cli.got[0].extras["flow_id"])
}

func TestPushBroadcastWithoutTopics(t *testing.T) {
	cli := &fakePush{}
	require.NoError(t, NewPush(PushConfig{}, cli).Notify(context.Background(), alert))
	assert.Equal(t, true, cli.got[0].audience["all"])
}

func TestNotConfigured(t *testing.T) {
	assert.ErrorIs(t, NewPush(PushConfig{}, nil).Notify(context.Background(), alert), ErrNotConfigured)
	assert.ErrorIs(t, NewSMS(SMSConfig{}, nil).Notify(context.Background(), alert), ErrNotConfigured)
}

func TestSMSContinuesPastFailure(t *testing.T) {
	cli := &fakeSMS{fail: "0917"}
	err := NewSMS(SMSConfig{Recipients: []string{"0917", "0918"}}, cli).Notify(context.Background(), alert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sms 0917")
	assert.Equal(t, []string{"0917", "0918"}, cli.phones)
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	m := Multi{
		NotifierFunc(func(context.Context, Alert) error { calls++; return boom }),
		nil,
		NotifierFunc(func(context.Context, Alert) error { calls++; return nil }),
	}
	assert.ErrorIs(t, m.Notify(context.Background(), alert), boom)
	assert.Equal(t, 2, calls)
}

func TestWebhookClient(t *testing.T) {
	var bodies []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		if body["phone"] == "bad" {
			http.Error(w, "no route", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	wh := &WebhookClient{URL: srv.URL}
	require.NoError(t, NewPush(PushConfig{}, wh).Notify(context.Background(), alert))
	require.NoError(t, wh.Send(context.Background(), "0917", "", "", map[string]string{"kind": "fire"}))
	err := wh.Send(context.Background(), "bad", "", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	require.Len(t, bodies, 3)
	assert.Equal(t, "Fire Incident", bodies[0]["title"])
	assert.Equal(t, "0917", bodies[1]["phone"])
}
