// Package workflow is the emergency report state machine:
// SelectingEmergency -> EnteringLocation -> ConfirmingSubmission ->
// Reporting -> Verified.
package workflow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"AlsitoQC/internal/models"
	"AlsitoQC/internal/verify"
	"AlsitoQC/pkg/errors"
	"AlsitoQC/pkg/i18n"
)

// Locator runs one automatic location attempt. *location.Acquirer
// implements it.
type Locator interface {
	Acquire(ctx context.Context) models.LocationResult
}

// Observer receives transition and verification events.
type Observer interface {
	ObserveTransition(from, to string)
	ObserveVerification(kind string)
}

type Option func(*Workflow)

// WithSignal sets the verification signal built on each Confirm.
func WithSignal(f verify.Factory) Option { return func(w *Workflow) { w.newSignal = f } }

func WithMessages(m i18n.Messages) Option { return func(w *Workflow) { w.messages = m } }

func WithObserver(o Observer) Option { return func(w *Workflow) { w.observer = o } }

func WithNavigator(n Navigator) Option { return func(w *Workflow) { w.navigator = n } }

func WithLogger(l *zap.Logger) Option { return func(w *Workflow) { w.logger = l } }

// WithMinLocationLength overrides the shortest accepted location.
func WithMinLocationLength(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.minLength = n
		}
	}
}

// Workflow is safe for concurrent use. Location and upload work runs
// without the lock; results are applied only if nothing changed since
// they started.
type Workflow struct {
	mu sync.Mutex

	state    State
	draft    *models.ReportDraft
	warning  string
	locating bool
	signal   verify.Signal
	dispatch *models.DispatchStatus

	// epoch changes on every transition, edits on every manual edit.
	epoch uint64
	edits uint64

	newSignal verify.Factory
	messages  i18n.Messages
	observer  Observer
	navigator Navigator
	logger    *zap.Logger
	minLength int

	pending []Route
	touched time.Time
}

// New returns a workflow in SelectingEmergency.
func New(opts ...Option) *Workflow {
	w := &Workflow{
		state:     SelectingEmergency,
		newSignal: verify.Taps(verify.DefaultTapThreshold),
		logger:    zap.NewNop(),
		minLength: models.MinLocationLength,
		touched:   time.Now(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.messages == nil {
		w.messages = i18n.Default().For("en")
	}
	return w
}

// update runs fn under the lock and delivers queued routes after it is
// released.
func (w *Workflow) update(fn func() error) error {
	w.mu.Lock()
	err := fn()
	routes := w.pending
	w.pending = nil
	w.touched = time.Now()
	w.mu.Unlock()

	if w.navigator != nil {
		for _, r := range routes {
			w.navigator.Navigate(r)
		}
	}
	return err
}

func (w *Workflow) transition(to State) {
	from := w.state
	w.state = to
	w.epoch++
	w.warning = ""
	w.locating = false
	if w.observer != nil {
		w.observer.ObserveTransition(from.String(), to.String())
	}
	w.logger.Debug("report transition", zap.Stringer("from", from), zap.Stringer("to", to))
	w.pending = append(w.pending, w.route())
}

func (w *Workflow) invalid(op string) error {
	return errors.WithCodef(errors.CodeInvalidTransition, "%s not allowed in %s", op, w.state).
		WithContext("state", w.state.String())
}

func (w *Workflow) require(op string, states ...State) error {
	for _, s := range states {
		if w.state == s {
			return nil
		}
	}
	return w.invalid(op)
}

func (w *Workflow) msg(id string, data map[string]interface{}) string {
	return w.messages.Message(id, data)
}

// Select starts a fresh draft carrying only the chosen kind.
func (w *Workflow) Select(kind models.EmergencyKind) error {
	opt, err := models.LookupKind(string(kind))
	if err != nil {
		return errors.WrapCode(err, errors.CodeInvalidTransition, err.Error())
	}
	return w.update(func() error {
		if err := w.require("Select", SelectingEmergency); err != nil {
			return err
		}
		d := models.NewDraft(opt)
		w.draft = &d
		w.transition(EnteringLocation)
		return nil
	})
}

// EditLocation clears any warning, then stores text. A pending automatic
// result will no longer be applied.
func (w *Workflow) EditLocation(text string) error {
	return w.update(func() error {
		if err := w.require("EditLocation", EnteringLocation); err != nil {
			return err
		}
		w.warning = ""
		w.edits++
		w.draft.Location = text
		return nil
	})
}

func (w *Workflow) EditDescription(text string) error {
	return w.update(func() error {
		if err := w.require("EditDescription", EnteringLocation); err != nil {
			return err
		}
		w.draft.Description = text
		return nil
	})
}

// Locate runs one automatic location attempt through l. Only one attempt
// may be in flight. The result is dropped if the user edited the
// location or the workflow moved on before it arrived.
func (w *Workflow) Locate(ctx context.Context, l Locator) (models.LocationResult, error) {
	var epoch, edits uint64
	err := w.update(func() error {
		if err := w.require("Locate", EnteringLocation); err != nil {
			return err
		}
		if w.locating {
			return errors.WithCode(errors.CodeLocateInFlight, "location request already in progress")
		}
		w.locating = true
		w.warning = w.msg(i18n.LocationFetching, nil)
		epoch, edits = w.epoch, w.edits
		return nil
	})
	if err != nil {
		return models.LocationResult{}, err
	}

	res := l.Acquire(ctx)

	_ = w.update(func() error {
		if w.epoch != epoch {
			w.logger.Debug("dropping stale location result", zap.Stringer("status", res.Status))
			return nil
		}
		w.locating = false
		if w.edits != edits {
			w.logger.Debug("location edited manually, ignoring automatic result", zap.Stringer("status", res.Status))
			return nil
		}
		if res.OK() {
			w.draft.Location = res.Coords.Format()
			w.warning = ""
			return nil
		}
		w.warning = w.msg(locationMessage(res.Status), nil)
		return nil
	})
	return res, nil
}

func locationMessage(s models.LocationStatus) string {
	switch s {
	case models.LocationServicesDisabled:
		return i18n.LocationServicesDisabled
	case models.LocationPermissionDenied:
		return i18n.LocationPermissionDenied
	case models.LocationTimeout:
		return i18n.LocationTimeout
	default:
		return i18n.LocationUnavailable
	}
}

// Submit validates the location and opens the confirmation prompt.
func (w *Workflow) Submit() error {
	return w.update(func() error {
		if err := w.require("Submit", EnteringLocation); err != nil {
			return err
		}
		if err := w.validate(); err != nil {
			w.warning = err.Error()
			return err
		}
		w.transition(ConfirmingSubmission)
		return nil
	})
}

func (w *Workflow) validate() *errors.Error {
	n := w.draft.TrimmedLocationLen()
	switch {
	case n == 0:
		return errors.WithCode(errors.CodeEmptyLocation, w.msg(i18n.LocationRequired, nil))
	case n < w.minLength:
		return errors.WithCode(errors.CodeTooShort, w.msg(i18n.LocationTooShort, map[string]interface{}{"Min": w.minLength}))
	}
	return nil
}

// Cancel closes the prompt and keeps the entered text.
func (w *Workflow) Cancel() error {
	return w.update(func() error {
		if err := w.require("Cancel", ConfirmingSubmission); err != nil {
			return err
		}
		w.transition(EnteringLocation)
		return nil
	})
}

// Confirm sends the report and starts a fresh verification signal.
func (w *Workflow) Confirm() error {
	return w.update(func() error {
		if err := w.require("Confirm", ConfirmingSubmission); err != nil {
			return err
		}
		w.signal = w.newSignal()
		w.transition(Reporting)
		w.logger.Info("report submitted",
			zap.String("kind", string(w.draft.Emergency.Kind)),
			zap.Bool("image", w.draft.ImageAttached))
		return nil
	})
}

// Tap feeds one local tap to the verification signal and reports whether
// the report became verified.
func (w *Workflow) Tap() (bool, error) {
	return w.observe("Tap", verify.Event{Kind: verify.EventTap})
}

// Vote feeds one crowd confirmation from source.
func (w *Workflow) Vote(source string, confirmed bool) (bool, error) {
	return w.observe("Vote", verify.Event{Kind: verify.EventVote, Source: source, Confirmed: confirmed})
}

func (w *Workflow) observe(op string, ev verify.Event) (bool, error) {
	var verified bool
	err := w.update(func() error {
		if err := w.require(op, Reporting); err != nil {
			return err
		}
		if w.observer != nil {
			w.observer.ObserveVerification(ev.Kind.String())
		}
		if !w.signal.Observe(ev) {
			return nil
		}
		verified = true
		w.dispatch = w.buildDispatch()
		w.transition(Verified)
		return nil
	})
	return verified, err
}

func (w *Workflow) buildDispatch() *models.DispatchStatus {
	opt := w.draft.Emergency
	return &models.DispatchStatus{
		Headline: w.msg(i18n.DispatchHeadline, map[string]interface{}{"Label": opt.Label}),
		Bureau:   opt.BureauName(),
		ETA:      w.msg(i18n.DispatchETA, nil),
		Contact:  models.BureauContact,
	}
}

// Back leaves the current screen. Leaving Reporting drops the
// verification count; leaving the location or confirmation screens
// discards the draft.
func (w *Workflow) Back() error {
	return w.update(func() error {
		switch w.state {
		case Reporting:
			w.signal = nil
			w.transition(EnteringLocation)
		case EnteringLocation, ConfirmingSubmission:
			w.draft = nil
			w.transition(SelectingEmergency)
		default:
			return w.invalid("Back")
		}
		return nil
	})
}

// AddIncidentDetails records extra details on the verified report.
func (w *Workflow) AddIncidentDetails(text string) (string, error) {
	var ack string
	err := w.update(func() error {
		if err := w.require("AddIncidentDetails", Verified); err != nil {
			return err
		}
		w.dispatch.Details = text
		ack = w.msg(i18n.DetailsAcknowledged, nil)
		w.dispatch.Acknowledgment = ack
		return nil
	})
	return ack, err
}

// MarkResponderArrived acknowledges the responder arrival.
func (w *Workflow) MarkResponderArrived() (string, error) {
	var ack string
	err := w.update(func() error {
		if err := w.require("MarkResponderArrived", Verified); err != nil {
			return err
		}
		w.dispatch.Arrived = true
		ack = w.msg(i18n.ArrivalAcknowledged, nil)
		w.dispatch.Acknowledgment = ack
		return nil
	})
	return ack, err
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot returns a copy of everything a screen needs.
func (w *Workflow) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := View{State: w.state, Warning: w.warning, Locating: w.locating, Route: w.route()}
	if w.draft != nil {
		d := *w.draft
		v.Draft = &d
		v.NavTitle = d.Emergency.NavTitle()
		if w.state >= Reporting {
			v.Headline = w.msg(i18n.ReportingHeadline, map[string]interface{}{"Label": d.Emergency.Label})
			v.Address = d.Location
			if v.Address == "" {
				v.Address = w.msg(i18n.ReportingAddressFallback, nil)
			}
		}
	}
	if w.signal != nil {
		// taps and crowd votes each count against their own threshold
		if p, ok := verify.ProgressOf(w.signal, verify.EventTap); ok {
			v.Taps, v.Threshold = p.Count, p.Threshold
		}
		if p, ok := verify.ProgressOf(w.signal, verify.EventVote); ok {
			v.Votes, v.VoteThreshold = p.Count, p.Threshold
		}
	}
	if w.dispatch != nil {
		ds := *w.dispatch
		v.Dispatch = &ds
	}
	return v
}

// LastActive is when the workflow last handled an operation.
func (w *Workflow) LastActive() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touched
}

// Route returns the navigation value for the current screen.
func (w *Workflow) Route() Route {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.route()
}

func (w *Workflow) route() Route {
	r := Route{Screen: w.state}
	if w.draft != nil {
		d := *w.draft
		r.Draft = &d
	}
	return r
}

// Restore rebuilds a workflow from a route. Screens after
// EnteringLocation require a draft whose location passes validation.
func Restore(r Route, opts ...Option) (*Workflow, error) {
	w := New(opts...)
	if r.Screen == SelectingEmergency {
		return w, nil
	}
	if r.Draft == nil || !r.Draft.Emergency.Valid() {
		return nil, errors.WithCodef(errors.CodeInvalidTransition, "route to %s has no valid draft", r.Screen)
	}
	d := *r.Draft
	w.draft = &d
	if r.Screen > EnteringLocation {
		if err := w.validate(); err != nil {
			return nil, err
		}
	}
	switch r.Screen {
	case EnteringLocation, ConfirmingSubmission:
	case Reporting:
		w.signal = w.newSignal()
	case Verified:
		w.dispatch = w.buildDispatch()
	default:
		return nil, errors.WithCodef(errors.CodeInvalidTransition, "unknown screen %s", r.Screen)
	}
	w.state = r.Screen
	return w, nil
}
