package workflow

import (
	"encoding/json"
	"fmt"

	"AlsitoQC/internal/models"
)

// State is one screen of the report flow.
type State int

const (
	SelectingEmergency State = iota
	EnteringLocation
	ConfirmingSubmission
	Reporting
	Verified
)

var stateNames = map[State]string{
	SelectingEmergency:   "SelectingEmergency",
	EnteringLocation:     "EnteringLocation",
	ConfirmingSubmission: "ConfirmingSubmission",
	Reporting:            "Reporting",
	Verified:             "Verified",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for k, v := range stateNames {
		if v == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(b))
}

// Route is the typed navigation value handed to the presentation layer.
// A workflow can be rebuilt from it with Restore.
type Route struct {
	Screen State               `json:"screen"`
	Draft  *models.ReportDraft `json:"draft,omitempty"`
}

// Encode renders the route as navigation parameters.
func (r Route) Encode() (string, error) {
	b, err := json.Marshal(r)
	return string(b), err
}

// DecodeRoute parses navigation parameters produced by Encode.
func DecodeRoute(s string) (Route, error) {
	var r Route
	err := json.Unmarshal([]byte(s), &r)
	return r, err
}

// Navigator is told about every state change.
type Navigator interface {
	Navigate(r Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(r Route) { f(r) }

// View is a read-only copy of the workflow for rendering. Route is
// taken under the same lock as the rest of the view.
type View struct {
	State         State                  `json:"state"`
	Draft         *models.ReportDraft    `json:"draft,omitempty"`
	NavTitle      string                 `json:"navTitle,omitempty"`
	Headline      string                 `json:"headline,omitempty"`
	Address       string                 `json:"address,omitempty"`
	Warning       string                 `json:"warning,omitempty"`
	Locating      bool                   `json:"locating"`
	Taps          int                    `json:"taps"`
	Threshold     int                    `json:"threshold,omitempty"`
	Votes         int                    `json:"votes"`
	VoteThreshold int                    `json:"voteThreshold,omitempty"`
	Dispatch      *models.DispatchStatus `json:"dispatch,omitempty"`
	Route         Route                  `json:"-"`
}
