package models

import "strings"

// MinLocationLength is the default shortest accepted location, counted
// in characters after trimming.
const MinLocationLength = 5

// ReportDraft is the payload threaded through the report flow. Emergency
// is fixed when the draft is created.
type ReportDraft struct {
	Emergency     EmergencyOption `json:"emergencyData"`
	Location      string          `json:"location"`
	Description   string          `json:"description,omitempty"`
	ImageAttached bool            `json:"imageAttached"`
	ImageURL      string          `json:"imageUrl,omitempty"`
}

func NewDraft(opt EmergencyOption) ReportDraft {
	return ReportDraft{Emergency: opt}
}

// TrimmedLocationLen counts runes, so "Ñaña" is four characters.
func (d ReportDraft) TrimmedLocationLen() int {
	return len([]rune(strings.TrimSpace(d.Location)))
}

// DispatchStatus is what the verified screen shows. It is simulated: the
// ETA and contact are fixed.
type DispatchStatus struct {
	Headline       string `json:"headline"`
	Bureau         string `json:"bureau"`
	ETA            string `json:"eta"`
	Contact        string `json:"contact"`
	Details        string `json:"details,omitempty"`
	Acknowledgment string `json:"acknowledgment,omitempty"`
	Arrived        bool   `json:"arrived"`
}

// BureauContact is the static hotline printed on the verified screen.
const BureauContact = "(02) 8-161-6000"
