package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type EmergencyKind string

const (
	KindFire      EmergencyKind = "fire"
	KindAmbulance EmergencyKind = "ambulance"
	KindCrime     EmergencyKind = "crime"
	KindDisaster  EmergencyKind = "disaster"
)

// EmergencyOption is one entry of the "What is your emergency?" screen.
// It travels unchanged from selection to the verified screen.
type EmergencyOption struct {
	Kind  EmergencyKind `json:"key"`
	Label string        `json:"label"`
	Title string        `json:"title"`
}

var catalogue = []EmergencyOption{
	{Kind: KindFire, Label: "Fire", Title: "Fire Incident"},
	{Kind: KindAmbulance, Label: "Ambulance", Title: "Medical Emergency"},
	{Kind: KindCrime, Label: "Crime", Title: "Crime Incident"},
	{Kind: KindDisaster, Label: "Disaster", Title: "Disaster Response"},
}

// EmergencyOptions returns the selectable kinds in display order.
func EmergencyOptions() []EmergencyOption {
	out := make([]EmergencyOption, len(catalogue))
	copy(out, catalogue)
	return out
}

// LookupKind resolves a kind key (case-insensitive).
func LookupKind(key string) (EmergencyOption, error) {
	k := EmergencyKind(strings.ToLower(strings.TrimSpace(key)))
	for _, opt := range catalogue {
		if opt.Kind == k {
			return opt, nil
		}
	}
	return EmergencyOption{}, fmt.Errorf("unknown emergency kind %q", key)
}

// Valid reports whether o matches a catalogue entry exactly.
func (o EmergencyOption) Valid() bool {
	for _, opt := range catalogue {
		if opt == o {
			return true
		}
	}
	return false
}

// NavTitle is the header shown while entering the location.
func (o EmergencyOption) NavTitle() string { return "Reporting " + o.Title }

// BureauName is the responding office shown once verified.
func (o EmergencyOption) BureauName() string {
	return "Bureau of " + o.Label + " Marikina City"
}

func (o *EmergencyOption) UnmarshalJSON(data []byte) error {
	type raw EmergencyOption
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*o = EmergencyOption(r)
	if !o.Valid() {
		return fmt.Errorf("unknown emergency option %q", r.Kind)
	}
	return nil
}
