// internal/models/lead.go
package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// EventNewLead is the realtime event emitted for every created lead.
const EventNewLead = "new_lead"

// LeadFields is the part of a lead supplied by a form submission or a snapshot fixture.
type LeadFields struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Service   string `json:"service,omitempty"`
	Preferred string `json:"preferred,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Lead is a captured customer inquiry. It is never updated once stored.
type Lead struct {
	ID LeadID `json:"id"`
	LeadFields
	CreatedAt time.Time `json:"createdAt"`
}

// LeadID is the lead identifier. New ids are UUID strings; documents written by
// the previous backend carry numeric millisecond ids, which are read as their decimal text.
type LeadID string

func (id *LeadID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = LeadID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = LeadID(s)
	return nil
}

func (id LeadID) String() string {
	return string(id)
}
