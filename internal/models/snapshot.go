// internal/models/snapshot.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is a read-only demo fixture. Fields holds every top-level field of
// the fixture as read, so descriptive fields the service does not know about
// pass through to the installation ledger untouched.
type Snapshot struct {
	ID          string
	Name        string
	SampleLeads []LeadFields
	Fields      map[string]json.RawMessage
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("snapshot must be a JSON object")
	}

	var out Snapshot
	out.Fields = fields
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &out.ID); err != nil {
			return fmt.Errorf("snapshot id: %w", err)
		}
	}
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("snapshot name: %w", err)
		}
	}
	if raw, ok := fields["sampleLeads"]; ok {
		if err := json.Unmarshal(raw, &out.SampleLeads); err != nil {
			return fmt.Errorf("snapshot sampleLeads: %w", err)
		}
	}
	*s = out
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	fields, err := s.fieldMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// fieldMap merges the typed fields over the pass-through ones.
func (s Snapshot) fieldMap() (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage, len(s.Fields)+3)
	for k, v := range s.Fields {
		fields[k] = v
	}

	id, err := json.Marshal(s.ID)
	if err != nil {
		return nil, err
	}
	fields["id"] = id

	if _, ok := fields["name"]; ok || s.Name != "" {
		name, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		fields["name"] = name
	}

	if _, ok := fields["sampleLeads"]; !ok && len(s.SampleLeads) > 0 {
		leads, err := json.Marshal(s.SampleLeads)
		if err != nil {
			return nil, err
		}
		fields["sampleLeads"] = leads
	}
	return fields, nil
}

// InstalledSnapshotRecord is one entry of the installation ledger: the
// snapshot as it was installed plus the install time.
type InstalledSnapshotRecord struct {
	Snapshot
	InstalledAt time.Time
}

func (r InstalledSnapshotRecord) MarshalJSON() ([]byte, error) {
	fields, err := r.Snapshot.fieldMap()
	if err != nil {
		return nil, err
	}
	installedAt, err := json.Marshal(r.InstalledAt)
	if err != nil {
		return nil, err
	}
	fields["installedAt"] = installedAt
	return json.Marshal(fields)
}

func (r *InstalledSnapshotRecord) UnmarshalJSON(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	var out InstalledSnapshotRecord
	if raw, ok := snap.Fields["installedAt"]; ok {
		if err := json.Unmarshal(raw, &out.InstalledAt); err != nil {
			return fmt.Errorf("installedAt: %w", err)
		}
		delete(snap.Fields, "installedAt")
	}
	out.Snapshot = snap
	*r = out
	return nil
}

// InstallSummary is returned to the caller of a snapshot installation.
type InstallSummary struct {
	SnapshotID string `json:"snapshotId"`
	Installed  bool   `json:"installed"`
	Message    string `json:"message"`
	LeadsAdded int    `json:"leadsAdded"`
}
