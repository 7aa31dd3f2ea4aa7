package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProbeType is the kind of check the blackbox exporter runs against a target.
// The set is open: unknown values are stored as given.
type ProbeType string

const (
	ProbeTypeHTTP ProbeType = "HTTP"
	ProbeTypeICMP ProbeType = "ICMP"
	ProbeTypeTCP  ProbeType = "TCP"
)

// KnownProbeTypes returns the probe types offered by the console forms.
func KnownProbeTypes() []ProbeType {
	return []ProbeType{ProbeTypeHTTP, ProbeTypeICMP, ProbeTypeTCP}
}

// Status is the last probe outcome recorded by the backend.
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusUnknown Status = ""
)

// Normalize folds anything that is not UP or DOWN into StatusUnknown.
func (s Status) Normalize() Status {
	switch Status(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case StatusUp:
		return StatusUp
	case StatusDown:
		return StatusDown
	default:
		return StatusUnknown
	}
}

// Target is a monitored host.
// ID is assigned by the backend and never reused.
type Target struct {
	ID               int64      `json:"id"`
	Hostname         string     `json:"hostname"`
	Address          string     `json:"address"`
	Region           string     `json:"region"`
	Zone             string     `json:"zone"`
	ProbeType        ProbeType  `json:"probe_type"`
	Assignees        string     `json:"assignees"`
	Enabled          bool       `json:"enabled"`
	Port             *int       `json:"port,omitempty"`
	Protocol         string     `json:"protocol,omitempty"`
	Path             string     `json:"path,omitempty"`
	ExpectStatusCode string     `json:"expect_status_code,omitempty"`
	Timeout          int        `json:"timeout"`
	ProbeIDs         []int64    `json:"probe_ids,omitempty"`
	LastStatus       Status     `json:"last_status"`
	LastStatusCode   *int       `json:"last_status_code"`
	LastCheck        *time.Time `json:"last_check"`
	LastUpdated      time.Time  `json:"last_updated"`
}

// TargetFields is the request body for creating or updating a target.
type TargetFields struct {
	Hostname         string    `json:"hostname"`
	Address          string    `json:"address"`
	Region           string    `json:"region"`
	Zone             string    `json:"zone"`
	ProbeType        ProbeType `json:"probe_type"`
	Assignees        string    `json:"assignees"`
	Enabled          bool      `json:"enabled"`
	Port             *int      `json:"port,omitempty"`
	Protocol         string    `json:"protocol,omitempty"`
	Path             string    `json:"path,omitempty"`
	ExpectStatusCode string    `json:"expect_status_code,omitempty"`
	Timeout          int       `json:"timeout,omitempty"`
	ProbeIDs         []int64   `json:"probe_ids,omitempty"`
}

// DefaultTimeout is the probe timeout in seconds when none is given.
const DefaultTimeout = 10

// Normalized returns a copy with whitespace trimmed, the probe type
// upper-cased and a blank address defaulted to the hostname.
func (f TargetFields) Normalized() TargetFields {
	f.Hostname = strings.TrimSpace(f.Hostname)
	f.Address = strings.TrimSpace(f.Address)
	f.Region = strings.TrimSpace(f.Region)
	f.Zone = strings.TrimSpace(f.Zone)
	f.ProbeType = ProbeType(strings.ToUpper(strings.TrimSpace(string(f.ProbeType))))
	f.Assignees = strings.TrimSpace(f.Assignees)
	f.Protocol = strings.TrimSpace(f.Protocol)
	f.Path = strings.TrimSpace(f.Path)
	f.ExpectStatusCode = strings.TrimSpace(f.ExpectStatusCode)
	if f.Address == "" {
		f.Address = f.Hostname
	}
	return f
}

// Apply copies the editable fields onto t.
func (f TargetFields) Apply(t *Target) {
	t.Hostname = f.Hostname
	t.Address = f.Address
	t.Region = f.Region
	t.Zone = f.Zone
	t.ProbeType = f.ProbeType
	t.Assignees = f.Assignees
	t.Enabled = f.Enabled
	t.Port = f.Port
	t.Protocol = f.Protocol
	t.Path = f.Path
	t.ExpectStatusCode = f.ExpectStatusCode
	t.Timeout = f.Timeout
	if t.Timeout <= 0 {
		t.Timeout = DefaultTimeout
	}
	t.ProbeIDs = append([]int64(nil), f.ProbeIDs...)
}

// Fields returns the editable part of t, as used to pre-fill an edit form.
func (t *Target) Fields() TargetFields {
	return TargetFields{
		Hostname:         t.Hostname,
		Address:          t.Address,
		Region:           t.Region,
		Zone:             t.Zone,
		ProbeType:        t.ProbeType,
		Assignees:        t.Assignees,
		Enabled:          t.Enabled,
		Port:             t.Port,
		Protocol:         t.Protocol,
		Path:             t.Path,
		ExpectStatusCode: t.ExpectStatusCode,
		Timeout:          t.Timeout,
		ProbeIDs:         append([]int64(nil), t.ProbeIDs...),
	}
}

// TargetPatch is an update body keyed by JSON field name. Only the keys
// present are changed; a null port or probe_ids clears it.
type TargetPatch map[string]json.RawMessage

// Merge applies p on top of f. Read-only and unknown keys are ignored.
func (p TargetPatch) Merge(f TargetFields) (TargetFields, error) {
	for key, raw := range p {
		var dst any
		switch key {
		case "hostname":
			dst = &f.Hostname
		case "address":
			dst = &f.Address
		case "region":
			dst = &f.Region
		case "zone":
			dst = &f.Zone
		case "probe_type":
			dst = &f.ProbeType
		case "assignees":
			dst = &f.Assignees
		case "enabled":
			dst = &f.Enabled
		case "port":
			dst = &f.Port
		case "protocol":
			dst = &f.Protocol
		case "path":
			dst = &f.Path
		case "expect_status_code":
			dst = &f.ExpectStatusCode
		case "timeout":
			dst = &f.Timeout
		case "probe_ids":
			dst = &f.ProbeIDs
		default:
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return f, fmt.Errorf("%w: %s: %v", ErrInvalidInput, key, err)
		}
	}
	return f, nil
}

// Patch returns f as a patch that sets every editable field, including
// the empty ones.
func (f TargetFields) Patch() TargetPatch {
	values := map[string]any{
		"hostname":           f.Hostname,
		"address":            f.Address,
		"region":             f.Region,
		"zone":               f.Zone,
		"probe_type":         f.ProbeType,
		"assignees":          f.Assignees,
		"enabled":            f.Enabled,
		"port":               f.Port,
		"protocol":           f.Protocol,
		"path":               f.Path,
		"expect_status_code": f.ExpectStatusCode,
		"timeout":            f.Timeout,
		"probe_ids":          f.ProbeIDs,
	}
	p := make(TargetPatch, len(values))
	for key, v := range values {
		// Strings, ints, bools and their pointers and slices always encode.
		data, _ := json.Marshal(v)
		p[key] = data
	}
	return p
}

// StatusReport is sent by the probing subsystem after a check.
type StatusReport struct {
	Status     Status `json:"status"`
	StatusCode *int   `json:"status_code,omitempty"`
}
