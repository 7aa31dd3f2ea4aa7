package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStatusNormalize(t *testing.T) {
	tests := []struct {
		in   Status
		want Status
	}{
		{"UP", StatusUp},
		{"up", StatusUp},
		{" DOWN ", StatusDown},
		{"", StatusUnknown},
		{"UNKNOWN", StatusUnknown},
		{"timeout", StatusUnknown},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Status(%q).Normalize() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTargetFieldsNormalized(t *testing.T) {
	f := TargetFields{
		Hostname:  "  example.com ",
		Region:    " US ",
		Zone:      "z1",
		ProbeType: " http",
	}.Normalized()

	if f.Hostname != "example.com" || f.Region != "US" {
		t.Errorf("fields not trimmed: %+v", f)
	}
	if f.ProbeType != ProbeTypeHTTP {
		t.Errorf("probe type = %q, want HTTP", f.ProbeType)
	}
	if f.Address != "example.com" {
		t.Errorf("address should default to hostname, got %q", f.Address)
	}
}

func TestTargetFieldsApplyDefaultsTimeout(t *testing.T) {
	var tgt Target
	TargetFields{Hostname: "h", ProbeIDs: []int64{1, 2}}.Apply(&tgt)
	if tgt.Timeout != DefaultTimeout {
		t.Errorf("timeout = %d, want %d", tgt.Timeout, DefaultTimeout)
	}
	if len(tgt.ProbeIDs) != 2 {
		t.Errorf("probe ids not copied: %v", tgt.ProbeIDs)
	}
	back := tgt.Fields()
	if back.Hostname != "h" || back.Timeout != DefaultTimeout {
		t.Errorf("Fields() = %+v", back)
	}
}

func TestTargetPatchMergeKeepsAbsentKeys(t *testing.T) {
	port := 443
	base := TargetFields{Hostname: "h", Region: "US", Protocol: "https", Port: &port, ProbeIDs: []int64{1}, Enabled: true}

	var p TargetPatch
	if err := json.Unmarshal([]byte(`{"region":"EU","id":7,"last_status":"UP","color":"red"}`), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, err := p.Merge(base)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Region != "EU" {
		t.Errorf("region = %q, want EU", got.Region)
	}
	if got.Protocol != "https" || got.Port == nil || *got.Port != 443 || !got.Enabled || len(got.ProbeIDs) != 1 {
		t.Errorf("absent keys changed: %+v", got)
	}
}

func TestTargetPatchMergeNullClears(t *testing.T) {
	port := 443
	base := TargetFields{Hostname: "h", Port: &port, ProbeIDs: []int64{1, 2}}

	var p TargetPatch
	_ = json.Unmarshal([]byte(`{"port":null,"probe_ids":null,"enabled":false}`), &p)
	got, err := p.Merge(base)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Port != nil || got.ProbeIDs != nil {
		t.Errorf("null should clear: port=%v probe_ids=%v", got.Port, got.ProbeIDs)
	}
}

func TestTargetPatchMergeRejectsWrongType(t *testing.T) {
	var p TargetPatch
	_ = json.Unmarshal([]byte(`{"port":"eighty"}`), &p)
	if _, err := p.Merge(TargetFields{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestTargetFieldsPatchRoundTrip(t *testing.T) {
	port := 8080
	f := TargetFields{Hostname: "h", Region: "US", Zone: "z", ProbeType: ProbeTypeTCP, Port: &port, Protocol: "tcp", Timeout: 5}

	p := f.Patch()
	if _, ok := p["protocol"]; !ok {
		t.Fatal("every editable key should be present")
	}
	got, err := p.Merge(TargetFields{Assignees: "ops", Path: "/old"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.Assignees != "" || got.Path != "" {
		t.Errorf("empty values should overwrite: %+v", got)
	}
	if got.Port == nil || *got.Port != 8080 || got.Protocol != "tcp" || got.Timeout != 5 {
		t.Errorf("got %+v", got)
	}
}

func TestBatchOperationValid(t *testing.T) {
	for _, op := range []BatchOperation{BatchDelete, BatchEnable, BatchDisable, BatchUpdate} {
		if !op.Valid() {
			t.Errorf("%q should be valid", op)
		}
	}
	if BatchOperation("purge").Valid() {
		t.Error("purge should not be valid")
	}
}

func TestProbeLabel(t *testing.T) {
	p := Probe{Location: "Singapore", Provider: "Viettel"}
	if p.Label() != "Singapore / Viettel" {
		t.Errorf("Label() = %q", p.Label())
	}
}
