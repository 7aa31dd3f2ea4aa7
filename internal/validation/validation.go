// Package validation checks target input on both sides of the API:
// the console rejects bad input before sending it and the backend
// applies the same rules to what it receives.
package validation

import (
	"fmt"
	"strings"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

const maxHostnameLen = 255

// ValidateTargetFields checks the required fields of a create or update.
// Callers should pass fields through TargetFields.Normalized first; a
// value made only of whitespace is reported as missing either way.
func ValidateTargetFields(f domain.TargetFields) ValidationErrors {
	var errs ValidationErrors

	required := []struct {
		name  string
		value string
	}{
		{"hostname", f.Hostname},
		{"region", f.Region},
		{"zone", f.Zone},
		{"probe_type", string(f.ProbeType)},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.Add(r.name, r.value, "is required")
		}
	}

	if len(f.Hostname) > maxHostnameLen {
		errs.Add("hostname", f.Hostname, fmt.Sprintf("must be at most %d characters", maxHostnameLen))
	}
	if err := ValidateHostname(strings.TrimSpace(f.Hostname)); err != nil && strings.TrimSpace(f.Hostname) != "" {
		errs.Add("hostname", f.Hostname, err.Error())
	}
	if f.Port != nil {
		if err := ValidatePort(*f.Port); err != nil {
			errs.Add("port", fmt.Sprint(*f.Port), err.Error())
		}
	}
	if f.Timeout < 0 {
		errs.Add("timeout", fmt.Sprint(f.Timeout), "must not be negative")
	}

	return errs
}

// ValidateHostname rejects hostnames containing whitespace.
// Anything else is left to the probe to resolve.
func ValidateHostname(name string) error {
	if name == "" {
		return fmt.Errorf("hostname must not be empty")
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("hostname must not contain whitespace")
	}
	return nil
}

// ValidatePort validates a TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535")
	}
	return nil
}

// ValidateTargetIDs rejects an empty selection.
func ValidateTargetIDs(ids []int64) error {
	if len(ids) == 0 {
		return NewValidationError("target_ids", "", "at least one target must be selected")
	}
	return nil
}
