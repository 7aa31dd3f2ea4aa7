// Package query parses the console's search box syntax and matches
// targets against it.
//
//	hostname=example.com region="US East" enabled=true web
//
// key=value tokens are field conditions, everything else is a free-text
// term. All conditions and all terms must match.
package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

var pairPattern = regexp.MustCompile(`(\w+)=(?:"([^"]*)"|(\S*))`)

// Condition is a single key=value filter.
type Condition struct {
	Field string
	Value string
}

// Query is a parsed search string.
type Query struct {
	Conditions []Condition
	Terms      []string
	// Unknown holds keys that name no target field; they are ignored.
	Unknown []string
}

// Empty reports whether q filters nothing.
func (q Query) Empty() bool {
	return len(q.Conditions) == 0 && len(q.Terms) == 0
}

var aliases = map[string]string{
	"name":   "hostname",
	"type":   "probe_type",
	"status": "last_status",
}

var fields = map[string]bool{
	"id":          true,
	"hostname":    true,
	"address":     true,
	"region":      true,
	"zone":        true,
	"probe_type":  true,
	"assignees":   true,
	"enabled":     true,
	"last_status": true,
	"protocol":    true,
	"path":        true,
	"label":       true,
}

// Parse splits s into conditions and free-text terms.
func Parse(s string) Query {
	var q Query
	s = strings.TrimSpace(s)
	if s == "" {
		return q
	}

	var rest strings.Builder
	last := 0
	for _, m := range pairPattern.FindAllStringSubmatchIndex(s, -1) {
		rest.WriteString(s[last:m[0]])
		rest.WriteByte(' ')
		last = m[1]

		key := strings.ToLower(s[m[2]:m[3]])
		// Exactly one of the quoted and bare value groups took part.
		var value string
		if m[4] >= 0 {
			value = s[m[4]:m[5]]
		} else {
			value = s[m[6]:m[7]]
		}
		if canonical, ok := aliases[key]; ok {
			key = canonical
		}
		if !fields[key] {
			q.Unknown = append(q.Unknown, key)
			continue
		}
		q.Conditions = append(q.Conditions, Condition{Field: key, Value: value})
	}
	rest.WriteString(s[last:])

	for _, term := range strings.Fields(rest.String()) {
		q.Terms = append(q.Terms, term)
	}
	return q
}

// Match reports whether t satisfies every condition and term in q.
func (q Query) Match(t *domain.Target) bool {
	for _, c := range q.Conditions {
		if !matchCondition(t, c) {
			return false
		}
	}
	for _, term := range q.Terms {
		if !matchTerm(t, term) {
			return false
		}
	}
	return true
}

// Filter returns the targets matching q, preserving order.
func (q Query) Filter(targets []*domain.Target) []*domain.Target {
	if q.Empty() {
		return targets
	}
	out := make([]*domain.Target, 0, len(targets))
	for _, t := range targets {
		if q.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func matchCondition(t *domain.Target, c Condition) bool {
	switch c.Field {
	case "id":
		return matchValue(strconv.FormatInt(t.ID, 10), c.Value)
	case "hostname":
		return matchValue(t.Hostname, c.Value)
	case "address":
		return matchValue(t.Address, c.Value)
	case "region":
		return matchValue(t.Region, c.Value)
	case "zone":
		return matchValue(t.Zone, c.Value)
	case "probe_type":
		return matchValue(string(t.ProbeType), c.Value)
	case "assignees":
		return matchValue(t.Assignees, c.Value)
	case "last_status":
		return matchValue(string(t.LastStatus), c.Value)
	case "protocol":
		return matchValue(t.Protocol, c.Value)
	case "path":
		return matchValue(t.Path, c.Value)
	case "enabled":
		b, err := strconv.ParseBool(strings.ToLower(c.Value))
		if err != nil {
			return false
		}
		return t.Enabled == b
	case "label":
		for _, v := range []string{t.Region, t.Zone, t.Assignees, string(t.ProbeType)} {
			if matchValue(v, c.Value) {
				return true
			}
		}
		return false
	}
	return true
}

// matchValue compares case-insensitively; '*' in pattern matches any run.
func matchValue(value, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return strings.EqualFold(value, pattern)
	}
	parts := strings.Split(pattern, "*")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	re, err := regexp.Compile("(?i)^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

func matchTerm(t *domain.Target, term string) bool {
	term = strings.ToLower(term)
	for _, v := range []string{t.Hostname, t.Address, t.Region, t.Zone, string(t.ProbeType), t.Assignees, string(t.LastStatus)} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}
