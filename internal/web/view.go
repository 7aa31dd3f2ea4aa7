package web

import (
	"strconv"
	"strings"

	"github.com/bcnelson/blackbox-target-manager/internal/console"
	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// AllProbesValue is the form value of the aggregate probe option.
const AllProbesValue = "all"

// noProbesLabel is shown for the aggregate option before probes load.
const noProbesLabel = "All probes"

// Badge is the status indicator of a row.
type Badge struct {
	Label string
	Class string
}

// StatusBadge maps a last_status to its indicator. Anything other than
// UP or DOWN is unknown and rendered neutral.
func StatusBadge(s domain.Status) Badge {
	switch s.Normalize() {
	case domain.StatusUp:
		return Badge{Label: "UP", Class: "success"}
	case domain.StatusDown:
		return Badge{Label: "DOWN", Class: "danger"}
	default:
		return Badge{Label: "N/A", Class: "secondary"}
	}
}

// ControlsEnabled reports whether the enable, disable and delete
// selected controls are usable.
func ControlsEnabled(snap console.Snapshot) bool {
	return snap.HasSelection()
}

// ProbeOption is one entry of the probe dropdown.
type ProbeOption struct {
	Value string
	Label string
}

// ProbeOptions returns the aggregate option followed by one option per
// probe. The aggregate label joins every probe's "location / provider".
func ProbeOptions(probes []*domain.Probe) []ProbeOption {
	opts := make([]ProbeOption, 0, len(probes)+1)
	labels := make([]string, 0, len(probes))
	for _, p := range probes {
		labels = append(labels, p.Label())
	}
	all := noProbesLabel
	if len(labels) > 0 {
		all = strings.Join(labels, ", ")
	}
	opts = append(opts, ProbeOption{Value: AllProbesValue, Label: all})
	for _, p := range probes {
		opts = append(opts, ProbeOption{Value: strconv.FormatInt(p.ID, 10), Label: p.Label()})
	}
	return opts
}

// Row is one target as shown in the list.
type Row struct {
	ID         int64
	Hostname   string
	Address    string
	Region     string
	Zone       string
	ProbeType  string
	Assignees  string
	Enabled    bool
	Status     Badge
	StatusCode string
	Checked    bool
}

// TableView feeds the list_surface and selection_controls templates.
type TableView struct {
	Rows            []Row
	Filter          string
	SelectedCount   int
	ControlsEnabled bool
	AllSelected     bool
}

// BuildTable projects a store snapshot into the list view.
func BuildTable(snap console.Snapshot, filter string) TableView {
	rows := make([]Row, 0, len(snap.Targets))
	for _, t := range snap.Targets {
		code := "N/A"
		if t.LastStatusCode != nil {
			code = strconv.Itoa(*t.LastStatusCode)
		}
		rows = append(rows, Row{
			ID:         t.ID,
			Hostname:   t.Hostname,
			Address:    t.Address,
			Region:     t.Region,
			Zone:       t.Zone,
			ProbeType:  string(t.ProbeType),
			Assignees:  t.Assignees,
			Enabled:    t.Enabled,
			Status:     StatusBadge(t.LastStatus),
			StatusCode: code,
			Checked:    snap.IsSelected(t.ID),
		})
	}
	return TableView{
		Rows:            rows,
		Filter:          filter,
		SelectedCount:   len(snap.Selected),
		ControlsEnabled: ControlsEnabled(snap),
		AllSelected:     snap.AllSelected(),
	}
}

// FormView feeds the modal_surface template.
type FormView struct {
	IsEdit       bool
	ID           int64
	Fields       domain.TargetFields
	Port         string
	ProbeTypes   []domain.ProbeType
	ProbeOptions []ProbeOption
	Selected     map[string]bool
}

// NewFormView builds the add or edit dialog. A nil target means add.
func NewFormView(t *domain.Target, probes []*domain.Probe) FormView {
	v := FormView{
		Fields:       domain.TargetFields{Enabled: true, Timeout: domain.DefaultTimeout},
		ProbeTypes:   domain.KnownProbeTypes(),
		ProbeOptions: ProbeOptions(probes),
		Selected:     make(map[string]bool),
	}
	if t == nil {
		return v
	}
	v.IsEdit = true
	v.ID = t.ID
	v.Fields = t.Fields()
	if t.Port != nil {
		v.Port = strconv.Itoa(*t.Port)
	}
	for _, id := range t.ProbeIDs {
		v.Selected[strconv.FormatInt(id, 10)] = true
	}
	return v
}
