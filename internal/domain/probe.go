package domain

import (
	"fmt"
	"time"
)

// Probe is a monitoring vantage point. Read-only for the console.
type Probe struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Provider    string    `json:"provider"`
	IPAddress   string    `json:"ip_address"`
	Enabled     bool      `json:"enabled"`
	LastUpdated time.Time `json:"last_updated"`
}

// Label is the "location / provider" text shown in probe dropdowns.
func (p Probe) Label() string {
	return fmt.Sprintf("%s / %s", p.Location, p.Provider)
}

// DefaultProbes are seeded into an empty backend.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: "Singapore Probe", Location: "Singapore", Provider: "Viettel", IPAddress: "192.168.1.100", Enabled: true},
		{Name: "USA Probe", Location: "USA", Provider: "FCI", IPAddress: "192.168.1.101", Enabled: true},
		{Name: "Korea Probe", Location: "KOREA", Provider: "CMC", IPAddress: "192.168.1.102", Enabled: true},
	}
}
