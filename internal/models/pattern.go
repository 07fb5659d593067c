package models

import "time"

// AnomalyPattern describes an anomaly type that recurs across stored summaries.
type AnomalyPattern struct {
	Type        string    `json:"type"`
	Occurrences int       `json:"occurrences"`
	Prevalence  float64   `json:"prevalence"`
	MaxSeverity Severity  `json:"maxSeverity"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
}
