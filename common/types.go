package common

import "time"

type EventResult struct {
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Target time.Time `json:"target"`
}

type CountdownResult struct {
	Kind      string `json:"kind,omitempty"`
	Display   string `json:"display"`
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	Seconds   int    `json:"seconds"`
	Expired   bool   `json:"expired"`
	Remaining int64  `json:"remainingMs"`
}

type ModeParams struct {
	Mode string `json:"mode"`
}

type ModeResult struct {
	Mode   string `json:"mode"`
	Madhab string `json:"madhab"`
}

type MadhabParams struct {
	Madhab string `json:"madhab"`
}

type LocationParams struct {
	// Query is geocoded when set; otherwise Latitude/Longitude are used.
	Query     string   `json:"query,omitempty"`
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type LocationResult struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"countryCode,omitempty"`
}

type TimesParams struct {
	// Date is YYYY-MM-DD; empty means today.
	Date string `json:"date,omitempty"`
}

type TimesResult struct {
	Date    string    `json:"date"`
	Method  string    `json:"method"`
	Madhab  string    `json:"madhab"`
	Fajr    time.Time `json:"fajr"`
	Sunrise time.Time `json:"sunrise"`
	Dhuhr   time.Time `json:"dhuhr"`
	Asr     time.Time `json:"asr"`
	Maghrib time.Time `json:"maghrib"`
	Isha    time.Time `json:"isha"`
}

type AudioStateResult struct {
	Unlocked bool `json:"unlocked"`
}

type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

type AlertFiredNotification struct {
	Kind     string    `json:"kind"`
	Target   time.Time `json:"target"`
	Tier     string    `json:"tier,omitempty"`
	Locked   bool      `json:"locked,omitempty"`
	Notified bool      `json:"notified"`
	Errors   []string  `json:"errors,omitempty"`
}
