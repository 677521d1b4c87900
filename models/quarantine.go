package models

import "time"

// QuarantineEntry records one file or folder moved into the quarantine.
type QuarantineEntry struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	IsDir     bool      `json:"is_dir"`
	Timestamp time.Time `json:"timestamp"`
}
