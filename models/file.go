package models

import "time"

// FileRecord is a read-only snapshot of a regular file taken at scan time.
type FileRecord struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// DuplicateGroup holds files sharing the same size and content digest.
// Members are ordered oldest-first; ties keep scan order.
type DuplicateGroup struct {
	Hash    string       `json:"hash"`
	Size    int64        `json:"size"`
	Members []FileRecord `json:"members"`
}

// Original returns the member that is kept when duplicates are removed.
func (g DuplicateGroup) Original() FileRecord {
	return g.Members[0]
}

// Duplicates returns every member except the original.
func (g DuplicateGroup) Duplicates() []FileRecord {
	if len(g.Members) < 2 {
		return nil
	}
	return g.Members[1:]
}

// Reclaimable is the number of bytes freed by removing the duplicates.
func (g DuplicateGroup) Reclaimable() int64 {
	return g.Size * int64(len(g.Duplicates()))
}

// DuplicateScan is the result of one duplicate detection run.
type DuplicateScan struct {
	Status       Status           `json:"status"`
	Groups       []DuplicateGroup `json:"groups"`
	FilesScanned int              `json:"files_scanned"`
	FilesHashed  int              `json:"files_hashed"`
	Unreadable   int              `json:"unreadable"`
}

// Reclaimable sums the reclaimable bytes over all groups.
func (s *DuplicateScan) Reclaimable() int64 {
	var total int64
	for _, g := range s.Groups {
		total += g.Reclaimable()
	}
	return total
}
