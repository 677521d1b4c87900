package models

import "strings"

// Category is the fixed classification bucket a file is assigned to.
type Category string

const (
	Documents     Category = "Documents"
	Spreadsheets  Category = "Spreadsheets"
	Presentations Category = "Presentations"
	Images        Category = "Images"
	Videos        Category = "Videos"
	Audio         Category = "Audio"
	Code          Category = "Code"
	Archives      Category = "Archives"
	Executables   Category = "Executables"
	Databases     Category = "Databases"
	Other         Category = "Other"
)

// AllCategories lists every category in configuration order.
var AllCategories = []Category{
	Documents,
	Spreadsheets,
	Presentations,
	Images,
	Videos,
	Audio,
	Code,
	Archives,
	Executables,
	Databases,
	Other,
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range AllCategories {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// ClassificationResult explains where a file belongs.
type ClassificationResult struct {
	File        FileRecord `json:"file"`
	Category    Category   `json:"category"`
	Destination string     `json:"destination"`
	Reason      string     `json:"reason"`
}
