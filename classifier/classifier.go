package classifier

import (
	"fmt"
	"path/filepath"
	"strings"

	logcontracts "github.com/hkogrunt/grunt/logger/contracts"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/utils"
)

// KeywordRule routes files whose name contains one of Keywords to Destination.
// Category optionally overrides the extension category.
type KeywordRule struct {
	Keywords    []string `mapstructure:"keywords" json:"keywords"`
	Destination string   `mapstructure:"destination" json:"destination"`
	Category    string   `mapstructure:"category" json:"category,omitempty"`
}

type rule struct {
	keywords    []string
	destination string
	category    models.Category
}

// Classifier maps file names to categories.
type Classifier struct {
	byExt map[string]models.Category
	rules []rule
}

// New builds a classifier. Configuration problems are logged as warnings and
// resolved deterministically: the first category that lists an extension wins,
// rules without keywords or destination are dropped.
func New(table []CategoryExtensions, rules []KeywordRule, log logcontracts.ILogger) *Classifier {
	c := &Classifier{byExt: make(map[string]models.Category)}

	for _, row := range table {
		for _, ext := range row.Extensions {
			ext = utils.NormalizeExtension(ext)
			if ext == "" {
				continue
			}
			if first, ok := c.byExt[ext]; ok {
				if first != row.Category {
					log.Warning("extension %s is configured under %s and %s; using %s", ext, first, row.Category, first)
				}
				continue
			}
			c.byExt[ext] = row.Category
		}
	}

	for i, r := range rules {
		var keywords []string
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		dest := strings.TrimSpace(r.Destination)
		if len(keywords) == 0 || dest == "" {
			log.Warning("keyword rule %d has no keywords or destination; ignored", i+1)
			continue
		}

		if !ValidDestination(dest) {
			log.Warning("keyword rule %d destination %q leaves the organized folder; ignored", i+1, dest)
			continue
		}

		var category models.Category
		if r.Category != "" {
			parsed, ok := models.ParseCategory(r.Category)
			if !ok {
				log.Warning("keyword rule %d names unknown category %q; using the extension category", i+1, r.Category)
			}
			category = parsed
		}
		c.rules = append(c.rules, rule{keywords: keywords, destination: dest, category: category})
	}

	return c
}

// ValidDestination reports whether dest is a relative folder that stays inside
// the organized output directory.
func ValidDestination(dest string) bool {
	if dest == "" || filepath.IsAbs(dest) || filepath.VolumeName(dest) != "" {
		return false
	}
	clean := filepath.Clean(dest)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

// Default returns a classifier over DefaultTable with no keyword rules.
func Default() *Classifier {
	return New(DefaultTable(), nil, nopLogger{})
}

// Classify classifies a bare file name or path.
func (c *Classifier) Classify(name string) models.ClassificationResult {
	return c.ClassifyFile(models.FileRecord{Path: name})
}

// ClassifyFile applies, in order: keyword rules on the file stem, the
// extension table, and finally Other.
func (c *Classifier) ClassifyFile(file models.FileRecord) models.ClassificationResult {
	base := filepath.Base(file.Path)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	extCategory, extMatched := c.byExt[ext]

	for _, r := range c.rules {
		for _, k := range r.keywords {
			if !strings.Contains(stem, k) {
				continue
			}
			category := r.category
			if category == "" {
				category = models.Other
				if extMatched {
					category = extCategory
				}
			}
			return models.ClassificationResult{
				File:        file,
				Category:    category,
				Destination: r.destination,
				Reason:      fmt.Sprintf("keyword match: %q -> %s", k, r.destination),
			}
		}
	}

	if extMatched {
		return models.ClassificationResult{
			File:        file,
			Category:    extCategory,
			Destination: string(extCategory),
			Reason:      "extension match: " + ext,
		}
	}

	return models.ClassificationResult{
		File:        file,
		Category:    models.Other,
		Destination: string(models.Other),
		Reason:      "no match",
	}
}

// Extensions returns the extensions owned by category.
func (c *Classifier) Extensions(category models.Category) []string {
	var out []string
	for ext, cat := range c.byExt {
		if cat == category {
			out = append(out, ext)
		}
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)    {}
func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Error(string, ...any)   {}
func (nopLogger) System(string, ...any)  {}
