package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	logcontracts "github.com/hkogrunt/grunt/logger/contracts"
	"github.com/hkogrunt/grunt/models"
	qcontracts "github.com/hkogrunt/grunt/quarantine/contracts"
	"github.com/hkogrunt/grunt/utils"
)

// ErrEmptySchema is returned when no authorized folders are configured.
var ErrEmptySchema = errors.New("no authorized folders configured")

// Folder is an authorized top-level folder and its expected subfolders.
type Folder struct {
	Name       string
	Subfolders []string
}

// Schema describes which folders may exist directly under Base.
type Schema struct {
	Base    string
	Folders []Folder
	// Exclude lists directories that are never reported, such as the application root.
	Exclude []string
	Logger  logcontracts.ILogger
}

// Init creates every folder and subfolder of the schema that is missing and
// returns the paths it created.
func (s *Schema) Init() ([]string, error) {
	if len(s.Folders) == 0 {
		return nil, ErrEmptySchema
	}

	var created []string
	for _, p := range s.Missing() {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return created, fmt.Errorf("failed to create %s: %w", p, err)
		}
		s.Logger.Info("Created folder %s", p)
		created = append(created, p)
	}
	return created, nil
}

// Missing lists schema folders that do not exist yet.
func (s *Schema) Missing() []string {
	var missing []string
	for _, f := range s.Folders {
		dirs := []string{filepath.Join(s.Base, f.Name)}
		for _, sub := range f.Subfolders {
			dirs = append(dirs, filepath.Join(s.Base, f.Name, sub))
		}
		for _, d := range dirs {
			if info, err := os.Stat(d); err != nil || !info.IsDir() {
				missing = append(missing, d)
			}
		}
	}
	return missing
}

// Unauthorized lists the non-hidden directories directly under Base that are
// not part of the schema, sorted by name. Names compare case-insensitively.
func (s *Schema) Unauthorized() ([]string, error) {
	if len(s.Folders) == 0 {
		return nil, ErrEmptySchema
	}

	base, err := utils.AbsClean(s.Base)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", base, err)
	}

	authorized := make(map[string]struct{}, len(s.Folders))
	for _, f := range s.Folders {
		authorized[strings.ToLower(f.Name)] = struct{}{}
	}
	var excluded []string
	for _, e := range s.Exclude {
		if abs, err := utils.AbsClean(e); err == nil {
			excluded = append(excluded, abs)
		}
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := authorized[strings.ToLower(e.Name())]; ok {
			continue
		}
		p := filepath.Join(base, e.Name())
		skip := false
		for _, x := range excluded {
			// The application root and any folder containing it stay.
			if utils.IsUnder(p, x) || utils.IsUnder(x, p) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Clean moves every unauthorized folder into q.
func (s *Schema) Clean(ctx context.Context, q qcontracts.IQuarantine, onProgress models.ProgressFunc) (*models.OperationReport, error) {
	report := models.NewOperationReport(models.OpSchemaClean)

	dirs, err := s.Unauthorized()
	if err != nil {
		return nil, err
	}

	for i, d := range dirs {
		if ctx.Err() != nil {
			return report.Finish(models.StatusCancelled), nil
		}
		entry, err := q.Add(d, "unauthorized folder")
		if err != nil {
			s.Logger.Error("Failed to quarantine %s: %v", d, err)
			report.Record(d, "", models.ResultFailed)
		} else {
			s.Logger.Info("Quarantined unauthorized folder %s -> %s", d, entry.To)
			report.Record(d, entry.To, models.ResultSucceeded)
		}
		onProgress.Report(i+1, len(dirs), d)
	}
	return report.Finish(models.StatusCompleted), nil
}
