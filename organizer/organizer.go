package organizer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hkogrunt/grunt/classifier"
	logcontracts "github.com/hkogrunt/grunt/logger/contracts"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/utils"
)

// Organizer sorts files into per-category folders under OutputDir.
type Organizer struct {
	Classifier *classifier.Classifier
	OutputDir  string
	// DeepScan recurses into subfolders of each source.
	DeepScan bool
	// Exclude lists directories that are never planned, typically the application root.
	Exclude    []string
	Logger     logcontracts.ILogger
	OnProgress models.ProgressFunc
}

// Preview plans where every file of sources would go. It touches nothing on
// disk and is deterministic for an unchanged file system. Files whose category
// is not in enabled are left out; an empty enabled means every category.
func (o *Organizer) Preview(ctx context.Context, sources []string, enabled []models.Category) (*models.OrganizePlan, error) {
	plan := &models.OrganizePlan{Status: models.StatusCompleted}

	out, err := utils.AbsClean(o.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory: %w", err)
	}
	excluded := utils.PathForms(out)
	for _, e := range o.Exclude {
		excluded = append(excluded, utils.PathForms(e)...)
	}
	isExcluded := func(p string) bool {
		for _, e := range excluded {
			if utils.IsUnder(p, e) {
				return true
			}
		}
		return false
	}

	allowed := make(map[models.Category]bool, len(enabled))
	for _, c := range enabled {
		allowed[c] = true
	}

	seen := make(map[string]struct{})
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}

		res := o.Classifier.Classify(p)
		if len(allowed) > 0 && !allowed[res.Category] {
			return
		}
		dst := filepath.Join(out, res.Destination, filepath.Base(p))
		if !utils.IsUnder(filepath.Dir(dst), out) {
			o.Logger.Warning("Skipping %s: destination %q leaves %s", p, res.Destination, out)
			return
		}
		plan.Entries = append(plan.Entries, models.PlanEntry{
			Source:      p,
			Destination: dst,
			Category:    res.Category,
			Reason:      res.Reason,
		})
	}

	for _, source := range sources {
		if ctx.Err() != nil {
			return cancelledPlan(), nil
		}
		root, err := utils.ResolvePath(source)
		if err != nil {
			o.Logger.Warning("Cannot organize %s: %v", source, err)
			continue
		}
		info, err := os.Stat(root)
		if err != nil {
			o.Logger.Warning("Cannot organize %s: %v", root, err)
			continue
		}
		if isExcluded(root) {
			o.Logger.Warning("Skipping %s: inside the application folder", root)
			continue
		}
		if info.Mode().IsRegular() {
			add(root)
			continue
		}

		if err := o.walk(ctx, root, isExcluded, add); err != nil {
			if ctx.Err() != nil {
				return cancelledPlan(), nil
			}
			return nil, err
		}
	}

	o.Logger.Info("Planned %d files for organizing", len(plan.Entries))
	return plan, nil
}

func (o *Organizer) walk(ctx context.Context, root string, isExcluded func(string) bool, add func(string)) error {
	if !o.DeepScan {
		entries, err := os.ReadDir(root)
		if err != nil {
			o.Logger.Warning("Cannot read %s: %v", root, err)
			return nil
		}
		for _, de := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := filepath.Join(root, de.Name())
			if de.Type().IsRegular() && !isExcluded(p) {
				add(p)
			}
		}
		return nil
	}

	return filepath.WalkDir(root, func(p string, de fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			o.Logger.Warning("Cannot read %s: %v", p, err)
			return nil
		}
		if de.IsDir() {
			if p != root && isExcluded(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if de.Type().IsRegular() && !isExcluded(p) {
			add(p)
		}
		return nil
	})
}

func cancelledPlan() *models.OrganizePlan {
	return &models.OrganizePlan{Status: models.StatusCancelled}
}

// Execute carries out plan in order. Sources that vanished since the preview
// are skipped; an occupied destination name gets a numeric suffix. Per-file
// failures are logged and counted without stopping the run.
func (o *Organizer) Execute(ctx context.Context, plan *models.OrganizePlan, mode models.Mode) *models.OperationReport {
	report := models.NewOperationReport(models.OpOrganize)
	verb := "Copied"
	if mode == models.ModeMove {
		verb = "Moved"
	}

	total := len(plan.Entries)
	for i, e := range plan.Entries {
		if ctx.Err() != nil {
			o.Logger.Warning("Organize cancelled after %d of %d files", i, total)
			return report.Finish(models.StatusCancelled)
		}

		info, err := os.Lstat(e.Source)
		if err != nil || !info.Mode().IsRegular() {
			o.Logger.Warning("Skipping %s: no longer exists", e.Source)
			report.Record(e.Source, "", models.ResultSkipped)
			o.OnProgress.Report(i+1, total, e.Source)
			continue
		}

		dst, err := utils.PlaceFile(e.Source, filepath.Dir(e.Destination), filepath.Base(e.Destination), mode)
		if err != nil {
			o.Logger.Error("Failed to organize %s: %v", e.Source, err)
			report.Record(e.Source, "", models.ResultFailed)
		} else {
			o.Logger.Info("%s %s -> %s", verb, e.Source, dst)
			report.Record(e.Source, dst, models.ResultSucceeded)
		}
		o.OnProgress.Report(i+1, total, e.Source)
	}

	return report.Finish(models.StatusCompleted)
}
