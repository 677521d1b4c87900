package code_analyzer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hkogrunt/grunt/code_analyzer/contracts"
	logcontracts "github.com/hkogrunt/grunt/logger/contracts"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/utils"
)

// CodeAnalyzer walks source folders for code files.
type CodeAnalyzer struct {
	Logger logcontracts.ILogger
	// IgnoreDirs are directory names never descended into.
	IgnoreDirs []string
	OnProgress models.ProgressFunc
	now        func() time.Time
}

var _ contracts.ICodeAnalyzer = (*CodeAnalyzer)(nil)

// NewCodeAnalyzer returns an analyzer skipping ignoreDirs; nil means the defaults.
func NewCodeAnalyzer(log logcontracts.ILogger, ignoreDirs []string) *CodeAnalyzer {
	if ignoreDirs == nil {
		ignoreDirs = utils.DefaultIgnoredDirs()
	}
	return &CodeAnalyzer{Logger: log, IgnoreDirs: ignoreDirs}
}

type sourceFile struct {
	path string
	rel  string
}

// collect lists the files under source with an allowed extension, in lexical
// order. Directories under any of exclude are not walked.
func (analyzer *CodeAnalyzer) collect(ctx context.Context, source string, exclude []string, allowed []string) ([]sourceFile, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read source folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", source)
	}

	matcher, err := utils.NewIgnoreMatcher(source, analyzer.IgnoreDirs)
	if err != nil {
		return nil, err
	}

	exts := make(map[string]struct{}, len(allowed))
	for _, e := range allowed {
		if e = utils.NormalizeExtension(e); e != "" {
			exts[e] = struct{}{}
		}
	}

	var files []sourceFile
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			analyzer.Logger.Warning("Cannot read %s: %v", path, err)
			return nil
		}
		if path == source {
			return nil
		}

		for _, e := range exclude {
			if utils.IsUnder(path, e) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		relativePath, err := filepath.Rel(source, path)
		if err != nil {
			return nil
		}
		if matcher.Match(relativePath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if _, ok := exts[strings.ToLower(filepath.Ext(path))]; ok {
			files = append(files, sourceFile{path: path, rel: relativePath})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Extract copies every allowed file under source into destRepo, mirroring its
// relative path. Existing files are never overwritten; a taken name gets a
// numeric suffix. destRepo is not walked when it lies inside source.
func (analyzer *CodeAnalyzer) Extract(ctx context.Context, source, destRepo string, allowed []string) (*models.OperationReport, error) {
	report := models.NewOperationReport(models.OpExtractCode)

	source, err := utils.ResolvePath(source)
	if err != nil {
		return nil, err
	}
	destRepo, err = utils.AbsClean(destRepo)
	if err != nil {
		return nil, err
	}
	repoForms := utils.PathForms(destRepo)
	for _, repo := range repoForms {
		if utils.IsUnder(source, repo) {
			return nil, fmt.Errorf("source %s lies inside the code repository %s", source, destRepo)
		}
	}

	files, err := analyzer.collect(ctx, source, repoForms, allowed)
	if err != nil {
		if ctx.Err() != nil {
			return report.Finish(models.StatusCancelled), nil
		}
		return nil, err
	}
	analyzer.Logger.Info("Extracting %d code files from %s", len(files), source)

	for i, f := range files {
		if ctx.Err() != nil {
			analyzer.Logger.Warning("Code extraction cancelled after %d of %d files", i, len(files))
			return report.Finish(models.StatusCancelled), nil
		}

		if _, err := os.Lstat(f.path); err != nil {
			analyzer.Logger.Warning("Skipping %s: no longer exists", f.path)
			report.Record(f.path, "", models.ResultSkipped)
		} else {
			dir := filepath.Join(destRepo, filepath.Dir(f.rel))
			dst, err := utils.PlaceFile(f.path, dir, filepath.Base(f.rel), models.ModeCopy)
			if err != nil {
				analyzer.Logger.Error("Failed to extract %s: %v", f.path, err)
				report.Record(f.path, "", models.ResultFailed)
			} else {
				analyzer.Logger.Info("Extracted %s -> %s", f.rel, dst)
				report.Record(f.path, dst, models.ResultSucceeded)
			}
		}
		analyzer.OnProgress.Report(i+1, len(files), f.path)
	}

	return report.Finish(models.StatusCompleted), nil
}
