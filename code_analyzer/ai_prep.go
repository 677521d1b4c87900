package code_analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/hkogrunt/grunt/models"
	"github.com/hkogrunt/grunt/utils"
)

const (
	AIPrepPrefix     = "AI_PREP_"
	AIPrepTimeLayout = "20060102_150405"
)

var separator = strings.Repeat("=", 60)

// AIPrepFileName names an AI prep document written at t.
func AIPrepFileName(t time.Time) string {
	return AIPrepPrefix + t.Format(AIPrepTimeLayout) + ".txt"
}

// LanguageName labels a file for the AI prep header.
func LanguageName(filePath string) string {
	if lexer := lexers.Match(filepath.Base(filePath)); lexer != nil {
		return lexer.Config().Name
	}
	return "plaintext"
}

// PrepareForAI concatenates every allowed file under source into a single
// AI_PREP_<timestamp>.txt in outDir; an existing file of that name is kept
// and the new one gets a numeric suffix. In outline mode each body is replaced by
// the file's declaration outline. Nothing is written when ctx is cancelled.
func (analyzer *CodeAnalyzer) PrepareForAI(ctx context.Context, source, outDir string, allowed []string, mode models.PrepMode) (*models.AIPrepResult, error) {
	result := &models.AIPrepResult{Status: models.StatusCompleted}

	source, err := utils.ResolvePath(source)
	if err != nil {
		return nil, err
	}
	outDir, err = utils.AbsClean(outDir)
	if err != nil {
		return nil, err
	}

	files, err := analyzer.collect(ctx, source, utils.PathForms(outDir), allowed)
	if err != nil {
		if ctx.Err() != nil {
			result.Status = models.StatusCancelled
			return result, nil
		}
		return nil, err
	}

	var b strings.Builder
	for i, f := range files {
		if ctx.Err() != nil {
			analyzer.Logger.Warning("AI prep cancelled after %d of %d files; nothing written", i, len(files))
			return &models.AIPrepResult{Status: models.StatusCancelled}, nil
		}

		content, err := os.ReadFile(f.path)
		if err != nil {
			analyzer.Logger.Warning("Cannot read %s: %v", f.path, err)
			result.Skipped++
			analyzer.OnProgress.Report(i+1, len(files), f.path)
			continue
		}

		body := strings.ToValidUTF8(string(content), "")
		if mode == models.PrepOutline {
			body = strings.ToValidUTF8(strings.Join(Outline(ctx, f.path, content), "\n"), "")
		}

		fmt.Fprintf(&b, "\n%s\nFile: %s\nLanguage: %s\n%s\n\n%s\n",
			separator, filepath.ToSlash(f.rel), LanguageName(f.path), separator, body)
		result.Files++
		analyzer.OnProgress.Report(i+1, len(files), f.path)
	}

	now := time.Now
	if analyzer.now != nil {
		now = analyzer.now
	}
	path, err := utils.WriteFileNoReplace(outDir, AIPrepFileName(now()), []byte(b.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to write AI prep file: %w", err)
	}
	result.Path = path
	result.Bytes = b.Len()
	analyzer.Logger.Info("AI prep: %d files written to %s", result.Files, result.Path)
	return result, nil
}
