package contracts

import (
	"context"

	"github.com/hkogrunt/grunt/models"
)

// ICodeAnalyzer collects source files out of arbitrary folders.
type ICodeAnalyzer interface {
	Extract(ctx context.Context, source, destRepo string, allowed []string) (*models.OperationReport, error)
	PrepareForAI(ctx context.Context, source, outDir string, allowed []string, mode models.PrepMode) (*models.AIPrepResult, error)
}
