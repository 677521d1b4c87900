package duplicates

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	cachecontracts "github.com/hkogrunt/grunt/cache/contracts"
	hashcontracts "github.com/hkogrunt/grunt/hasher/contracts"
	logcontracts "github.com/hkogrunt/grunt/logger/contracts"
	"github.com/hkogrunt/grunt/models"
	qcontracts "github.com/hkogrunt/grunt/quarantine/contracts"
	"github.com/hkogrunt/grunt/utils"
)

// Detector finds files with identical content.
type Detector struct {
	Hasher hashcontracts.IHasher
	Logger logcontracts.ILogger
	// Cache is optional.
	Cache cachecontracts.IDigestCache
	// Files smaller than MinSize bytes are never considered.
	MinSize int64
	// Exclude lists directories that are never scanned.
	Exclude    []string
	OnProgress models.ProgressFunc
}

type digestKey struct {
	size int64
	hash string
}

// Find scans roots and groups identical files. Only files that share their
// size with another file are hashed. When ctx is cancelled the partial result
// is discarded and a scan with StatusCancelled is returned.
func (d *Detector) Find(ctx context.Context, roots []string) (*models.DuplicateScan, error) {
	scan := &models.DuplicateScan{Status: models.StatusCompleted}

	files, err := d.enumerate(ctx, roots, scan)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(scan), nil
		}
		return nil, err
	}

	bySize := make(map[int64]int)
	for _, f := range files {
		bySize[f.Size]++
	}
	var candidates []models.FileRecord
	for _, f := range files {
		if bySize[f.Size] > 1 {
			candidates = append(candidates, f)
		}
	}

	d.Logger.Info("Scanned %d files, hashing %d candidates", scan.FilesScanned, len(candidates))

	byDigest := make(map[digestKey][]models.FileRecord)
	var order []digestKey
	for i, f := range candidates {
		if ctx.Err() != nil {
			return cancelled(scan), nil
		}

		digest, err := d.digest(f)
		if err != nil {
			d.Logger.Warning("Cannot read %s: %v", f.Path, err)
			scan.Unreadable++
		} else {
			scan.FilesHashed++
			key := digestKey{size: f.Size, hash: digest}
			if _, ok := byDigest[key]; !ok {
				order = append(order, key)
			}
			byDigest[key] = append(byDigest[key], f)
		}
		d.OnProgress.Report(i+1, len(candidates), f.Path)
	}

	for _, key := range order {
		members := byDigest[key]
		if len(members) < 2 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].ModTime.Before(members[j].ModTime)
		})
		scan.Groups = append(scan.Groups, models.DuplicateGroup{Hash: key.hash, Size: key.size, Members: members})
	}
	sort.Slice(scan.Groups, func(i, j int) bool {
		if scan.Groups[i].Size != scan.Groups[j].Size {
			return scan.Groups[i].Size > scan.Groups[j].Size
		}
		return scan.Groups[i].Hash < scan.Groups[j].Hash
	})

	d.Logger.Info("Found %d duplicate groups", len(scan.Groups))
	return scan, nil
}

func cancelled(scan *models.DuplicateScan) *models.DuplicateScan {
	scan.Status = models.StatusCancelled
	scan.Groups = nil
	return scan
}

// enumerate lists regular files of at least MinSize bytes under roots, each
// path at most once.
func (d *Detector) enumerate(ctx context.Context, roots []string, scan *models.DuplicateScan) ([]models.FileRecord, error) {
	excluded := make([]string, 0, len(d.Exclude))
	for _, e := range d.Exclude {
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

	seen := make(map[string]struct{})
	var files []models.FileRecord

	for _, root := range roots {
		abs, err := utils.ResolvePath(root)
		if err != nil {
			d.Logger.Warning("Cannot scan %s: %v", root, err)
			continue
		}
		if info, err := os.Stat(abs); err != nil {
			d.Logger.Warning("Cannot scan %s: %v", abs, err)
			continue
		} else if !info.IsDir() {
			d.Logger.Warning("Cannot scan %s: not a directory", abs)
			continue
		}

		err = filepath.WalkDir(abs, func(p string, de fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				d.Logger.Warning("Cannot read %s: %v", p, err)
				return nil
			}
			if de.IsDir() {
				if p != abs && isExcluded(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if !de.Type().IsRegular() || isExcluded(p) {
				return nil
			}
			if _, dup := seen[p]; dup {
				return nil
			}
			seen[p] = struct{}{}

			info, err := de.Info()
			if err != nil {
				d.Logger.Warning("Cannot read %s: %v", p, err)
				scan.Unreadable++
				return nil
			}
			scan.FilesScanned++
			if info.Size() < d.MinSize {
				return nil
			}
			files = append(files, models.FileRecord{Path: p, Size: info.Size(), ModTime: info.ModTime()})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (d *Detector) digest(f models.FileRecord) (string, error) {
	algorithm := d.Hasher.Algorithm()
	if d.Cache != nil {
		if digest, ok := d.Cache.GetDigest(f, algorithm); ok {
			return digest, nil
		}
	}
	digest, err := d.Hasher.Hash(f.Path)
	if err != nil {
		return "", err
	}
	if d.Cache != nil {
		if err := d.Cache.SetDigest(f, algorithm, digest); err != nil {
			d.Logger.Warning("Cannot cache digest of %s: %v", f.Path, err)
		}
	}
	return digest, nil
}

// QuarantineDuplicates moves every member except the original of each group
// into q. Members that changed since the scan are skipped, as are whole groups
// whose original no longer exists.
func (d *Detector) QuarantineDuplicates(ctx context.Context, groups []models.DuplicateGroup, q qcontracts.IQuarantine) *models.OperationReport {
	report := models.NewOperationReport(models.OpQuarantineDuplicates)

	total := 0
	for _, g := range groups {
		total += len(g.Duplicates())
	}

	done := 0
	for _, g := range groups {
		if len(g.Members) < 2 {
			continue
		}
		original := g.Original()
		if !unchanged(original) {
			d.Logger.Warning("Original %s changed or vanished since the scan; keeping its duplicates", original.Path)
			for _, dup := range g.Duplicates() {
				report.Record(dup.Path, "", models.ResultSkipped)
				done++
			}
			continue
		}

		for _, dup := range g.Duplicates() {
			if ctx.Err() != nil {
				return report.Finish(models.StatusCancelled)
			}
			done++

			if !unchanged(dup) {
				d.Logger.Warning("Skipping %s: changed or vanished since the scan", dup.Path)
				report.Record(dup.Path, "", models.ResultSkipped)
				d.OnProgress.Report(done, total, dup.Path)
				continue
			}

			entry, err := q.Add(dup.Path, fmt.Sprintf("duplicate of %s", original.Path))
			if err != nil {
				d.Logger.Error("Failed to quarantine %s: %v", dup.Path, err)
				report.Record(dup.Path, "", models.ResultFailed)
			} else {
				d.Logger.Info("Quarantined duplicate %s -> %s", dup.Path, entry.To)
				report.Record(dup.Path, entry.To, models.ResultSucceeded)
			}
			d.OnProgress.Report(done, total, dup.Path)
		}
	}
	return report.Finish(models.StatusCompleted)
}

func unchanged(f models.FileRecord) bool {
	info, err := os.Lstat(f.Path)
	return err == nil && info.Mode().IsRegular() && info.Size() == f.Size && info.ModTime().Equal(f.ModTime)
}
