package contracts

import "github.com/hkogrunt/grunt/models"

// IQuarantine moves files or folders out of the way without deleting them.
type IQuarantine interface {
	Add(path, reason string) (models.QuarantineEntry, error)
}
