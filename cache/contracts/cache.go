package contracts

import "github.com/hkogrunt/grunt/models"

// IDigestCache remembers content digests between scans.
type IDigestCache interface {
	GetDigest(file models.FileRecord, algorithm string) (string, bool)
	SetDigest(file models.FileRecord, algorithm string, digest string) error
}
