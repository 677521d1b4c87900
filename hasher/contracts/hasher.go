package contracts

// IHasher computes a content digest for a file.
type IHasher interface {
	Hash(path string) (string, error)
	Algorithm() string
}
