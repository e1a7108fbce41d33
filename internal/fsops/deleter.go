package fsops

// Deleter abstracts filesystem delete operations
// Enables mocking in tests to prove dry-run never deletes
type Deleter interface {
	// Remove unlinks a single non-directory entry
	Remove(path string) error
	// RemoveDir removes an empty directory
	RemoveDir(path string) error
}
