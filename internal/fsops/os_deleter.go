package fsops

import (
	"fmt"
	"os"
)

// OSDeleter implements Deleter using real os package calls
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error {
	return os.Remove(path)
}

// RemoveDir refuses anything that is not a directory, so a file swapped in
// between listing and removal is never unlinked through this path
func (OSDeleter) RemoveDir(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "rmdir", Path: path, Err: fmt.Errorf("not a directory")}
	}
	return os.Remove(path)
}
