package safety

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath     = errors.New("empty path")
	ErrProtected     = errors.New("protected path")
	ErrOutsideTarget = errors.New("outside every target")
	ErrTraversal     = errors.New("path traversal detected")
	ErrSymlinkEscape = errors.New("symlinked ancestor escapes")
)

// systemPaths are never removed, nor is anything beneath them
var systemPaths = []string{
	"/",
	"/bin",
	"/boot",
	"/dev",
	"/etc",
	"/lib",
	"/lib64",
	"/proc",
	"/sbin",
	"/sys",
	"/usr",
}

// Guard vets each path the remover is about to delete. A path passes when it
// has no ".." segment, lies under one of the target roots and is neither a
// protected path nor beneath one. The checks run on the path as written and
// again with its parent directory's symlinks resolved. With no roots the
// containment check is off.
type Guard struct {
	roots     []string
	protected []string
}

// NewGuard builds a guard for the given target roots. Extra protected paths
// are added to the system set; relative entries are resolved against the
// working directory. Roots and protected paths reached through symlinks are
// kept in both forms.
func NewGuard(roots []string, protected []string) *Guard {
	g := &Guard{}
	for _, r := range roots {
		g.roots = appendResolved(g.roots, r)
	}
	for _, p := range append(append([]string(nil), systemPaths...), protected...) {
		g.protected = appendResolved(g.protected, p)
	}
	return g
}

// Validate returns nil when path may be removed
func (g *Guard) Validate(path string) error {
	// judged on the raw input; cleaning would hide it
	if hasTraversal(path) {
		return fmt.Errorf("%w: %s", ErrTraversal, path)
	}

	p, err := cleanAbs(path)
	if err != nil {
		return err
	}
	if err := g.check(p); err != nil {
		return err
	}

	resolved, err := resolveParent(p)
	if err != nil {
		return err
	}
	if resolved != p {
		if err := g.check(resolved); err != nil {
			return fmt.Errorf("%w: %s is %s: %w", ErrSymlinkEscape, p, resolved, err)
		}
	}
	return nil
}

func (g *Guard) check(p string) error {
	if g.isProtected(p) {
		return fmt.Errorf("%w: %s", ErrProtected, p)
	}
	if len(g.roots) > 0 && !g.inTarget(p) {
		return fmt.Errorf("%w: %s", ErrOutsideTarget, p)
	}
	return nil
}

func (g *Guard) isProtected(p string) bool {
	for _, prot := range g.protected {
		if within(p, prot) {
			return true
		}
	}
	return false
}

func (g *Guard) inTarget(p string) bool {
	for _, r := range g.roots {
		if within(p, r) {
			return true
		}
	}
	return false
}

func cleanAbs(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

// resolveParent returns p with the symlinks of its parent directory resolved.
// The last element is kept as is: a symlink is removed, never followed.
// A parent that no longer exists leaves p unchanged.
func resolveParent(p string) (string, error) {
	dir, base := filepath.Split(p)
	if base == "" {
		return p, nil
	}
	rdir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return filepath.Join(rdir, base), nil
}

func appendResolved(list []string, path string) []string {
	p, err := cleanAbs(path)
	if err != nil {
		return list
	}
	list = append(list, p)
	if rp, err := filepath.EvalSymlinks(p); err == nil && rp != p {
		list = append(list, rp)
	}
	return list
}

func hasTraversal(raw string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(raw), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// within reports whether p is dir or lies beneath it. The filesystem root only
// contains itself, so protecting "/" does not protect everything.
func within(p, dir string) bool {
	if p == dir {
		return true
	}
	if dir == string(filepath.Separator) {
		return false
	}
	return strings.HasPrefix(p, dir+string(filepath.Separator))
}
