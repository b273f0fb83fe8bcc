package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver derives on-disk storage paths under a single archive root and
// rejects any channel or sender name that would resolve outside it.
type Resolver struct {
	root  string
	locks *keyedMutex[string]
}

// NewResolver creates a resolver anchored at targetDir. The directory is
// created if it does not exist yet.
func NewResolver(targetDir string) (*Resolver, error) {
	abs, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive root: %w", err)
	}

	return &Resolver{
		root:  abs,
		locks: newKeyedMutex[string](),
	}, nil
}

// Root returns the absolute archive root directory
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the directory files from channelName should land in.
// With sortByUser the sender gets a subdirectory of their own. The
// returned path is guaranteed to be a strict descendant of the root;
// names containing traversal sequences yield ErrPathEscape and nothing
// is created on disk.
func (r *Resolver) Resolve(channelName, senderName string, sortByUser bool) (string, error) {
	parts := []string{channelName}
	if sortByUser && senderName != "" {
		parts = append(parts, senderName)
	}
	return r.securePath(parts...)
}

// ChannelPath returns the directory for a channel name after the same
// escape check Resolve performs
func (r *Resolver) ChannelPath(channelName string) (string, error) {
	return r.securePath(channelName)
}

// EnsureDir creates dir, holding the channel's critical section so a
// concurrent rename cannot interleave with the creation
func (r *Resolver) EnsureDir(channelName, dir string) error {
	r.locks.Lock(channelName)
	defer r.locks.Unlock(channelName)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create channel directory: %w", err)
	}
	return nil
}

// Rename moves a channel directory to its new name. It rejects with
// ErrNameCollision when the target already exists and with ErrPathEscape
// when either name leaves the root. A channel that never archived a file
// has no directory yet; the rename then succeeds without touching disk.
func (r *Resolver) Rename(oldName, newName string) error {
	oldPath, err := r.securePath(oldName)
	if err != nil {
		return err
	}
	newPath, err := r.securePath(newName)
	if err != nil {
		return err
	}

	first, second := oldName, newName
	if second < first {
		first, second = second, first
	}
	r.locks.Lock(first)
	defer r.locks.Unlock(first)
	if second != first {
		r.locks.Lock(second)
		defer r.locks.Unlock(second)
	}

	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("%q: %w", newName, ErrNameCollision)
	}

	if oldPath == newPath {
		return nil
	}

	if _, err := os.Stat(oldPath); err == nil {
		if err := os.Rename(oldPath, newPath); err != nil {
			return fmt.Errorf("failed to move channel directory: %w", err)
		}
	}

	return nil
}

// securePath joins parts under the root and verifies the result is a
// strict descendant of it after resolving `..` segments and any symlinks
// along the already-existing part of the path.
func (r *Resolver) securePath(parts ...string) (string, error) {
	for _, part := range parts {
		if filepath.IsAbs(part) || containsTraversal(part) {
			return "", fmt.Errorf("%q: %w", filepath.Join(parts...), ErrPathEscape)
		}
	}

	candidate := filepath.Join(append([]string{r.root}, parts...)...)

	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	rootResolved, err := resolveExisting(r.root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve archive root: %w", err)
	}

	if resolved == rootResolved || !strings.HasPrefix(resolved, rootResolved+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", filepath.Join(parts...), ErrPathEscape)
	}

	return candidate, nil
}

// containsTraversal reports whether any path segment of name is a `..`
func containsTraversal(name string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// resolveExisting evaluates symlinks on the longest existing ancestor of
// path and rejoins the remainder, so escape checks hold even for paths
// that have not been created yet.
func resolveExisting(path string) (string, error) {
	remainder := ""
	current := filepath.Clean(path)

	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Ran out of ancestors; nothing on the path exists.
			return filepath.Join(current, remainder), nil
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}
