package archive

import (
	"os"
	"path/filepath"
)

// FileExists reports whether a file with the resolved name is already
// present in the directory. A hit means the upload is a duplicate and
// must not be recorded or downloaded again.
func FileExists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
