package params

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// DatadirRoot is the default parent directory for engine data
// (the prefetch store, mainly).
var DatadirRoot = func() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".tilengine"
	}
	return filepath.Join(home, ".tilengine")
}()
