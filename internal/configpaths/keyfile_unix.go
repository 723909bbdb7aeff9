//go:build !windows

package configpaths

import (
	"os"
	"path/filepath"
)

// KeyFileDir is where the control API password lives. Root services use
// /etc/rcrx.
func KeyFileDir() (string, error) {
	if os.Geteuid() == 0 {
		return filepath.Join(string(os.PathSeparator), "etc", appName), nil
	}
	return DefaultConfigDir()
}
