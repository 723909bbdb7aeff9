//go:build windows

package configpaths

func KeyFileDir() (string, error) {
	return DefaultConfigDir()
}
