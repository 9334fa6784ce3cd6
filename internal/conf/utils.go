// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tphakala/birdmetrics/internal/errors"
)

// GetDefaultConfigPaths returns a list of default configuration paths for the
// current operating system, following standard conventions for application
// configuration files.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			filepath.Join(homeDir, "AppData", "Roaming", "birdmetrics"),
			exeDir,
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "birdmetrics"),
			exeDir,
			".",
		}
	}

	return configPaths, nil
}
