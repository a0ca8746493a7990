package paths

import (
	"os"
	"path/filepath"
)

const (
	// HomeEnvVar overrides the default data directory.
	HomeEnvVar = "KAIZEN_HOME"
	// DefaultHome is the data directory name under the user's home.
	DefaultHome = ".kaizen"

	databaseFile = "kaizen.db"
	logsDir      = "logs"
)

// GetDataDir resolves the data directory: an explicit flag value wins,
// then KAIZEN_HOME, then ~/.kaizen.
func GetDataDir(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if env := os.Getenv(HomeEnvVar); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultHome), nil
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// GetDatabasePath returns <dataDir>/kaizen.db.
func GetDatabasePath(dataDir string) string {
	return filepath.Join(dataDir, databaseFile)
}

// GetLogsDir returns <dataDir>/logs.
func GetLogsDir(dataDir string) string {
	return filepath.Join(dataDir, logsDir)
}

// EnsureLogsDir creates <dataDir>/logs if needed.
func EnsureLogsDir(dataDir string) (string, error) {
	dir := GetLogsDir(dataDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetMCPLogPath returns <dataDir>/logs/mcp.log.
func GetMCPLogPath(dataDir string) string {
	return filepath.Join(GetLogsDir(dataDir), "mcp.log")
}

// GetAPILogPath returns <dataDir>/logs/api.log.
func GetAPILogPath(dataDir string) string {
	return filepath.Join(GetLogsDir(dataDir), "api.log")
}
