package appdirs

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const AppName = "respects"

func configBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg, nil
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData, nil
		}
		return filepath.Join(home, "AppData", "Roaming"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return xdg, nil
		}
		return filepath.Join(home, ".config"), nil
	}
}

func ConfigDir() (string, error) {
	base, err := configBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func EnsureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("could not create config dir: %w", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		return "", fmt.Errorf("could not secure config dir permissions: %w", err)
	}
	return dir, nil
}

// systemDirs lists the machine-wide base directories, most important first.
func systemDirs(envVar, fallback string) []string {
	if runtime.GOOS == "windows" {
		if programData := os.Getenv("PROGRAMDATA"); programData != "" {
			return []string{programData}
		}
		return nil
	}
	value := os.Getenv(envVar)
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	var out []string
	for _, dir := range filepath.SplitList(value) {
		if dir = strings.TrimSpace(dir); dir != "" {
			out = append(out, dir)
		}
	}
	return out
}

// SystemConfigFiles returns the machine-wide config files in the order they
// should be applied. Later files override earlier ones, so the most
// important XDG directory comes last.
func SystemConfigFiles() []string {
	dirs := systemDirs("XDG_CONFIG_DIRS", "/etc/xdg")
	out := make([]string, 0, len(dirs))
	for i := len(dirs) - 1; i >= 0; i-- {
		out = append(out, filepath.Join(dirs[i], AppName, "config.toml"))
	}
	return out
}

// RuleDirs lists where runtime rule files are searched, first hit wins:
// the configured directory, the user config dir, then the system config and
// data directories.
func RuleDirs(configured string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(dir string) {
		if dir == "" || seen[dir] {
			return
		}
		seen[dir] = true
		out = append(out, dir)
	}

	add(strings.TrimSpace(configured))
	if dir, err := ConfigDir(); err == nil {
		add(filepath.Join(dir, "rules"))
	}
	for _, dir := range systemDirs("XDG_CONFIG_DIRS", "/etc/xdg") {
		add(filepath.Join(dir, AppName, "rules"))
	}
	if runtime.GOOS != "windows" {
		for _, dir := range systemDirs("XDG_DATA_DIRS", "/usr/local/share:/usr/share") {
			add(filepath.Join(dir, AppName, "rules"))
		}
	}
	return out
}
