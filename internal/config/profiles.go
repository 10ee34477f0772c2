package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultLabel is the profile created by InitDefaultConfig. It cannot be
// removed and is the fallback when the active profile goes away.
const DefaultLabel = "Default"

const profileExt = ".yaml"

var ErrNoConfig = errors.New("no config selected")

// ConfigRoot is the noveld folder under the platform config directory.
func ConfigRoot() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "noveld")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "noveld")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "noveld")
}

// ConfigsDir holds one YAML file per site profile.
func ConfigsDir() string {
	return filepath.Join(ConfigRoot(), "configs")
}

// CurrentLabelFile stores the label of the active profile.
func CurrentLabelFile() string {
	return filepath.Join(ConfigRoot(), "current_config")
}

func ensureDirs() error {
	return os.MkdirAll(ConfigsDir(), 0755)
}

func checkLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return errors.New("label cannot be empty")
	}
	if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return fmt.Errorf("label %q is not a valid file name", label)
	}
	return nil
}

func profilePath(label string) string {
	return filepath.Join(ConfigsDir(), label+profileExt)
}

func profileExists(label string) bool {
	_, err := os.Stat(profilePath(label))
	return err == nil
}

// openProfile validates label and prepares the config folders.
func openProfile(label string) error {
	if err := checkLabel(label); err != nil {
		return err
	}
	return ensureDirs()
}

func setCurrent(label string) error {
	return os.WriteFile(CurrentLabelFile(), []byte(label), 0644)
}

func CurrentLabel() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	b, err := os.ReadFile(CurrentLabelFile())
	if os.IsNotExist(err) {
		return "", ErrNoConfig
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ActiveConfigPath is the file of the active profile. It does not check
// that the file exists.
func ActiveConfigPath() (string, error) {
	label, err := CurrentLabel()
	if err != nil || label == "" {
		return "", ErrNoConfig
	}
	return profilePath(label), nil
}

// ConfigPathByLabel returns the file backing label, failing when the
// profile does not exist.
func ConfigPathByLabel(label string) (string, error) {
	if err := openProfile(label); err != nil {
		return "", err
	}
	if !profileExists(label) {
		return "", fmt.Errorf("config %q does not exist", label)
	}
	return profilePath(label), nil
}

type ConfigInfo struct {
	Label  string
	Path   string
	Active bool
}

// ListConfigs returns every profile sorted by label.
func ListConfigs() ([]ConfigInfo, error) {
	if err := ensureDirs(); err != nil {
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(ConfigsDir(), "*"+profileExt))
	if err != nil {
		return nil, err
	}

	active, _ := CurrentLabel()
	out := make([]ConfigInfo, 0, len(paths))
	for _, p := range paths {
		label := strings.TrimSuffix(filepath.Base(p), profileExt)
		out = append(out, ConfigInfo{Label: label, Path: p, Active: label == active})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func SwitchConfig(label string) error {
	if err := openProfile(label); err != nil {
		return err
	}
	if !profileExists(label) {
		return fmt.Errorf("config %q does not exist", label)
	}
	return setCurrent(label)
}

// AddConfig copies the profile at srcPath in under label.
func AddConfig(label, srcPath string) error {
	if err := openProfile(label); err != nil {
		return err
	}
	if profileExists(label) {
		return fmt.Errorf("config %q already exists", label)
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	return os.WriteFile(profilePath(label), raw, 0644)
}

// CreateEmptyConfig writes a profile with default values and no
// selectors.
func CreateEmptyConfig(label string) (string, error) {
	if err := openProfile(label); err != nil {
		return "", err
	}
	if profileExists(label) {
		return "", fmt.Errorf("config %q already exists", label)
	}

	path := profilePath(label)
	if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}
	return path, nil
}

// RenameConfig moves a profile and keeps it active if it was.
func RenameConfig(oldLabel, newLabel string) error {
	if err := checkLabel(oldLabel); err != nil {
		return err
	}
	if err := openProfile(newLabel); err != nil {
		return err
	}
	if !profileExists(oldLabel) {
		return fmt.Errorf("config %q does not exist", oldLabel)
	}
	if profileExists(newLabel) {
		return fmt.Errorf("config %q already exists", newLabel)
	}

	if err := os.Rename(profilePath(oldLabel), profilePath(newLabel)); err != nil {
		return err
	}

	if active, _ := CurrentLabel(); active == oldLabel {
		return setCurrent(newLabel)
	}
	return nil
}

// RemoveConfig deletes a profile. Removing the active one makes Default
// active.
func RemoveConfig(label string) error {
	if err := openProfile(label); err != nil {
		return err
	}
	if label == DefaultLabel {
		return errors.New("cannot remove the Default config")
	}
	if !profileExists(label) {
		return fmt.Errorf("config %q does not exist", label)
	}

	if active, _ := CurrentLabel(); active == label {
		if err := SwitchConfig(DefaultLabel); err != nil {
			return fmt.Errorf("failed switching to Default: %w", err)
		}
	}
	return os.Remove(profilePath(label))
}

// InitDefaultConfig creates the Default profile and makes it active. When
// it already exists it is only reactivated and os.ErrExist is returned
// with its path.
func InitDefaultConfig() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	path := profilePath(DefaultLabel)
	if profileExists(DefaultLabel) {
		_ = setCurrent(DefaultLabel)
		return path, os.ErrExist
	}

	if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}
	return path, setCurrent(DefaultLabel)
}
