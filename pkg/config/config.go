// Package config loads and saves the learner's settings file and resolves
// the default locations of the settings, deck database and dictionary.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/kotoba/pkg/quiz"
)

const (
	appName      = "kotoba"
	settingsFile = "settings.yaml"
	dbFile       = "kotoba.db"
	dictFile     = "jmdict-eng-common.json"
)

// Paths are the files kotoba reads and writes.
type Paths struct {
	Settings   string
	DB         string
	Dictionary string
}

// DefaultPaths resolves the XDG locations, creating parent directories.
func DefaultPaths() (Paths, error) {
	settings, err := xdg.ConfigFile(filepath.Join(appName, settingsFile))
	if err != nil {
		return Paths{}, fmt.Errorf("resolve settings path: %w", err)
	}
	db, err := xdg.DataFile(filepath.Join(appName, dbFile))
	if err != nil {
		return Paths{}, fmt.Errorf("resolve database path: %w", err)
	}
	dict, err := xdg.DataFile(filepath.Join(appName, dictFile))
	if err != nil {
		return Paths{}, fmt.Errorf("resolve dictionary path: %w", err)
	}
	return Paths{Settings: settings, DB: db, Dictionary: dict}, nil
}

// Load reads settings from path. A missing file yields the defaults; fields
// missing from the file keep their default values.
func Load(path string) (quiz.Settings, error) {
	s := quiz.DefaultSettings()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := Parse(data, &s); err != nil {
		return quiz.DefaultSettings(), fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML settings over s and checks them.
func Parse(data []byte, s *quiz.Settings) error {
	var raw quiz.Settings
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Modes != nil {
		s.Modes = raw.Modes
	}
	if raw.RomajiOutput != "" {
		s.RomajiOutput = raw.RomajiOutput
	}
	if raw.Proportions != nil {
		s.Proportions = raw.Proportions
	}
	if raw.Module != "" {
		s.Module = raw.Module
	}
	return Check(*s)
}

// Check rejects settings naming unknown modes or output preferences.
func Check(s quiz.Settings) error {
	for m := range s.Modes {
		if _, err := quiz.ParseMode(string(m)); err != nil {
			return err
		}
	}
	for _, w := range s.Proportions {
		if _, err := quiz.ParseMode(w.Mode); err != nil {
			return fmt.Errorf("proportions: %w", err)
		}
	}
	switch s.RomajiOutput {
	case quiz.OutputHiragana, quiz.OutputKatakana:
	default:
		return fmt.Errorf("unknown romaji_output %q", s.RomajiOutput)
	}
	return nil
}

// Save writes s to path as YAML, creating the parent directory.
func Save(path string, s quiz.Settings) error {
	if err := Check(s); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
