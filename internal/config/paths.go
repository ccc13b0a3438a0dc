package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	ConfigName        = "helptree"
	DefaultConfigDir  = "configs"
	DefaultConfigFile = "helptree.yaml"
)

var configExts = []string{".yaml", ".yml", ".json"}

// FindConfigFile returns the first helptree config file in dirs, or "".
func FindConfigFile(dirs []string) string {
	for _, dir := range dirs {
		for _, ext := range configExts {
			path := filepath.Join(dir, ConfigName+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// SearchDirs lists the directories searched for helptree.{yaml,yml,json}.
func SearchDirs() []string {
	dirs := []string{".", DefaultConfigDir}
	if home, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "helptree"))
	}
	return uniqueDirs(dirs)
}

func uniqueDirs(dirs []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		normalized := strings.ToLower(filepath.Clean(trimmed))
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
