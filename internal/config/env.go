// Package config loads settings from .env, eli5.toml and the environment.
// Precedence, lowest first: built-in defaults, the TOML file, then
// environment variables (which .env populates without overriding).
package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads the first .env file found and returns its path, or "" when
// none was loaded. Variables already set in the process are kept.
//
// Search order:
//  1. Explicit paths, if any are given.
//  2. The executable's directory and up to three parents (bin/eli5 finds the project .env).
//  3. The working directory, for `go run ./cmd/eli5`.
func LoadEnv(paths ...string) string {
	if len(paths) > 0 {
		if err := godotenv.Load(paths...); err != nil {
			log.Printf("[Config] No .env file at %v, using system environment variables", paths)
			return ""
		}
		return paths[0]
	}

	candidates := envCandidates()
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("[Config] Failed to load .env from %s: %v", p, err)
			return ""
		}
		log.Printf("[Config] Loaded .env from %s", p)
		return p
	}

	log.Printf("[Config] No .env file found (searched: %v), using system environment variables", candidates)
	return ""
}

// envCandidates returns the ordered, de-duplicated .env paths to probe.
func envCandidates() []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dir := filepath.Dir(exe)
		for i := 0; i <= 3; i++ {
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		add(filepath.Join(cwd, ".env"))
	}
	return out
}
