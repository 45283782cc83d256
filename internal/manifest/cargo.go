// Package manifest reads the project files that decide what gets ingested:
// Cargo and Anchor manifests for Rust programs, pragmas for Solidity.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Cargo is the subset of Cargo.toml used for grouping sources.
type Cargo struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// Anchor is the subset of Anchor.toml recorded with a scan.
type Anchor struct {
	Toolchain struct {
		AnchorVersion string `toml:"anchor_version"`
		SolanaVersion string `toml:"solana_version"`
	} `toml:"toolchain"`
	// Older manifests keep the versions at top level.
	AnchorVersion string `toml:"anchor_version"`
	SolanaVersion string `toml:"solana_version"`
}

func ReadCargo(path string) (*Cargo, error) {
	var c Cargo
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &c, nil
}

func ReadAnchor(path string) (*Anchor, error) {
	var a Anchor
	if _, err := toml.DecodeFile(path, &a); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if a.Toolchain.AnchorVersion == "" {
		a.Toolchain.AnchorVersion = a.AnchorVersion
	}
	if a.Toolchain.SolanaVersion == "" {
		a.Toolchain.SolanaVersion = a.SolanaVersion
	}
	return &a, nil
}

// RustSource is one .rs file with the package it belongs to.
type RustSource struct {
	Path    string
	Package string
	Version string
}

// DiscoverRustSources lists the Rust sources of the crate or workspace rooted
// at root. Workspace members may be globs; members that do not exist are
// skipped. Sources are sorted by path and target/ directories are ignored.
func DiscoverRustSources(root string) ([]RustSource, error) {
	cargo, err := ReadCargo(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return nil, err
	}

	var out []RustSource
	if len(cargo.Workspace.Members) == 0 {
		out, err = crateSources(root, cargo)
		if err != nil {
			return nil, err
		}
	} else {
		for _, dir := range memberDirs(root, cargo.Workspace.Members) {
			member, err := ReadCargo(filepath.Join(dir, "Cargo.toml"))
			if err != nil {
				return nil, err
			}
			srcs, err := crateSources(dir, member)
			if err != nil {
				return nil, err
			}
			out = append(out, srcs...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func memberDirs(root string, members []string) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, m := range members {
		matches, err := filepath.Glob(filepath.Join(root, m))
		if err != nil {
			continue
		}
		for _, d := range matches {
			if info, err := os.Stat(d); err != nil || !info.IsDir() || seen[d] {
				continue
			}
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func crateSources(dir string, cargo *Cargo) ([]RustSource, error) {
	src := filepath.Join(dir, "src")
	if _, err := os.Stat(src); err != nil {
		return nil, nil
	}
	var out []RustSource
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "target" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".rs") {
			out = append(out, RustSource{Path: path, Package: cargo.Package.Name, Version: cargo.Package.Version})
		}
		return nil
	})
	return out, err
}
