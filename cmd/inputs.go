package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentic-research/radar/internal/graph"
	"github.com/agentic-research/radar/internal/ingest"
	"github.com/agentic-research/radar/internal/manifest"
	"github.com/spf13/cobra"
)

// inputFlags name the parser outputs to ingest. Producing them (running syn
// or solc) happens outside radar.
type inputFlags struct {
	synFiles    []string
	sourceFiles []string
	cargo       string
	workspace   string
	synDir      string
	anchor      string
	solc        string
	base        string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.synFiles, "syn", nil, "syn-serde JSON of a Rust file (repeatable, paired with --source)")
	cmd.Flags().StringArrayVar(&f.sourceFiles, "source", nil, "Rust source file matching the --syn at the same position")
	cmd.Flags().StringVar(&f.cargo, "cargo", "", "Cargo.toml providing package name and version for Rust sources")
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "Cargo crate or workspace root whose src/ files are scanned")
	cmd.Flags().StringVar(&f.synDir, "syn-dir", "", "Directory holding <relative path>.json syn output for --workspace sources")
	cmd.Flags().StringVar(&f.anchor, "anchor", "", "Anchor.toml whose toolchain versions are recorded on Rust roots")
	cmd.Flags().StringVar(&f.solc, "solc", "", "solc --standard-json output")
	cmd.Flags().StringVar(&f.base, "base", ".", "Directory the solc source paths are relative to")
}

func (f *inputFlags) units() ([]ingest.Unit, error) {
	if len(f.synFiles) != len(f.sourceFiles) {
		return nil, fmt.Errorf("got %d --syn but %d --source", len(f.synFiles), len(f.sourceFiles))
	}
	if (f.workspace == "") != (f.synDir == "") {
		return nil, fmt.Errorf("--workspace and --syn-dir go together")
	}
	if len(f.synFiles) == 0 && f.workspace == "" && f.solc == "" {
		return nil, fmt.Errorf("nothing to scan: pass --syn/--source, --workspace or --solc")
	}

	var units []ingest.Unit
	if len(f.synFiles) > 0 {
		rust, err := f.rustUnits()
		if err != nil {
			return nil, err
		}
		units = append(units, rust...)
	}
	if f.workspace != "" {
		rust, err := f.workspaceUnits()
		if err != nil {
			return nil, err
		}
		units = append(units, rust...)
	}
	if f.solc != "" {
		u, err := f.solidityUnit()
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func (f *inputFlags) anchorMetadata() (map[string]any, error) {
	meta := map[string]any{}
	if f.anchor == "" {
		return meta, nil
	}
	a, err := manifest.ReadAnchor(f.anchor)
	if err != nil {
		return nil, err
	}
	meta["anchor_version"] = a.Toolchain.AnchorVersion
	meta["solana_version"] = a.Toolchain.SolanaVersion
	return meta, nil
}

// workspaceUnits pairs every source of the workspace with its syn output.
// Sources without one are skipped with a warning.
func (f *inputFlags) workspaceUnits() ([]ingest.Unit, error) {
	sources, err := manifest.DiscoverRustSources(f.workspace)
	if err != nil {
		return nil, err
	}
	meta, err := f.anchorMetadata()
	if err != nil {
		return nil, err
	}

	var units []ingest.Unit
	for _, s := range sources {
		rel, err := filepath.Rel(f.workspace, s.Path)
		if err != nil {
			return nil, err
		}
		syn, err := os.ReadFile(filepath.Join(f.synDir, rel+".json"))
		if err != nil {
			log.Warn("no syn output for source", "path", rel, "error", err)
			continue
		}
		src, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		units = append(units, ingest.Unit{
			Language: graph.Rust,
			Path:     filepath.ToSlash(rel),
			Source:   string(src),
			AST:      syn,
			Package:  s.Package,
			Version:  s.Version,
			Metadata: meta,
		})
	}
	return units, nil
}

func (f *inputFlags) rustUnits() ([]ingest.Unit, error) {
	var pkg, version string
	if f.cargo != "" {
		c, err := manifest.ReadCargo(f.cargo)
		if err != nil {
			return nil, err
		}
		pkg, version = c.Package.Name, c.Package.Version
	}
	meta, err := f.anchorMetadata()
	if err != nil {
		return nil, err
	}

	units := make([]ingest.Unit, len(f.synFiles))
	for i := range f.synFiles {
		syn, err := os.ReadFile(f.synFiles[i])
		if err != nil {
			return nil, fmt.Errorf("read syn output: %w", err)
		}
		src, err := os.ReadFile(f.sourceFiles[i])
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		units[i] = ingest.Unit{
			Language: graph.Rust,
			Path:     filepath.ToSlash(f.sourceFiles[i]),
			Source:   string(src),
			AST:      syn,
			Package:  pkg,
			Version:  version,
			Metadata: meta,
		}
	}
	return units, nil
}

func (f *inputFlags) solidityUnit() (ingest.Unit, error) {
	out, err := os.ReadFile(f.solc)
	if err != nil {
		return ingest.Unit{}, fmt.Errorf("read solc output: %w", err)
	}
	paths, err := ingest.SourcePaths(out)
	if err != nil {
		return ingest.Unit{}, err
	}

	sources := make(map[string]string, len(paths))
	var texts []string
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(f.base, filepath.FromSlash(p)))
		if err != nil {
			// The adapter reports the file as missing its source text.
			log.Warn("solidity source not readable", "path", p, "error", err)
			continue
		}
		sources[p] = string(data)
		texts = append(texts, string(data))
	}
	version, err := manifest.CompilerVersion(texts...)
	if err != nil {
		return ingest.Unit{}, err
	}
	return ingest.Unit{
		Language: graph.Solidity,
		Path:     filepath.ToSlash(f.solc),
		AST:      out,
		Sources:  sources,
		Version:  version,
	}, nil
}

// ingestForest builds the forest. Files that fail are logged; the scan goes
// on with the rest unless nothing could be ingested.
func ingestForest(ctx context.Context, f *inputFlags) (*graph.Forest, error) {
	units, err := f.units()
	if err != nil {
		return nil, err
	}
	engine := ingest.NewEngine(log.Named("ingest"),
		&ingest.RustAdapter{SkipValidation: cfg.Ingest.SkipValidation},
		&ingest.SolidityAdapter{},
	)
	forest, err := engine.Ingest(ctx, units...)
	if err != nil {
		if len(forest.Files()) == 0 {
			return nil, err
		}
		log.Warn("some files were not ingested", "error", err)
	}
	log.Info("ingested", "files", len(forest.Files()), "nodes", forest.Len())
	return forest, nil
}
