// objtool is a CLI utility for inspecting and converting Wavefront OBJ meshes.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/korori/internal/config"
	"github.com/Faultbox/korori/internal/logger"
	"github.com/Faultbox/korori/pkg/formats"
)

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	if len(config.Args()) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := config.Args()[0]
	args := config.Args()[1:]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "check":
		cmdCheck(cfg, args)
	case "export", "x":
		cmdExport(cfg, args)
	case "dump":
		cmdDump(cfg, args)
	case "config":
		cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`objtool - Wavefront OBJ mesh utility

Usage:
  objtool [-config file] [-debug] [-strict] <command> [options]

Commands:
  info <file.obj|file.krrm>       Show mesh statistics
  check <file.obj>...             Fail if any file has skipped lines
  export <file.obj> <out.krrm>    Write welded buffers as a KRRM binary
  dump [-n N] <file.obj>          Print vertices and triangles
  config [-o file]                Write the effective configuration

Examples:
  objtool info models/cube.obj
  objtool -strict check models/*.obj
  objtool export models/cube.obj build/cube.krrm
  objtool info build/cube.krrm
  objtool dump -n 10 models/cube.obj
  objtool -config korori.yaml config -o ~/.config/korori/config.yaml`)
}

// load parses path with the configured loader settings, exiting on failure.
func load(cfg *config.Config, path string) *formats.OBJMesh {
	mesh, err := formats.ParseOBJFile(path, cfg.Loader.OBJOptions(logger.Named("obj")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return mesh
}

func cmdInfo(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: objtool info <file.obj|file.krrm>")
		os.Exit(1)
	}

	path := args[0]
	fmt.Printf("File:       %s\n", path)

	var mesh *formats.OBJMesh
	if strings.EqualFold(filepath.Ext(path), ".krrm") {
		var err error
		mesh, err = formats.ParseKRRMFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Format:     KRRM %d.%d\n", formats.KRRMVersionMajor, formats.KRRMVersionMinor)
	} else {
		mesh = load(cfg, path)
		stats := mesh.Stats
		fmt.Printf("Positions:  %d\n", stats.Positions)
		fmt.Printf("TexCoords:  %d\n", stats.TexCoords)
		fmt.Printf("Normals:    %d\n", stats.Normals)
		fmt.Printf("Faces:      %d\n", stats.Faces)
		fmt.Println()
	}

	fmt.Printf("Vertices:   %d", mesh.VertexCount())
	if mesh.Stats.Duplicates > 0 {
		fmt.Printf(" (%d split by texcoord/normal)", mesh.Stats.Duplicates)
	}
	fmt.Println()
	fmt.Printf("Indices:    %d\n", mesh.IndexCount())
	fmt.Printf("Triangles:  %d\n", mesh.TriangleCount())

	if b, ok := mesh.Bounds(); ok {
		fmt.Printf("Bounds:     (%g, %g, %g) - (%g, %g, %g)\n", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	}

	if len(mesh.Warnings) > 0 {
		fmt.Printf("Warnings:   %d skipped lines\n", len(mesh.Warnings))
	}
}

func cmdCheck(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: objtool check <file.obj>...")
		os.Exit(1)
	}

	failed := 0
	for _, path := range args {
		// Collect every warning instead of stopping at the first one.
		opts := cfg.Loader.OBJOptions(nil)
		opts.Strict = false

		mesh, err := formats.ParseOBJFile(path, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}

		if len(mesh.Warnings) == 0 {
			fmt.Printf("ok   %s (%d triangles)\n", path, mesh.TriangleCount())
			continue
		}

		failed++
		fmt.Printf("FAIL %s (%d skipped lines)\n", path, len(mesh.Warnings))
		for _, w := range mesh.Warnings {
			fmt.Printf("     %s\n", w)
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d files failed\n", failed, len(args))
		os.Exit(1)
	}
}

func cmdExport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: objtool export <file.obj> <out.krrm>")
		os.Exit(1)
	}

	mesh := load(cfg, fs.Arg(0))
	if mesh.IndexCount() == 0 {
		fmt.Fprintf(os.Stderr, "Error: %s has no triangles\n", fs.Arg(0))
		os.Exit(1)
	}

	outputPath := fs.Arg(1)
	if err := formats.WriteKRRMFile(outputPath, mesh); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Exported: %s (%d vertices, %d indices)\n", outputPath, mesh.VertexCount(), mesh.IndexCount())
}

func cmdDump(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N vertices and N triangles (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: objtool dump [-n N] <file.obj>")
		os.Exit(1)
	}

	mesh := load(cfg, fs.Arg(0))

	fmt.Printf("# %d vertices\n", mesh.VertexCount())
	for i, v := range mesh.Vertices {
		if *limit > 0 && i >= *limit {
			fmt.Printf("# ... %d more\n", mesh.VertexCount()-i)
			break
		}
		fmt.Printf("%5d  p(%g, %g, %g)  t(%g, %g)  n(%g, %g, %g)\n", i,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.TexCoord.X, v.TexCoord.Y,
			v.Normal.X, v.Normal.Y, v.Normal.Z)
	}

	fmt.Printf("# %d triangles\n", mesh.TriangleCount())
	for tri := 0; tri < mesh.TriangleCount(); tri++ {
		if *limit > 0 && tri >= *limit {
			fmt.Printf("# ... %d more\n", mesh.TriangleCount()-tri)
			break
		}
		i := mesh.Indices[tri*3:]
		fmt.Printf("%5d  %d %d %d\n", tri, i[0], i[1], i[2])
	}
}

func cmdConfig(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	output := fs.String("o", "", "Output path (default: the user config directory)")
	fs.Parse(args)

	var err error
	path := *output
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.yaml")
		err = cfg.Save()
	} else {
		err = cfg.SaveTo(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s\n", path)
}
