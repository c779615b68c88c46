// meshinfo loads a 3D asset without a GPU and prints what the viewer would
// draw: mesh and triangle counts, the node tree, textures and bounds.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/internal/importer"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/scene"
	"github.com/Faultbox/meshview/pkg/grf"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one subcommand and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command, args := args[0], args[1:]
	switch command {
	case "info":
		return withAsset("info", args, stdout, stderr, printInfo)
	case "nodes", "tree":
		return cmdNodes(args, stdout, stderr)
	case "textures", "tex":
		return withAsset("textures", args, stdout, stderr, printTextures)
	case "bounds":
		return withAsset("bounds", args, stdout, stderr, printBounds)
	case "pack":
		return cmdPack(args, stdout, stderr)
	case "list", "ls":
		return cmdList(args, stdout, stderr)
	case "formats":
		fmt.Fprintln(stdout, strings.Join(importer.Extensions(), " "))
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `meshinfo - inspect 3D assets

Usage:
  meshinfo <command> [options] <path>

Commands:
  info <path>                  Show format, mesh, vertex and triangle counts
  nodes <path>                 Print the node hierarchy
  textures <path>              List textures and whether they decode
  bounds <path>                Show bounds and the unit-cube normalization
  pack <out.grf> <file>...     Store files in a GRF archive
  list <archive.grf> [pattern] List loadable assets in a GRF archive
  formats                      List supported extensions

Options:
  --grf <archive>   Read the asset and its textures from a GRF archive
  --raw             Skip unit-cube normalization
  --no-flip         Keep texture V coordinates as authored
  --debug           Log loader diagnostics to stderr

Examples:
  meshinfo info models/duck.glb
  meshinfo textures --grf data.grf data/model/prontera/fountain.rsm
  meshinfo pack --base assets out.grf assets/data/model/tree.rsm
  meshinfo list -n 20 data.grf "*.rsm"`)
}

// assetFlags are shared by every subcommand that loads an asset.
type assetFlags struct {
	fs     *flag.FlagSet
	grf    *string
	raw    *bool
	noFlip *bool
	debug  *bool
}

func newAssetFlags(name string, stderr io.Writer) *assetFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &assetFlags{
		fs:     fs,
		grf:    fs.String("grf", "", "GRF archive to read from"),
		raw:    fs.Bool("raw", false, "Skip normalization"),
		noFlip: fs.Bool("no-flip", false, "Do not flip texture V"),
		debug:  fs.Bool("debug", false, "Log loader diagnostics"),
	}
}

// parse reads flags and returns the asset path plus a source to read it
// from. The returned closer must be called when done.
func (f *assetFlags) parse(args []string, stderr io.Writer) (string, importer.Source, func(), error) {
	if err := f.fs.Parse(args); err != nil {
		return "", nil, nil, err
	}
	if f.fs.NArg() < 1 {
		return "", nil, nil, fmt.Errorf("usage: meshinfo %s [options] <path>", f.fs.Name())
	}

	level := "warn"
	if *f.debug {
		level = "debug"
	}
	logger.InitConsole(level, stderr)

	path := f.fs.Arg(0)
	if *f.grf == "" {
		return path, importer.Disk{}, func() {}, nil
	}
	archive, err := grf.Open(*f.grf)
	if err != nil {
		return "", nil, nil, err
	}
	return path, archive, func() { archive.Close() }, nil
}

func withAsset(name string, args []string, stdout, stderr io.Writer, print func(io.Writer, *scene.Asset)) int {
	f := newAssetFlags(name, stderr)
	path, src, done, err := f.parse(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer done()

	opts := scene.DefaultOptions()
	opts.Source = src
	opts.Normalize = !*f.raw
	opts.FlipTextureV = !*f.noFlip

	asset, err := scene.LoadWithOptions(path, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	print(stdout, asset)
	return 0
}

func printInfo(w io.Writer, a *scene.Asset) {
	st := a.Stats()
	fmt.Fprintf(w, "File:      %s\n", a.Path)
	fmt.Fprintf(w, "Format:    %s\n", a.Format)
	fmt.Fprintf(w, "Meshes:    %d\n", st.Meshes)
	fmt.Fprintf(w, "Vertices:  %d\n", st.Vertices)
	fmt.Fprintf(w, "Triangles: %d\n", st.Triangles)
	fmt.Fprintf(w, "Textures:  %d (%d failed)\n", st.Textures, st.FailedTextures)

	if len(a.Meshes) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Meshes:")
	for i, m := range a.Meshes {
		name := m.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "  %3d  %-24s %6d verts %6d tris %d textures\n",
			i, name, len(m.Vertices), m.TriangleCount(), len(m.Textures))
	}
}

func printTextures(w io.Writer, a *scene.Asset) {
	paths := make([]string, 0, len(a.Textures))
	for p := range a.Textures {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		fmt.Fprintln(w, "No textures")
		return
	}
	for _, p := range paths {
		t := a.Textures[p]
		if t.Err != nil {
			fmt.Fprintf(w, "%-9s %-10s %s: %v\n", t.Kind, "missing", p, t.Err)
			continue
		}
		fmt.Fprintf(w, "%-9s %-10s %s\n", t.Kind, fmt.Sprintf("%dx%d", t.Width, t.Height), p)
	}
}

func printBounds(w io.Writer, a *scene.Asset) {
	b := a.Bounds
	fmt.Fprintf(w, "Min:    %s\n", vec(b.Min))
	fmt.Fprintf(w, "Max:    %s\n", vec(b.Max))
	fmt.Fprintf(w, "Center: %s\n", vec(b.Center()))
	fmt.Fprintf(w, "Size:   %s\n", vec(b.Size()))

	// Normalization is Scale(s) * Translate(-c), so the diagonal holds s.
	fmt.Fprintf(w, "Scale:  %g\n", a.Normalization.At(0, 0))
}

func vec(v mgl32.Vec3) string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g)", v[0], v[1], v[2])
}

func cmdNodes(args []string, stdout, stderr io.Writer) int {
	f := newAssetFlags("nodes", stderr)
	path, src, done, err := f.parse(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer done()

	s, err := importer.Import(src, path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", &scene.ImportError{Path: path, Err: err})
		return 1
	}

	fmt.Fprintf(stdout, "%s, %d nodes, %d meshes\n", s.Format, len(s.Nodes), len(s.Meshes))
	visited := make([]bool, len(s.Nodes))
	var walk func(id, depth int)
	walk = func(id, depth int) {
		n := s.Nodes[id]
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("#%d", id)
		}
		indent := strings.Repeat("  ", depth)
		if visited[id] {
			fmt.Fprintf(stdout, "%s%s (shared)\n", indent, name)
			return
		}
		visited[id] = true

		tris := 0
		for _, m := range n.Meshes {
			tris += s.Meshes[m].TriangleCount()
		}
		if len(n.Meshes) > 0 {
			fmt.Fprintf(stdout, "%s%s [%d meshes, %d tris]\n", indent, name, len(n.Meshes), tris)
		} else {
			fmt.Fprintf(stdout, "%s%s\n", indent, name)
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(s.Root, 0)
	return 0
}

func cmdPack(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	base := fs.String("base", ".", "Directory archive names are relative to")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(stderr, "Usage: meshinfo pack [--base dir] <out.grf> <file>...")
		return 1
	}

	files := make(map[string][]byte, fs.NArg()-1)
	for _, path := range fs.Args()[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		name, err := filepath.Rel(*base, path)
		if err != nil || strings.HasPrefix(name, "..") {
			fmt.Fprintf(stderr, "Error: %s is outside %s\n", path, *base)
			return 1
		}
		files[filepath.ToSlash(name)] = data
	}

	out, err := os.Create(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := grf.Build(out, files); err != nil {
		out.Close()
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Packed %d files into %s\n", len(files), fs.Arg(0))
	return 0
}

// cmdList prints archive entries with a registered asset extension. A
// pattern is matched against the base name, or as a substring of the path.
func cmdList(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	all := fs.Bool("all", false, "Include files that are not loadable assets")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "Usage: meshinfo list [-n N] [--all] <archive.grf> [pattern]")
		return 1
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer archive.Close()

	loadable := make(map[string]bool)
	for _, ext := range importer.Extensions() {
		loadable[ext] = true
	}
	pattern := strings.ToLower(fs.Arg(1))

	count := 0
	for _, f := range archive.List() {
		lower := strings.ToLower(f)
		if !*all && !loadable[filepath.Ext(lower)] {
			continue
		}
		if pattern != "" {
			matched, _ := filepath.Match(pattern, filepath.Base(lower))
			if !matched && !strings.Contains(lower, pattern) {
				continue
			}
		}
		fmt.Fprintln(stdout, f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	if pattern != "" {
		fmt.Fprintf(stderr, "(%d files matched)\n", count)
	}
	return 0
}
