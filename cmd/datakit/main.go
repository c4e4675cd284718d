// Command datakit is a diagnostic CLI over the repository: it renders the
// lazy tree of any supported container and extracts slices from arrays
// inside, exercising the same code paths a visualization frontend would.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/disiqueira/gotree/v3"
	"github.com/urfave/cli/v3"

	"github.com/gobeaver/datakit"
	"github.com/gobeaver/datakit/collect"

	_ "github.com/gobeaver/datakit/adapter/hdf5"
	_ "github.com/gobeaver/datakit/adapter/image"
	_ "github.com/gobeaver/datakit/adapter/memory"
	_ "github.com/gobeaver/datakit/adapter/netcdf"
	_ "github.com/gobeaver/datakit/adapter/raw"
	_ "github.com/gobeaver/datakit/adapter/table"
)

func main() {
	cmd := &cli.Command{
		Name:  "datakit",
		Usage: "Inspect scientific data containers as a unified tree",
		Commands: []*cli.Command{
			adaptersCmd(),
			treeCmd(),
			sliceCmd(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newRepository() (*datakit.Repository, error) {
	cfg, err := datakit.GetConfig()
	if err != nil {
		return nil, err
	}
	return datakit.NewRepository(datakit.WithConfig(cfg))
}

func adaptersCmd() *cli.Command {
	return &cli.Command{
		Name:  "adapters",
		Usage: "List the registered format adapters, most specific first",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repo, err := newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			for _, name := range repo.Registry().AdapterNames() {
				fmt.Fprintln(cmd.Writer, name)
			}
			return nil
		},
	}
}

func treeCmd() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Render the node tree of a container file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "adapter",
				Usage: "Force a specific adapter instead of resolving by pattern and probe",
			},
			&cli.IntFlag{
				Name:  "depth",
				Value: 3,
				Usage: "Maximum expansion depth (0 expands nothing)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one FILE argument")
			}

			repo, err := newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			var opts []datakit.AttachOption
			if name := cmd.String("adapter"); name != "" {
				opts = append(opts, datakit.WithAdapter(name))
			}
			root, err := repo.Attach(cmd.Args().First(), opts...)
			if err != nil {
				return err
			}
			if err := root.Open(); err != nil {
				return err
			}

			t := gotree.New(label(root))
			addChildren(t, root, int(cmd.Int("depth")))
			fmt.Fprint(cmd.Writer, t.Print())
			return nil
		},
	}
}

// addChildren expands node (if it is still closed) and renders its children
// up to depth levels down. Nodes that fail to open are shown with their
// error instead of aborting the walk.
func addChildren(t gotree.Tree, node *datakit.Node, depth int) {
	if depth <= 0 {
		return
	}
	if !node.IsOpen() {
		if err := node.Open(); err != nil {
			t.Add("! " + err.Error())
			return
		}
	}
	for _, child := range node.Children() {
		branch := t.Add(label(child))
		if child.Kind() == datakit.KindGroup {
			addChildren(branch, child, depth-1)
		}
	}
}

func label(node *datakit.Node) string {
	switch node.Kind() {
	case datakit.KindArray:
		dims := make([]string, 0, len(node.Shape()))
		for _, d := range node.Shape() {
			dims = append(dims, strconv.Itoa(d))
		}
		return fmt.Sprintf("%s %s[%s]", node.Name(), node.DType(), strings.Join(dims, ", "))
	case datakit.KindScalar:
		return fmt.Sprintf("%s %s scalar", node.Name(), node.DType())
	case datakit.KindUnsupported:
		return node.Name() + " (unsupported)"
	default:
		return node.Name() + "/"
	}
}

func sliceCmd() *cli.Command {
	return &cli.Command{
		Name:      "slice",
		Usage:     "Extract a slice of an array node and print a summary",
		ArgsUsage: "FILE NODE-PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "adapter",
				Usage: "Force a specific adapter instead of resolving by pattern and probe",
			},
			&cli.IntFlag{
				Name:  "rank",
				Value: 2,
				Usage: "Number of free axes (0, 1 or 2)",
			},
			&cli.StringSliceFlag{
				Name:  "fixed",
				Usage: "Override a fixed index as DIM=INDEX (repeatable)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 16,
				Usage: "Maximum number of elements to print",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("expected FILE and NODE-PATH arguments")
			}

			repo, err := newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			var opts []datakit.AttachOption
			if name := cmd.String("adapter"); name != "" {
				opts = append(opts, datakit.WithAdapter(name))
			}
			root, err := repo.Attach(cmd.Args().First(), opts...)
			if err != nil {
				return err
			}
			if err := root.Open(); err != nil {
				return err
			}

			node, err := lookup(root, cmd.Args().Get(1))
			if err != nil {
				return err
			}
			if !node.IsOpen() {
				if err := node.Open(); err != nil {
					return err
				}
			}

			coll := collect.NewCollector()
			if err := coll.Select(node, int(cmd.Int("rank"))); err != nil {
				return err
			}
			for _, spec := range cmd.StringSlice("fixed") {
				dim, idx, err := parseFixed(spec)
				if err != nil {
					return err
				}
				if err := coll.SetFixedIndex(dim, idx); err != nil {
					return err
				}
			}

			out, expr, err := coll.Materialize()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "node:  %s\n", node.PathString())
			fmt.Fprintf(cmd.Writer, "slice: %s\n", expr)
			fmt.Fprintf(cmd.Writer, "shape: %v  dtype: %s\n", out.Shape, out.DType)
			fmt.Fprintf(cmd.Writer, "data:  %s\n", preview(out.Data, int(cmd.Int("limit"))))
			return nil
		},
	}
}

// lookup walks a /-separated path below root, expanding groups on the way.
func lookup(root *datakit.Node, path string) (*datakit.Node, error) {
	node := root
	for _, name := range strings.Split(strings.Trim(path, "/"), "/") {
		if name == "" {
			continue
		}
		if !node.IsOpen() {
			if err := node.Open(); err != nil {
				return nil, err
			}
		}
		var next *datakit.Node
		for _, child := range node.Children() {
			if child.Name() == name {
				next = child
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("%s: no child %q", node.PathString(), name)
		}
		node = next
	}
	return node, nil
}

func parseFixed(spec string) (int, int, error) {
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad --fixed value %q, want DIM=INDEX", spec)
	}
	dim, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad --fixed dimension %q", parts[0])
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad --fixed index %q", parts[1])
	}
	return dim, idx, nil
}

// preview formats up to limit leading elements of a flat slice.
func preview(data any, limit int) string {
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice {
		return fmt.Sprint(data)
	}
	n := rv.Len()
	truncated := false
	if limit > 0 && n > limit {
		n = limit
		truncated = true
	}
	parts := make([]string, 0, n+1)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprint(rv.Index(i).Interface()))
	}
	if truncated {
		parts = append(parts, "...")
	}
	return "[" + strings.Join(parts, " ") + "]"
}
