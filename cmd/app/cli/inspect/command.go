package inspect

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"exusiai.dev/seqwindow/internal/core/packager"
	"exusiai.dev/seqwindow/internal/service"
)

type CommandDeps struct {
	fx.In

	InspectService *service.Inspect
}

func Command(depsFn func() (CommandDeps, error)) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print shapes, label rates, feature order and statistics of a dataset archive",
		ArgsUsage: "<dataset.npz>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the summary as JSON"},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return cli.Exit("inspect takes exactly one archive path", 2)
			}
			deps, err := depsFn()
			if err != nil {
				return err
			}
			summary, err := deps.InspectService.Summarize(ctx.Args().First())
			if err != nil {
				return errors.Wrap(err, "failed to inspect archive")
			}
			if ctx.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			return Print(os.Stdout, summary)
		},
	}
}

// Print writes a human readable summary.
func Print(w io.Writer, s *packager.Summary) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "build id:    %s\n", s.BuildID)
	fmt.Fprintf(&sb, "X:           %v (window %d, horizon %d)\n", s.Shape, s.Window, s.Horizon)
	fmt.Fprintf(&sb, "sessions:    %d\n", s.Sessions)
	fmt.Fprintf(&sb, "splits:      train %d, val %d, test %d\n", s.SplitCounts["train"], s.SplitCounts["val"], s.SplitCounts["test"])
	fmt.Fprintf(&sb, "norm scope:  %s\n", s.NormScope)

	sb.WriteString("labels:\n")
	for _, l := range s.Labels {
		fmt.Fprintf(&sb, "  %-14s mean %.4f over %d\n", l.Name, l.Mean, l.Count)
	}

	sb.WriteString("features:\n")
	for i, name := range s.FeatureCols {
		stats, ok := s.NormStats[name]
		if !ok {
			fmt.Fprintf(&sb, "  %2d %s\n", i, name)
			continue
		}
		fmt.Fprintf(&sb, "  %2d %-16s mean %12.4f std %12.4f\n", i, name, stats.Mean, stats.Std)
	}

	if extra := unlistedStats(s); len(extra) > 0 {
		fmt.Fprintf(&sb, "stats for unlisted features: %s\n", strings.Join(extra, ", "))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func unlistedStats(s *packager.Summary) []string {
	listed := make(map[string]bool, len(s.FeatureCols))
	for _, name := range s.FeatureCols {
		listed[name] = true
	}
	var extra []string
	for name := range s.NormStats {
		if !listed[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return extra
}
