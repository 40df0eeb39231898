package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/cli/util"
	"github.com/wkalt/ckpt/index"
)

var (
	inspectJSON      bool
	inspectNodes     bool
	inspectTraceType string
)

var depthColors = []*color.Color{
	color.New(color.FgRed),
	color.New(color.FgBlue),
	color.New(color.FgYellow),
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgMagenta),
}

type fileSummary struct {
	Name   string            `json:"name"`
	Size   int64             `json:"size"`
	Header *index.FileHeader `json:"header"`
}

type inspectOutput struct {
	Dir   string           `json:"dir"`
	Files []fileSummary    `json:"files"`
	Nodes []index.NodeInfo `json:"nodes,omitempty"`
}

func readSummaries(dir string) ([]fileSummary, error) {
	summaries := []fileSummary{}
	for _, name := range []string{index.BTreeFileName, index.FlatArrayFileName} {
		path := filepath.Join(dir, name)
		stat, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		h, err := index.ReadHeader(path)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, fileSummary{Name: name, Size: stat.Size(), Header: h})
	}
	return summaries, nil
}

func readNodes(ctx context.Context, dir string, tt *checkpoint.TraceType) ([]index.NodeInfo, error) {
	idx, err := index.NewBTreeIndex(ctx, dir, tt)
	if err != nil {
		return nil, err
	}
	defer idx.Dispose(ctx)
	nodes := []index.NodeInfo{}
	err = idx.Tree().Walk(ctx, func(n index.NodeInfo) error {
		nodes = append(nodes, n)
		return nil
	})
	return nodes, err
}

func printInspect(out inspectOutput) {
	bold := color.New(color.Bold)
	bold.Println(out.Dir)
	for _, f := range out.Files {
		h := f.Header
		status := color.GreenString("committed")
		if !h.Valid() {
			status = color.RedString("uncommitted")
		}
		fmt.Printf("  %s (%s, %s)\n", f.Name, util.HumanBytes(f.Size), status)
		fmt.Printf("    version:     %d.%d\n", h.Version, h.SubVersion)
		fmt.Printf("    checkpoints: %d\n", h.Size)
		fmt.Printf("    events:      %d\n", h.NbEvents)
		fmt.Printf("    time range:  %s\n", h.TimeRange)
	}
	for _, n := range out.Nodes {
		c := depthColors[n.Depth%len(depthColors)]
		space := strings.Repeat("  ", n.Depth+1)
		first, last := "", ""
		if len(n.Entries) > 0 {
			first = n.Entries[0].Timestamp.String()
			last = n.Entries[len(n.Entries)-1].Timestamp.String()
		}
		kind := "inner"
		if len(n.Children) == 0 {
			kind = "leaf"
		}
		c.Printf("%s@%d %s %d entries [%s, %s]\n", space, n.Offset, kind, len(n.Entries), first, last)
	}
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [dir]",
	Short: "Inspect the files of a checkpoint index",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		dir := args[0]
		summaries, err := readSummaries(dir)
		checkErr(err)
		out := inspectOutput{Dir: dir, Files: summaries}
		if inspectNodes {
			for _, s := range summaries {
				if !s.Header.Valid() {
					bailf("%s is not committed; opening it would reset the index", s.Name)
				}
			}
			tt, err := checkpoint.LookupTraceType(inspectTraceType)
			checkErr(err)
			out.Nodes, err = readNodes(ctx, dir, tt)
			checkErr(err)
		}
		if inspectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			checkErr(enc.Encode(out))
			return
		}
		color.NoColor = color.NoColor || util.StdoutRedirected()
		printInspect(out)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVarP(&inspectJSON, "json", "j", false, "Print JSON")
	inspectCmd.Flags().BoolVarP(&inspectNodes, "nodes", "n", false, "Print the B-tree nodes")
	inspectCmd.Flags().StringVarP(&inspectTraceType, "trace-type", "t", "long", "Trace type of the index (long, pair)")
}
