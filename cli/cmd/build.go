package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/wkalt/ckpt/checkpoint"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/indexer"
	"github.com/wkalt/ckpt/mcap"
)

var (
	buildEvents   int64
	buildStep     int64
	buildInterval int64
	buildDegree   int
	buildMCAP     string
	buildTopics   []string
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Build a checkpoint index",
	Long: `Build a checkpoint index in dir. By default the trace is synthetic:
--events events spaced --step time units apart, located by their rank. With
--mcap the messages of an MCAP recording are indexed instead, located by log
time and ordinal.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		traceType := "long"
		if buildMCAP != "" {
			traceType = "pair"
		}
		tt, err := checkpoint.LookupTraceType(traceType)
		checkErr(err)
		opts := []index.Option{}
		if buildDegree > 0 {
			opts = append(opts, index.WithDegree(buildDegree))
		}
		idx, err := index.NewBTreeIndex(ctx, args[0], tt, opts...)
		checkErr(err)
		if !idx.CreatedFromScratch() {
			checkErr(idx.Dispose(ctx))
			bailf("%s already holds an index", args[0])
		}
		b := indexer.NewBuilder(idx, buildInterval)
		if buildMCAP != "" {
			f, err := os.Open(buildMCAP)
			checkErr(err)
			defer f.Close()
			err = mcap.Index(ctx, f, b, buildTopics...)
			if err != nil {
				checkErr(idx.Delete(ctx))
				bailf("failed to index %s: %s", buildMCAP, err)
			}
		} else {
			checkErr(indexer.Synthetic(ctx, b, buildEvents, buildStep))
		}
		b.Finish(ctx)
		checkErr(idx.Dispose(ctx))
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().Int64VarP(&buildEvents, "events", "n", 100000, "Number of synthetic events")
	buildCmd.Flags().Int64VarP(&buildStep, "step", "s", 10, "Time between synthetic events")
	buildCmd.Flags().Int64VarP(&buildInterval, "interval", "i", 1000, "Events between checkpoints")
	buildCmd.Flags().IntVarP(&buildDegree, "degree", "d", 0, "B-tree degree (derived from the node size if unset)")
	buildCmd.Flags().StringVarP(&buildMCAP, "mcap", "m", "", "MCAP recording to index")
	buildCmd.Flags().StringSliceVarP(&buildTopics, "topics", "t", nil, "MCAP topics to index (all if unset)")
}
