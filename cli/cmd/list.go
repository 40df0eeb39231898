package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/wkalt/ckpt/cli/util"
)

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List cataloged pushes whose name matches a glob pattern",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cat, done := openCatalog(ctx)
		defer done()
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}
		entries, err := cat.List(ctx, pattern)
		checkErr(err)
		table := util.EntryTable(entries)
		if util.StdoutRedirected() {
			table.WriteColumns(os.Stdout)
			return
		}
		table.Print(os.Stdout, util.TermWidth())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&catalogPath, "catalog", "ckpt.db", "Catalog database location")
}
