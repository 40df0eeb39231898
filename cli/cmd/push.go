package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wkalt/ckpt/archive"
	"github.com/wkalt/ckpt/catalog"
)

var pushCmd = &cobra.Command{
	Use:   "push [dir] [name]",
	Short: "Push a checkpoint index to an object store",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustStorageProvider()
		cat, done := openCatalog(ctx)
		defer done()
		m, err := archive.Push(ctx, store, args[0], args[1])
		checkErr(err)
		h := m.Files[0].Header
		checkErr(cat.Put(ctx, catalog.Entry{
			Name:        m.Name,
			ID:          m.ID,
			Prefix:      m.Prefix,
			Store:       store.String(),
			Checkpoints: int64(h.Size),
			NbEvents:    h.NbEvents,
			PushedAt:    m.PushedAt,
		}))
		fmt.Println(m.Prefix)
	},
}

var pullID string

var pullCmd = &cobra.Command{
	Use:   "pull [name] [dir]",
	Short: "Pull the latest push of a checkpoint index",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustStorageProvider()
		cat, done := openCatalog(ctx)
		defer done()
		var e catalog.Entry
		var err error
		if pullID != "" {
			e, err = cat.Get(ctx, args[0], pullID)
		} else {
			e, err = cat.Latest(ctx, args[0])
		}
		checkErr(err)
		_, err = archive.Pull(ctx, store, e.Prefix, args[1])
		checkErr(err)
		fmt.Printf("pulled %s into %s\n", e.Prefix, args[1])
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)

	addStorageFlags(pushCmd)
	addStorageFlags(pullCmd)
	pullCmd.Flags().StringVar(&pullID, "id", "", "Push ID (latest if unset)")
}
