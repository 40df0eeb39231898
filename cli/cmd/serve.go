package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/wkalt/ckpt/service"
	"github.com/wkalt/ckpt/util/log"
)

var (
	servePort           int
	serveDataDir        string
	serveTraceType      string
	serveInterval       int64
	serveNodeCacheSize  int
	serveAllowedOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve seeks over HTTP",
	Long: `Serve seeks against the indexes under --data-dir. With storage flags,
the latest push of every cataloged name missing locally is pulled at startup.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		level, err := log.ParseLevel(logLevel)
		checkErr(err)
		opts := []service.Option{
			service.WithPort(servePort),
			service.WithDataDir(serveDataDir),
			service.WithDatabasePath(catalogPath),
			service.WithLogLevel(level),
			service.WithTraceType(serveTraceType),
			service.WithCheckpointInterval(serveInterval),
			service.WithNodeCacheSize(serveNodeCacheSize),
		}
		if store := storageProvider(); store != nil {
			opts = append(opts, service.WithStorageProvider(store))
		}
		if len(serveAllowedOrigins) > 0 {
			opts = append(opts, service.WithAllowedOrigins(serveAllowedOrigins))
		}
		if err := service.NewCkptService().Start(ctx, opts...); err != nil {
			bailf("Shutdown error: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addStorageFlags(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8089, "Port to listen on")
	serveCmd.Flags().StringVarP(&serveDataDir, "data-dir", "d", "data", "Directory of served indexes")
	serveCmd.Flags().StringVarP(&serveTraceType, "trace-type", "t", "long", "Trace type of the served indexes")
	serveCmd.Flags().Int64VarP(&serveInterval, "interval", "i", 1000, "Default events between checkpoints")
	serveCmd.Flags().IntVarP(&serveNodeCacheSize, "node-cache-size", "c", 64, "B-tree nodes cached per index")
	serveCmd.Flags().StringSliceVarP(&serveAllowedOrigins, "allowed-origins", "o", []string{}, "Allowed origins")
}
