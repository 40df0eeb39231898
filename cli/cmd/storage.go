package cmd

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3" // sqlite catalog
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/wkalt/ckpt/catalog"
	"github.com/wkalt/ckpt/storage"
)

var (
	catalogPath string

	// Directory storage provider options
	storeDir string

	// S3 storage provider options
	s3Endpoint  string
	s3AccessKey string
	s3SecretKey string
	s3Bucket    string
	s3UseTLS    bool
	s3Region    string
)

func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&catalogPath, "catalog", "ckpt.db", "Catalog database location")
	cmd.Flags().StringVar(&storeDir, "store-dir", "", "Object store directory (for directory storage)")
	cmd.Flags().StringVar(&s3Endpoint, "s3-endpoint", "", "S3 endpoint (for S3 storage)")
	cmd.Flags().StringVar(&s3AccessKey, "s3-access-key-id", "", "S3 access key ID (for S3 storage)")
	cmd.Flags().StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret key (for S3 storage)")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket (for S3 storage)")
	cmd.Flags().BoolVar(&s3UseTLS, "s3-tls", false, "Use TLS (for S3 storage)")
	cmd.Flags().StringVar(&s3Region, "s3-region", "", "S3 region")
}

func s3Requested() bool {
	return s3Endpoint != "" || s3AccessKey != "" || s3SecretKey != "" || s3Bucket != ""
}

// storageProvider returns the provider selected by the storage flags, or nil
// if none is selected.
func storageProvider() storage.Provider {
	if storeDir != "" && s3Requested() {
		bailf("cannot specify both --store-dir and S3 options")
	}
	if storeDir != "" {
		return storage.NewDirectoryStore(storeDir)
	}
	if !s3Requested() {
		return nil
	}
	mc, err := minio.New(s3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3AccessKey, s3SecretKey, ""),
		Secure: s3UseTLS,
		Region: s3Region,
	})
	if err != nil {
		bailf("error creating S3 client: %s", err)
	}
	return storage.NewS3Store(mc, s3Bucket)
}

func mustStorageProvider() storage.Provider {
	store := storageProvider()
	if store == nil {
		bailf("must specify either --store-dir or S3 options")
	}
	return store
}

func openCatalog(ctx context.Context) (catalog.Catalog, func()) {
	db, err := sql.Open("sqlite3", catalogPath+"?_journal=WAL&mode=rwc")
	checkErr(err)
	cat, err := catalog.NewSQLCatalog(ctx, db)
	checkErr(err)
	return cat, func() { db.Close() }
}
