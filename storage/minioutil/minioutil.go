package minioutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/minio/madmin-go"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	minio "github.com/minio/minio/cmd"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/ckpt/storage"
	"github.com/wkalt/ckpt/util/testutils"
)

/*
Package minioutil runs an in-process minio server, so the S3 provider and the
archive can be tested against real S3 semantics without external services.
One server is shared by every store a test asks for; each store gets its own
bucket.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	rootUser     = "minioadmin"
	rootPassword = "minioadmin"
	startTimeout = 10 * time.Second
)

// Server is a running minio server.
type Server struct {
	Addr   string
	Client *mclient.Client

	admin   *madmin.AdminClient
	dataDir string
	buckets int
}

// StartServer starts a server on a free port. It is stopped when the test
// finishes.
func StartServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	port, err := testutils.GetOpenPort()
	require.NoError(t, err)
	dataDir, err := os.MkdirTemp("", "ckpt-minio")
	require.NoError(t, err)

	s := &Server{
		Addr:    fmt.Sprintf("localhost:%d", port),
		dataDir: dataDir,
	}
	s.admin, err = madmin.New(s.Addr, rootUser, rootPassword, false)
	require.NoError(t, err)
	go minio.Main([]string{"minio", "server", "--quiet", "--address", s.Addr, dataDir})
	require.NoError(t, s.waitReady(ctx))

	s.Client, err = mclient.New(s.Addr, &mclient.Options{
		Creds: credentials.NewStaticV4(rootUser, rootPassword, ""),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.stop(t) })
	return s
}

func (s *Server) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		_, err := s.admin.ServerInfo(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Join(fmt.Errorf("minio server at %s did not start", s.Addr), err)
		case <-ticker.C:
		}
	}
}

// Store creates a fresh bucket and returns an S3 provider over it.
func (s *Server) Store(t *testing.T) storage.Provider {
	t.Helper()
	s.buckets++
	bucket := fmt.Sprintf("ckpt-test-%d", s.buckets)
	require.NoError(t, s.Client.MakeBucket(context.Background(), bucket, mclient.MakeBucketOptions{}))
	return storage.NewS3Store(s.Client, bucket)
}

// stop removes the data directory and stops the server. minio exits the
// process when it stops, so the stop is delayed until the test binary is
// done with it. Only one server can run per test binary.
func (s *Server) stop(t *testing.T) {
	if err := os.RemoveAll(s.dataDir); err != nil {
		t.Log(err)
	}
	go func() {
		time.Sleep(5 * time.Second)
		_ = s.admin.ServiceStop(context.Background())
	}()
}
