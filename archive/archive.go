package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
	"github.com/wkalt/ckpt/index"
	"github.com/wkalt/ckpt/storage"
	"github.com/wkalt/ckpt/util"
	"github.com/wkalt/ckpt/util/log"
	"golang.org/x/sync/errgroup"
)

/*
Package archive copies closed checkpoint index directories to and from an
object store, so that an index built once can be shared by every reader of
the same trace.

A push uploads both index files under a fresh prefix <name>/<uuid>/, then a
manifest listing their sizes, murmur3 checksums and headers. The manifest is
written last; a prefix without one is an incomplete push. Only committed files
are pushed or pulled: a file whose version word reads as invalid was never
cleanly disposed and would be rebuilt by the first reader anyway.
*/

////////////////////////////////////////////////////////////////////////////////

// ManifestName is the object name of the manifest within a push prefix.
const ManifestName = "manifest.json"

var indexFiles = []string{index.BTreeFileName, index.FlatArrayFileName} // nolint:gochecknoglobals

// File describes one pushed index file.
type File struct {
	Name     string            `json:"name"`
	Size     int64             `json:"size"`
	Checksum uint64            `json:"checksum"`
	Header   *index.FileHeader `json:"header"`
}

// Manifest describes one push.
type Manifest struct {
	Name     string    `json:"name"`
	ID       string    `json:"id"`
	Prefix   string    `json:"prefix"`
	PushedAt time.Time `json:"pushedAt"`
	Files    []File    `json:"files"`
}

// Push uploads the index in dir under name and returns the manifest.
func Push(ctx context.Context, store storage.Provider, dir string, name string) (*Manifest, error) {
	m := &Manifest{
		Name:  name,
		ID:    uuid.New().String(),
		Files: make([]File, len(indexFiles)),
	}
	m.Prefix = path.Join(name, m.ID)
	ctx = log.AddTags(ctx, "prefix", m.Prefix)
	for i, file := range indexFiles {
		h, err := index.ReadHeader(filepath.Join(dir, file))
		if err != nil {
			return nil, err
		}
		if !h.Valid() {
			return nil, UncommittedFileError{Name: file}
		}
		m.Files[i] = File{Name: file, Header: h}
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := range m.Files {
		g.Go(func() error {
			return upload(gctx, store, filepath.Join(dir, m.Files[i].Name), path.Join(m.Prefix, m.Files[i].Name), &m.Files[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	m.PushedAt = time.Now().UTC()
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := store.Put(ctx, path.Join(m.Prefix, ManifestName), bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to store manifest: %w", err)
	}
	log.Infow(ctx, "pushed checkpoint index", "dir", dir, "store", store.String())
	return m, nil
}

func upload(ctx context.Context, store storage.Provider, src string, id string, file *File) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()
	hash := murmur3.New64()
	cw := util.NewCountingWriter(hash)
	if err := store.Put(ctx, id, io.TeeReader(f, cw)); err != nil {
		return fmt.Errorf("failed to upload %s: %w", src, err)
	}
	file.Size = cw.Count()
	file.Checksum = hash.Sum64()
	return nil
}

// ReadManifest reads the manifest of the push at prefix.
func ReadManifest(ctx context.Context, store storage.Provider, prefix string) (*Manifest, error) {
	r, err := store.Get(ctx, path.Join(prefix, ManifestName))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ManifestNotFoundError{Prefix: prefix}
		}
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}
	defer r.Close()
	m := &Manifest{}
	if err := json.NewDecoder(r).Decode(m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m, nil
}

// Pull downloads the push at prefix into dir, replacing any index there. The
// files are verified against the manifest before they are moved into place.
func Pull(ctx context.Context, store storage.Provider, prefix string, dir string) (*Manifest, error) {
	m, err := ReadManifest(ctx, store, prefix)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	for _, file := range m.Files {
		if err := checkRemoteVersion(ctx, store, path.Join(prefix, file.Name)); err != nil {
			return nil, err
		}
	}
	staged := make([]string, len(m.Files))
	defer func() {
		for _, tmp := range staged {
			if tmp != "" {
				_ = os.Remove(tmp)
			}
		}
	}()
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range m.Files {
		g.Go(func() error {
			tmp, err := download(gctx, store, path.Join(prefix, file.Name), dir, file)
			staged[i] = tmp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, file := range m.Files {
		if err := os.Rename(staged[i], filepath.Join(dir, file.Name)); err != nil {
			return nil, fmt.Errorf("failed to move %s into place: %w", file.Name, err)
		}
		staged[i] = ""
	}
	log.Infow(ctx, "pulled checkpoint index", "prefix", prefix, "dir", dir, "store", store.String())
	return m, nil
}

// checkRemoteVersion reads the version word of a remote index file.
func checkRemoteVersion(ctx context.Context, store storage.Provider, id string) error {
	r, err := store.GetRange(ctx, id, 0, 4)
	if err != nil {
		return fmt.Errorf("failed to read version of %s: %w", id, err)
	}
	defer r.Close()
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("failed to read version of %s: %w", id, err)
	}
	var version int32
	util.ReadI32(buf, &version)
	if version != index.Version {
		return UncommittedFileError{Name: id}
	}
	return nil
}

func download(ctx context.Context, store storage.Provider, id string, dir string, file File) (string, error) {
	r, err := store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", id, err)
	}
	defer r.Close()
	f, err := os.CreateTemp(dir, ".pull-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()
	hash := murmur3.New64()
	n, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		return f.Name(), fmt.Errorf("failed to download %s: %w", id, err)
	}
	if n != file.Size || hash.Sum64() != file.Checksum {
		return f.Name(), ChecksumMismatchError{Name: file.Name}
	}
	if err := f.Sync(); err != nil {
		return f.Name(), fmt.Errorf("failed to sync %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

// List returns the manifests of every complete push of name, oldest first.
func List(ctx context.Context, store storage.Provider, name string) ([]*Manifest, error) {
	ids, err := store.List(ctx, name+"/")
	if err != nil {
		return nil, err
	}
	manifests := []*Manifest{}
	for _, id := range ids {
		if path.Base(id) != ManifestName {
			continue
		}
		m, err := ReadManifest(ctx, store, path.Dir(id))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	slices.SortFunc(manifests, func(a, b *Manifest) int {
		return a.PushedAt.Compare(b.PushedAt)
	})
	return manifests, nil
}
