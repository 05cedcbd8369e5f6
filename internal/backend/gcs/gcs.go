// Package gcs provides a Google Cloud Storage-backed Backend using
// cloud.google.com/go/storage, grounded on the upstream GCS provider's
// bucket/object addressing and listing shape.
package gcs

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	obackend "github.com/openfs/openfs/internal/backend"
)

// Config names the pieces a Backend needs to reach a bucket.
type Config struct {
	Bucket string
	Prefix string
}

// Backend is a GCS-backed Backend scoped to one bucket and key prefix.
type Backend struct {
	name   string
	bucket *storage.BucketHandle
	prefix string
}

// New creates a storage.Client using application-default credentials and
// scopes this Backend to cfg.Bucket/cfg.Prefix.
func New(ctx context.Context, name string, cfg Config) (*Backend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, obackend.ConnectionFailed(name, err)
	}
	return &Backend{
		name:   name,
		bucket: client.Bucket(cfg.Bucket),
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) key(p string) string {
	p = strings.TrimPrefix(p, "/")
	if b.prefix == "" {
		return p
	}
	if p == "" {
		return b.prefix
	}
	return b.prefix + "/" + p
}

func (b *Backend) translate(err error, p string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return obackend.NotFound(p)
	}
	return obackend.ConnectionFailed(b.name, err)
}

func (b *Backend) Read(ctx context.Context, p string) ([]byte, error) {
	r, err := b.bucket.Object(b.key(p)).NewReader(ctx)
	if err != nil {
		return nil, b.translate(err, p)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, obackend.IO(err)
	}
	return data, nil
}

func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	w := b.bucket.Object(b.key(p)).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return obackend.IO(err)
	}
	if err := w.Close(); err != nil {
		return b.translate(err, p)
	}
	return nil
}

// Append emulates append by reading, concatenating, and rewriting the
// whole object: GCS objects are immutable once written.
func (b *Backend) Append(ctx context.Context, p string, data []byte) error {
	existing, err := b.Read(ctx, p)
	if err != nil && !obackend.IsKind(err, obackend.KindNotFound) {
		return err
	}
	return b.Write(ctx, p, append(existing, data...))
}

func (b *Backend) Delete(ctx context.Context, p string) error {
	err := b.bucket.Object(b.key(p)).Delete(ctx)
	return b.translate(err, p)
}

func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	_, err := b.Stat(ctx, p)
	if err != nil {
		if obackend.IsKind(err, obackend.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *Backend) Stat(ctx context.Context, p string) (obackend.Entry, error) {
	attrs, err := b.bucket.Object(b.key(p)).Attrs(ctx)
	if err != nil {
		return obackend.Entry{}, b.translate(err, p)
	}
	return obackend.Entry{
		Path: p, Name: path.Base(p), HasSize: true,
		Size: attrs.Size, Modified: attrs.Updated, HasMod: true,
	}, nil
}

func (b *Backend) List(ctx context.Context, p string) ([]obackend.Entry, error) {
	prefix := b.key(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var entries []obackend.Entry
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, b.translate(err, p)
		}
		if attrs.Prefix != "" {
			name := strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, prefix), "/")
			if name == "" {
				continue
			}
			entries = append(entries, obackend.Entry{Path: path.Join(p, name), Name: name, IsDir: true})
			continue
		}
		name := strings.TrimPrefix(attrs.Name, prefix)
		if name == "" {
			continue
		}
		entries = append(entries, obackend.Entry{
			Path: path.Join(p, name), Name: name, HasSize: true,
			Size: attrs.Size, Modified: attrs.Updated, HasMod: true,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (b *Backend) Rename(ctx context.Context, from, to string) error {
	src := b.bucket.Object(b.key(from))
	dst := b.bucket.Object(b.key(to))
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return b.translate(err, from)
	}
	return b.translate(src.Delete(ctx), from)
}

// ReadWithCASToken returns the object's generation number as the CAS
// token alongside its content.
func (b *Backend) ReadWithCASToken(ctx context.Context, p string) ([]byte, string, error) {
	obj := b.bucket.Object(b.key(p))
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, "", b.translate(err, p)
	}
	data, err := b.Read(ctx, p)
	if err != nil {
		return nil, "", err
	}
	return data, generationToken(attrs.Generation), nil
}

// CompareAndSwap writes data conditioned on the object's generation
// matching expected (0 / empty meaning "must not already exist").
func (b *Backend) CompareAndSwap(ctx context.Context, p string, expected string, data []byte) (string, error) {
	obj := b.bucket.Object(b.key(p))
	var cond storage.Conditions
	if expected == "" || expected == "0" {
		cond.DoesNotExist = true
	} else {
		gen, err := parseGenerationToken(expected)
		if err != nil {
			return "", obackend.PreconditionFailed(expected, "")
		}
		cond.GenerationMatch = gen
	}
	w := obj.If(cond).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", obackend.IO(err)
	}
	if err := w.Close(); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", obackend.PreconditionFailed(expected, "")
		}
		var gapiErr interface{ Code() int }
		if errors.As(err, &gapiErr) && gapiErr.Code() == 412 {
			return "", obackend.PreconditionFailed(expected, "")
		}
		return "", b.translate(err, p)
	}
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return "", b.translate(err, p)
	}
	return generationToken(attrs.Generation), nil
}

func generationToken(gen int64) string { return strconv.FormatInt(gen, 10) }

func parseGenerationToken(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

var _ obackend.CASBackend = (*Backend)(nil)
