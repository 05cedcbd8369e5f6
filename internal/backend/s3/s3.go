// Package s3 provides an S3-backed Backend using aws-sdk-go, grounded on
// the upstream S3 provider's session setup and object calls but trimmed to
// the operations a Backend needs.
package s3

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	obackend "github.com/openfs/openfs/internal/backend"
)

// Config names the pieces a Backend needs to reach a bucket.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // non-empty for S3-compatible stores (minio, etc.)
	AccessKeyID     string
	SecretAccessKey string
}

// Backend is an S3-backed Backend scoped to one bucket and key prefix.
type Backend struct {
	name   string
	bucket string
	prefix string
	client *s3.S3
}

// New dials bucket via the AWS SDK's standard session construction. It
// does not verify the bucket exists; the first operation against it will
// surface ConnectionFailed if the bucket or credentials are bad.
func New(name string, cfg Config) (*Backend, error) {
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	ses, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, obackend.ConnectionFailed(name, err)
	}
	return &Backend{
		name:   name,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		client: s3.New(ses),
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
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound", "404":
			return obackend.NotFound(p)
		case "AccessDenied", "Forbidden":
			return obackend.PermissionDenied(p)
		}
	}
	return obackend.ConnectionFailed(b.name, err)
}

func (b *Backend) Read(ctx context.Context, p string) ([]byte, error) {
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if err != nil {
		return nil, b.translate(err, p)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, obackend.IO(err)
	}
	return data, nil
}

func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
		Body:   bytes.NewReader(data),
	})
	return b.translate(err, p)
}

// Append is not a native S3 operation: it reads the current object,
// concatenates, and rewrites it. Concurrent appends to the same key race;
// callers needing atomicity should route through CompareAndSwap instead.
func (b *Backend) Append(ctx context.Context, p string, data []byte) error {
	existing, err := b.Read(ctx, p)
	if err != nil && !obackend.IsKind(err, obackend.KindNotFound) {
		return err
	}
	combined := append(existing, data...)
	return b.Write(ctx, p, combined)
}

func (b *Backend) Delete(ctx context.Context, p string) error {
	_, err := b.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
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
	out, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if err != nil {
		return obackend.Entry{}, b.translate(err, p)
	}
	e := obackend.Entry{Path: p, Name: path.Base(p), HasSize: true}
	if out.ContentLength != nil {
		e.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		e.Modified = *out.LastModified
		e.HasMod = true
	}
	return e, nil
}

func (b *Backend) List(ctx context.Context, p string) ([]obackend.Entry, error) {
	prefix := b.key(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var entries []obackend.Entry
	seenDirs := make(map[string]bool)
	err := b.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			if name == "" || seenDirs[name] {
				continue
			}
			seenDirs[name] = true
			entries = append(entries, obackend.Entry{Path: path.Join(p, name), Name: name, IsDir: true})
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" {
				continue
			}
			e := obackend.Entry{Path: path.Join(p, name), Name: name, HasSize: true}
			if obj.Size != nil {
				e.Size = *obj.Size
			}
			if obj.LastModified != nil {
				e.Modified = *obj.LastModified
				e.HasMod = true
			}
			entries = append(entries, e)
		}
		return true
	})
	if err != nil {
		return nil, b.translate(err, p)
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
	src := b.bucket + "/" + b.key(from)
	_, err := b.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		CopySource: aws.String(src),
		Key:        aws.String(b.key(to)),
	})
	if err != nil {
		return b.translate(err, from)
	}
	return b.Delete(ctx, from)
}

// ReadWithCASToken returns the object's ETag as the CAS token alongside
// its content.
func (b *Backend) ReadWithCASToken(ctx context.Context, p string) ([]byte, string, error) {
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if err != nil {
		return nil, "", b.translate(err, p)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", obackend.IO(err)
	}
	token := ""
	if out.ETag != nil {
		token = *out.ETag
	}
	return data, token, nil
}

// CompareAndSwap writes data iff the object's current ETag matches
// expected, using an IfMatch precondition (If-None-Match: * for create).
func (b *Backend) CompareAndSwap(ctx context.Context, p string, expected string, data []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
		Body:   bytes.NewReader(data),
	}
	if expected == "" {
		input.SetIfNoneMatch("*")
	} else {
		input.SetIfMatch(expected)
	}
	out, err := b.client.PutObjectWithContext(ctx, input)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == "PreconditionFailed" || aerr.Code() == "ConditionalRequestConflict") {
			return "", obackend.PreconditionFailed(expected, "")
		}
		return "", b.translate(err, p)
	}
	token := ""
	if out.ETag != nil {
		token = *out.ETag
	}
	return token, nil
}

var _ obackend.CASBackend = (*Backend)(nil)
