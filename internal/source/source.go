// Package source opens ingestion input named by a path, "-" for standard
// input, or an s3://bucket/key URI.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JonMunkholm/dados/internal/config"
)

// Kind identifies where an input lives.
type Kind int

const (
	KindFile Kind = iota
	KindStdin
	KindS3
)

// Location is a parsed input reference.
type Location struct {
	Kind   Kind
	Path   string // local path for KindFile
	Bucket string
	Key    string
}

// Name is the file name reported for the load.
func (l Location) Name() string {
	switch l.Kind {
	case KindStdin:
		return "stdin"
	case KindS3:
		return path.Base(l.Key)
	default:
		return filepath.Base(l.Path)
	}
}

// Parse interprets ref as "-", an s3://bucket/key URI or a local path.
func Parse(ref string) (Location, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return Location{}, errors.New("empty source")
	case ref == "-":
		return Location{Kind: KindStdin}, nil
	case strings.HasPrefix(ref, "s3://"):
		bucket, key, _ := strings.Cut(strings.TrimPrefix(ref, "s3://"), "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Location{}, fmt.Errorf("invalid s3 source %q: want s3://bucket/key", ref)
		}
		return Location{Kind: KindS3, Bucket: bucket, Key: key}, nil
	}
	return Location{Kind: KindFile, Path: ref}, nil
}

// ObjectGetter is the part of the S3 client used to read objects.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens sources. The S3 client is created on first use.
type Opener struct {
	cfg   config.SourceConfig
	stdin io.Reader
	s3    ObjectGetter
}

// NewOpener returns an opener reading standard input from stdin.
func NewOpener(cfg config.SourceConfig, stdin io.Reader) *Opener {
	return &Opener{cfg: cfg, stdin: stdin}
}

// WithS3Client makes the opener use client for s3:// sources.
func (o *Opener) WithS3Client(client ObjectGetter) *Opener {
	o.s3 = client
	return o
}

// Open returns a reader for ref and the file name to report for it.
// The caller closes the reader.
func (o *Opener) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	loc, err := Parse(ref)
	if err != nil {
		return nil, "", err
	}

	switch loc.Kind {
	case KindStdin:
		return io.NopCloser(o.stdin), loc.Name(), nil
	case KindS3:
		rc, err := o.openS3(ctx, loc)
		if err != nil {
			return nil, "", err
		}
		return rc, loc.Name(), nil
	}

	f, err := os.Open(loc.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open source: %w", err)
	}
	return f, loc.Name(), nil
}

func (o *Opener) openS3(ctx context.Context, loc Location) (io.ReadCloser, error) {
	if o.s3 == nil {
		client, err := NewS3Client(ctx, o.cfg)
		if err != nil {
			return nil, err
		}
		o.s3 = client
	}

	out, err := o.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return out.Body, nil
}

// NewS3Client builds a client from the default AWS credential chain. A
// custom endpoint switches to path-style addressing for MinIO and similar.
func NewS3Client(ctx context.Context, cfg config.SourceConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, opts...), nil
}
