package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3 struct {
	root     string
	bucket   string
	s3Client *s3.Client
}

func newS3(bucket, root string, s3Client *s3.Client) *S3 {
	return &S3{
		bucket:   bucket,
		root:     root,
		s3Client: s3Client,
	}
}

func (s *S3) key(name string) string {
	return strings.TrimPrefix(path.Join(s.root, name), "/")
}

func (s *S3) Close() error {
	return nil
}

func (s *S3) Sub(dir string) (Storage, error) {
	return newS3(s.bucket, path.Join(s.root, dir), s.s3Client), nil
}

func (s *S3) ReadFile(ctx context.Context, name string) ([]byte, error) {
	res, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		return nil, err
	}
	defer res.Body.Close()

	return io.ReadAll(res.Body)
}

// WriteFile relies on PutObject being atomic for a single key.
func (s *S3) WriteFile(ctx context.Context, name string, data []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   bytes.NewReader(data),
	})
	return err
}

// AppendFile is a read-modify-write; callers serialize appends to the same object.
func (s *S3) AppendFile(ctx context.Context, name string, data []byte) (bool, error) {
	existing, err := s.ReadFile(ctx, name)
	created := false
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		created = true
	}
	return created, s.WriteFile(ctx, name, append(existing, data...))
}

func (s *S3) List(ctx context.Context, dir string) ([]string, error) {
	prefix := s.key(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	names := []string{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *S3) Remove(ctx context.Context, name string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}
