package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"songplay_etl/internal/config"
)

// S3Store keeps objects below a prefix of an S3 bucket.
type S3Store struct {
	s3Client   *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
	bucket     string
	// prefix is empty or ends in '/'
	prefix string
}

// NewS3Store opens a store on bucket below prefix using a static-credential session.
func NewS3Store(awsCfg config.AWSConfig, bucket, prefix string) (*S3Store, error) {
	cfg := &aws.Config{
		Region: aws.String(awsCfg.Region),
	}
	if awsCfg.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(awsCfg.AccessKeyID, awsCfg.SecretAccessKey, "")
	}
	if awsCfg.Endpoint != "" {
		cfg.Endpoint = aws.String(awsCfg.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3Store{
		s3Client:   s3.New(sess),
		downloader: s3manager.NewDownloader(sess),
		uploader:   s3manager.NewUploader(sess),
		bucket:     bucket,
		prefix:     prefix,
	}, nil
}

func (s *S3Store) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := s.s3Client.ListObjectsPagesWithContext(ctx,
		&s3.ListObjectsInput{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(s.key(prefix)),
		},
		func(page *s3.ListObjectsOutput, lastPage bool) bool {
			for _, obj := range page.Contents {
				key := strings.TrimPrefix(aws.StringValue(obj.Key), s.prefix)
				// skip directory placeholders
				if key == "" || strings.HasSuffix(key, "/") {
					continue
				}
				objects = append(objects, Object{Key: key, Size: aws.Int64Value(obj.Size)})
			}
			return !lastPage
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in %s: %w", s.bucket, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	buffer := &aws.WriteAtBuffer{}
	_, err := s.downloader.DownloadWithContext(ctx, buffer,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(key)),
		})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	return buffer.Bytes(), nil
}

// Put uploads body and verifies the object is visible with a HEAD request.
func (s *S3Store) Put(ctx context.Context, key string, body io.ReadSeeker, meta map[string]string) error {
	result, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key(key)),
		Body:     body,
		Metadata: aws.StringMap(meta),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	slog.Debug("Uploaded object", "key", key, "location", result.Location)

	_, err = s.s3Client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return fmt.Errorf("upload verification failed for %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) DeleteAll(ctx context.Context, prefix string) error {
	if strings.Trim(prefix, "/") == "" {
		return errors.New("refusing to delete the store root")
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	iter := s3manager.NewDeleteListIterator(s.s3Client, &s3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	if err := s3manager.NewBatchDeleteWithClient(s.s3Client).Delete(ctx, iter); err != nil {
		return fmt.Errorf("failed to delete objects under %s: %w", prefix, err)
	}
	return nil
}

func (s *S3Store) key(key string) string {
	return s.prefix + strings.TrimPrefix(key, "/")
}
