package writer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "satcatflow/config"
	"satcatflow/logger"
)

// ObjectPutter is the part of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies committed sink files to S3 under <prefix>/<run id>/.
type Uploader struct {
	client  ObjectPutter
	bucket  string
	prefix  string
	version string
	log     *logger.Log
}

// NewUploader builds an S3 client from cfg.Storage.S3.
func NewUploader(ctx context.Context, cfg *appconfig.Config) (*Uploader, error) {
	log := logger.GetLogger()
	s3cfg := cfg.Storage.S3

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(s3cfg.Region),
	}
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_uploader").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
		}
		o.UsePathStyle = s3cfg.PathStyle
	})

	log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"bucket":     s3cfg.Bucket,
		"region":     s3cfg.Region,
		"endpoint":   s3cfg.Endpoint,
		"path_style": s3cfg.PathStyle,
	}).Info("s3 uploader initialized")

	return NewUploaderWithClient(client, s3cfg.Bucket, s3cfg.Prefix, cfg.Satcatflow.Version), nil
}

// NewUploaderWithClient wires an existing client.
func NewUploaderWithClient(client ObjectPutter, bucket, prefix, version string) *Uploader {
	return &Uploader{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		version: version,
		log:     logger.GetLogger(),
	}
}

// ObjectKey returns the key a local file is stored under for runID.
func (u *Uploader) ObjectKey(runID, file string) string {
	return path.Join(u.prefix, runID, filepath.Base(file))
}

// Upload puts every file and stops at the first failure.
func (u *Uploader) Upload(ctx context.Context, runID string, files []string) error {
	for _, file := range files {
		if err := u.put(ctx, runID, file); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uploader) put(ctx context.Context, runID, file string) error {
	key := u.ObjectKey(runID, file)
	log := u.log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"operation": "upload_to_s3",
		"bucket":    u.bucket,
		"key":       key,
	})

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s for upload: %w", file, err)
	}
	defer f.Close()

	start := time.Now()
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
		Metadata: map[string]string{
			"run-id":             runID,
			"satcatflow-version": u.version,
		},
	})
	if err != nil {
		log.WithError(err).Error("upload failed")
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", u.bucket, err)
	}

	logger.LogPerformanceEntry(log, "s3_uploader", "put_object", time.Since(start), nil)
	return nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "application/json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
