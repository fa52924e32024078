package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// Content types for recording objects.
const (
	ContentTypeWebm = "audio/webm"
	ContentTypeMp3  = "audio/mpeg"
)

// Sentinel errors for conditions the pipeline treats as a tolerable race
// between upload and notification delivery, not as hard failures.
var (
	ErrObjectNotFound = errors.New("storage: object not found")
	ErrEmptyBody      = errors.New("storage: object has no body")
)

// Object is a fetched storage object: its bytes plus the user metadata that
// was attached at upload time.
type Object struct {
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint is an optional custom endpoint (for MinIO, LocalStack, etc.).
	Endpoint string
	// UsePathStyle enables path-style addressing (required for MinIO).
	UsePathStyle bool
}

// S3 provides object get/put with user metadata for the pipeline.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or env (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024 // 5MB parts
	})
	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// GetObject fetches an object's body and user metadata.
// Returns ErrObjectNotFound when the key does not exist and ErrEmptyBody when
// the object exists but holds no data.
func (s *S3) GetObject(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body %s/%s: %w", bucket, key, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrEmptyBody, bucket, key)
	}

	ct := ""
	if out.ContentType != nil {
		ct = *out.ContentType
	}
	return &Object{Body: body, ContentType: ct, Metadata: out.Metadata}, nil
}

// GetMetadata fetches only an object's user metadata (HEAD request).
// Returns ErrObjectNotFound when the key does not exist.
func (s *S3) GetMetadata(ctx context.Context, bucket, key string) (map[string]string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, fmt.Errorf("head object %s/%s: %w", bucket, key, err)
	}
	return out.Metadata, nil
}

// PutObject stores an object with content type and user metadata, encrypted
// at rest (AES256 server-side encryption, as the raw uploads are).
func (s *S3) PutObject(ctx context.Context, bucket, key, contentType string, body []byte, metadata map[string]string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String(contentType),
		Metadata:             metadata,
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	s.logger.Debug("object stored", zap.String("bucket", bucket), zap.String("key", key), zap.Int("size", len(body)))
	return nil
}
