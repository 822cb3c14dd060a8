// Package sessionstore persists the Telegram session file in S3-compatible
// object storage so the scraper survives restarts on ephemeral compute.
//
// Every operation degrades gracefully: losing session continuity only costs
// a re-authentication, so nothing here is allowed to fail the caller.
package sessionstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/blockedby/tgstats/internal/config"
	"github.com/blockedby/tgstats/internal/logger"
)

// s3API is the subset of the S3 client the store needs.
// Narrowed so tests can substitute a fake.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ClientFactory builds the S3 client. Overridable for testing.
type ClientFactory func(ctx context.Context, cfg *config.Config) (s3API, error)

// Store round-trips the local session file through object storage.
// The local file is a cache; the S3 object is the source of truth.
type Store struct {
	cfg *config.Config
	log *logger.Logger

	client        s3API
	clientFactory ClientFactory
	initialized   bool
}

// New creates a session store. Call Initialize before Download/Upload.
func New(cfg *config.Config) *Store {
	return &Store{
		cfg:           cfg,
		log:           logger.Get(),
		clientFactory: newS3Client,
	}
}

// SetClientFactory overrides S3 client creation (e.g. for testing).
func (s *Store) SetClientFactory(f ClientFactory) {
	s.clientFactory = f
}

// Initialize validates credentials and bucket reachability.
// Returns false (non-fatal) when credentials are missing or the bucket is
// unreachable; the scraper then runs with the local session file only.
func (s *Store) Initialize(ctx context.Context) bool {
	if s.cfg.S3AccessKeyID == "" || s.cfg.S3SecretAccessKey == "" || s.cfg.S3BucketName == "" {
		s.log.Warn().Msg("sessionstore: s3 credentials not provided, using local session storage")
		return false
	}

	client, err := s.clientFactory(ctx, s.cfg)
	if err != nil {
		s.log.Error().Err(err).Msg("sessionstore: s3 client initialization failed")
		return false
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.S3BucketName),
	}); err != nil {
		s.log.Error().Err(err).Str("bucket", s.cfg.S3BucketName).Msg("sessionstore: bucket not reachable")
		return false
	}

	s.client = client
	s.initialized = true
	s.log.Info().Str("bucket", s.cfg.S3BucketName).Msg("sessionstore: initialized")
	return true
}

// Available reports whether durable storage is usable.
func (s *Store) Available() bool {
	return s.initialized
}

// Download fetches the session file from S3 into the local cache path.
// Returns false when the store is uninitialized, the object does not exist
// (first run), or on any transport failure; the caller proceeds assuming
// no prior session.
func (s *Store) Download(ctx context.Context) bool {
	if !s.initialized {
		s.log.Warn().Msg("sessionstore: not initialized, using local session")
		return false
	}

	if err := os.MkdirAll(filepath.Dir(s.cfg.LocalSessionPath), 0755); err != nil {
		s.log.Error().Err(err).Msg("sessionstore: failed to create session directory")
		return false
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3BucketName),
		Key:    aws.String(s.cfg.S3SessionKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			s.log.Info().Msg("sessionstore: session file not found in s3, will create new one")
		} else {
			s.log.Error().Err(err).Msg("sessionstore: error downloading session")
		}
		return false
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		s.log.Error().Err(err).Msg("sessionstore: error reading session object")
		return false
	}

	if err := os.WriteFile(s.cfg.LocalSessionPath, data, 0600); err != nil {
		s.log.Error().Err(err).Msg("sessionstore: error writing local session file")
		return false
	}

	s.log.Info().Str("key", s.cfg.S3SessionKey).Msg("sessionstore: session downloaded from s3")
	return true
}

// Upload pushes the local session file to S3.
// Returns false when the store is uninitialized or the local file is missing.
func (s *Store) Upload(ctx context.Context) bool {
	if !s.initialized {
		s.log.Warn().Msg("sessionstore: not initialized, session stored locally only")
		return false
	}

	data, err := os.ReadFile(s.cfg.LocalSessionPath)
	if err != nil {
		s.log.Warn().Err(err).Msg("sessionstore: local session file not found, nothing to upload")
		return false
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.S3BucketName),
		Key:    aws.String(s.cfg.S3SessionKey),
		Body:   bytes.NewReader(data),
	}); err != nil {
		s.log.Error().Err(err).Msg("sessionstore: error uploading session")
		return false
	}

	s.log.Info().Str("key", s.cfg.S3SessionKey).Msg("sessionstore: session uploaded to s3")
	return true
}

// LocalPath returns the filesystem path of the session cache.
func (s *Store) LocalPath() string {
	return s.cfg.LocalSessionPath
}

// PurgeLocal removes the local session file. Best-effort security hygiene;
// failures are logged, never fatal.
func (s *Store) PurgeLocal() {
	if _, err := os.Stat(s.cfg.LocalSessionPath); err != nil {
		return
	}
	if err := os.Remove(s.cfg.LocalSessionPath); err != nil {
		s.log.Error().Err(err).Msg("sessionstore: error removing local session file")
		return
	}
	s.log.Info().Msg("sessionstore: local session file cleaned up")
}

// newS3Client builds the real S3 client from configuration.
func newS3Client(ctx context.Context, cfg *config.Config) (s3API, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.S3EndpointURL)
			// non-AWS endpoints (minio etc.) need path-style addressing
			o.UsePathStyle = true
		}
	})

	return client, nil
}
