package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// objectGetter is the subset of *s3.Client used by the loader.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader implements Loader for reading gzipped catalogue files from AWS S3.
type s3Loader struct {
	client objectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates a new S3-based catalogue loader.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	logger = logger.With().Str("component", "s3-coupon-loader").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 loader initialised")

	return newS3Loader(s3.NewFromConfig(cfg), bucket, logger), nil
}

func newS3Loader(client objectGetter, bucket string, logger zerolog.Logger) *s3Loader {
	return &s3Loader{client: client, bucket: bucket, logger: logger}
}

// Load reads a gzipped catalogue file from S3. key is the full object key,
// prefix included.
func (l *s3Loader) Load(ctx context.Context, key string) (*Catalogue, error) {
	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Msg("loading coupon file from S3")

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer result.Body.Close()

	catalogue, err := readCatalogue(ctx, result.Body, "s3://"+l.bucket+"/"+key)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("bucket", l.bucket).
			Str("key", key).
			Msg("error reading coupon file from S3")
		return nil, err
	}

	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Int("coupons_loaded", catalogue.Size()).
		Msg("coupon file loaded successfully from S3")

	return catalogue, nil
}

// fallbackLoader reads from S3 and falls back to the local copy of the same
// file when the object cannot be fetched. A fetched object that fails to
// decode is returned as an error; the local copy is not consulted.
type fallbackLoader struct {
	primary Loader
	local   Loader
	prefix  string
	useS3   bool
	logger  zerolog.Logger
}

// NewFallbackLoader wraps an S3 loader and a file loader. A nil s3Loader or
// s3Enabled=false reads only from disk.
func NewFallbackLoader(s3Loader, fileLoader Loader, s3Prefix string, s3Enabled bool, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		primary: s3Loader,
		local:   fileLoader,
		prefix:  s3Prefix,
		useS3:   s3Enabled && s3Loader != nil,
		logger:  logger.With().Str("component", "fallback-coupon-loader").Logger(),
	}
}

// Load reads s3Prefix+name from S3, or name from disk.
func (l *fallbackLoader) Load(ctx context.Context, name string) (*Catalogue, error) {
	if !l.useS3 {
		return l.local.Load(ctx, name)
	}

	key := l.prefix + name
	catalogue, err := l.primary.Load(ctx, key)
	switch {
	case err == nil:
		return catalogue, nil
	case errors.Is(err, ErrMalformed), ctx.Err() != nil:
		return nil, err
	}

	l.logger.Warn().
		Err(err).
		Str("s3_key", key).
		Str("file", name).
		Msg("S3 object unavailable, reading local catalogue")

	return l.local.Load(ctx, name)
}
