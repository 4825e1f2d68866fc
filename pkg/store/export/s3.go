package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

const DefaultRegion = "us-east-1"

// ObjectPutter is the part of the S3 client the exporter needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Exporter interface {
	// Export uploads a table and returns its object key.
	Export(ctx context.Context, runID string, table *domain.RatingTable) (string, error)
}

type s3Exporter struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Exporter(client ObjectPutter, bucket, prefix string) (Exporter, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &s3Exporter{client: client, bucket: bucket, prefix: prefix}, nil
}

// LoadConfig resolves AWS credentials from the default chain.
func LoadConfig(ctx context.Context, region string) (*awssdk.Config, error) {
	if region == "" {
		region = DefaultRegion
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return &awsCfg, nil
}

func NewS3Client(cfg awssdk.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}

func (e *s3Exporter) Export(ctx context.Context, runID string, table *domain.RatingTable) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		return "", err
	}

	key := ObjectKey(e.prefix, runID, table.Attribute)
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(e.bucket),
		Key:         awssdk.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: awssdk.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to %s: %w", key, e.bucket, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("bucket", e.bucket).
		Str("key", key).
		Int("rows", len(table.Rows)).
		Msg("exported rating table")
	return key, nil
}

// ObjectKey builds prefix/run/attribute-slug.csv, skipping empty parts.
func ObjectKey(prefix, runID, attribute string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	if runID != "" {
		parts = append(parts, runID)
	}
	parts = append(parts, slug(attribute)+".csv")
	return path.Join(parts...)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
