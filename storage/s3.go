package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"shopradar/config"
	"shopradar/models"
)

// S3Exporter archives batch results to S3-compatible storage (AWS, DO
// Spaces, R2). Products, price changes and alerts go out as JSONL,
// trend reports as JSON documents.
type S3Exporter struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Exporter creates an exporter from S3 settings.
func NewS3Exporter(ctx context.Context, cfg config.S3Config) (*S3Exporter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &S3Exporter{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (e *S3Exporter) Name() string { return "s3" }

// objectKey builds keys like prefix/products/2025/06/01/products-104500.jsonl
// so daily exports group naturally in bucket listings.
func (e *S3Exporter) objectKey(kind, ext string, ts time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s-%s.%s",
		e.prefix, kind, ts.Format("2006/01/02"), kind, ts.Format("150405"), ext)
}

func (e *S3Exporter) put(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func encodeJSONL[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (e *S3Exporter) putJSONL(ctx context.Context, kind string, data []byte) error {
	key := e.objectKey(kind, "jsonl", time.Now().UTC())
	return e.put(ctx, key, bytes.NewReader(data), "application/x-ndjson")
}

func (e *S3Exporter) WriteProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	data, err := encodeJSONL(products)
	if err != nil {
		return err
	}
	return e.putJSONL(ctx, "products", data)
}

func (e *S3Exporter) WritePriceChanges(ctx context.Context, events []models.PriceChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	data, err := encodeJSONL(events)
	if err != nil {
		return err
	}
	return e.putJSONL(ctx, "price-changes", data)
}

func (e *S3Exporter) WriteAlerts(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	data, err := encodeJSONL(alerts)
	if err != nil {
		return err
	}
	return e.putJSONL(ctx, "alerts", data)
}

func (e *S3Exporter) WriteTrendReport(ctx context.Context, report *models.TrendReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	key := e.objectKey("reports", "json", report.GeneratedAt)
	return e.put(ctx, key, bytes.NewReader(data), "application/json")
}
