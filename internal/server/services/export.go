package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmaksimov/homesense/internal/common"
	sc "github.com/vmaksimov/homesense/internal/server/config"
	"github.com/vmaksimov/homesense/internal/server/models"
	"github.com/vmaksimov/homesense/internal/server/repositories/repomanager"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// exportLimit bounds a single archive snapshot.
const exportLimit = 10000

// Seams for testing the AWS SDK calls without a real endpoint.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	s3PutObject = func(ctx context.Context, client *s3.Client, input *s3.PutObjectInput) error {
		_, err := client.PutObject(ctx, input)
		return err
	}

	s3PresignGetObject = func(ctx context.Context, client *s3.PresignClient, input *s3.GetObjectInput, expires time.Duration) (string, error) {
		req, err := client.PresignGetObject(ctx, input, s3.WithPresignExpires(expires))
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}
)

// ExportResult describes one archived snapshot.
type ExportResult struct {
	Key          string `json:"key"`
	DownloadURL  string `json:"download_url"`
	ReadingCount int    `json:"reading_count"`
}

type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, config *sc.Config) *ExportService {
	return &ExportService{db: db, repomanager: m, config: config}
}

// exportStorageKey builds a per-tenant, date-partitioned object key.
func exportStorageKey(tenantID string) string {
	d := timeNow()
	return fmt.Sprintf("exports/%s/%d/%d/%d/%v.json", tenantID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ExportService) getS3Client() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return client, nil
}

// Export snapshots the tenant's matching readings into one JSON object
// on the archive bucket and returns a time-limited download link.
// The snapshot is a copy: readings stay in the store untouched.
func (s *ExportService) Export(ctx context.Context, tenantID string, filter models.ReadingFilter) (*ExportResult, error) {

	filter.Limit = exportLimit

	repo := s.repomanager.Readings(s.db)
	result, err := repo.Select(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no readings match the export window", common.ErrorNotFound)
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("error marshalling export: %w", err)
	}

	client, err := s.getS3Client()
	if err != nil {
		return nil, fmt.Errorf("error creating s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := exportStorageKey(tenantID)
	contentType := "application/json"

	err = s3PutObject(ctx, client, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}

	url, err := s3PresignGetObject(ctx, newS3PresignClient(client), &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s.config.ExportURLValidity)
	if err != nil {
		return nil, fmt.Errorf("error presigning export url: %w", err)
	}

	return &ExportResult{Key: key, DownloadURL: url, ReadingCount: len(result)}, nil
}
