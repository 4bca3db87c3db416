package maintenance

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"

	"github.com/ehrlich-b/multipixel/internal/config"
	"github.com/ehrlich-b/multipixel/internal/logger"
	"github.com/ehrlich-b/multipixel/internal/room"
)

// backupRoom takes a consistent VACUUM INTO snapshot of rm's database,
// gzips it into cfg.Backup.Dir, and optionally uploads the result to S3
// (SPEC_FULL.md §11 "durable room backups"). Every run is tagged with a
// fresh correlation ID for log cross-referencing, the same role
// google/uuid plays for the teacher's machine/session identifiers.
func backupRoom(ctx context.Context, cfg *config.Config, rm *room.Room) error {
	runID := uuid.New().String()
	log := logger.Log.With("room", rm.Name, "backup_run", runID)

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("multipixel-%s-%s.db", rm.Name, runID))
	defer os.Remove(tmpPath)

	if err := rm.Backup(tmpPath); err != nil {
		return err
	}

	dir := cfg.Backup.Dir
	if dir == "" {
		dir = filepath.Join(cfg.DataDir, "backups")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("backup: create dir %s: %w", dir, err)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	destPath := filepath.Join(dir, fmt.Sprintf("%s-%s.db.gz", rm.Name, stamp))
	if err := gzipFile(tmpPath, destPath); err != nil {
		return fmt.Errorf("backup: gzip: %w", err)
	}
	log.Info("maintenance: snapshot written", "path", destPath)

	if cfg.Backup.S3 != nil {
		if err := uploadToS3(ctx, cfg.Backup.S3, destPath, rm.Name, stamp); err != nil {
			return fmt.Errorf("backup: s3 upload: %w", err)
		}
		log.Info("maintenance: uploaded to s3", "bucket", cfg.Backup.S3.Bucket)
	}
	return nil
}

// gzipFile compresses src into dst using pgzip's parallel deflate, matching
// the teacher pack's n-backup tool which names pgzip its default
// compression (internal/protocol/frames.go's CompressionGzip comment).
func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := pgzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// uploadToS3 uploads path to the configured bucket under key
// "<room>/<stamp>.db.gz". When cfg.Endpoint is set (S3-compatible storage)
// credentials are taken from AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY rather
// than the default chain, since most self-hosted S3-compatible endpoints
// aren't reachable via IMDS/SSO.
func uploadToS3(ctx context.Context, s3cfg *config.S3Config, path, room, stamp string) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s3cfg.Region)}
	if s3cfg.Endpoint != "" {
		accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = &s3cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	key := fmt.Sprintf("%s/%s.db.gz", room, stamp)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s3cfg.Bucket,
		Key:    &key,
		Body:   f,
	})
	return err
}
