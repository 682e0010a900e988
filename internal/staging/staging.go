// Package staging fetches scraped batch objects from the object store
// the scraping jobs deliver them to. It is a thin input adapter: the
// engine only ever sees the batch bytes.
package staging

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Reader fetches staged batch objects by key.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete consumes a batch after a committed run.
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Driver         string
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	BaseDir        string
}

// FromEnv reads staging settings from STAGING_* variables; the viper
// config takes precedence when both are set.
func FromEnv() Config {
	c := Config{
		Driver:    os.Getenv("STAGING_DRIVER"),
		Bucket:    os.Getenv("STAGING_BUCKET"),
		Region:    os.Getenv("STAGING_REGION"),
		Endpoint:  os.Getenv("STAGING_ENDPOINT"),
		AccessKey: os.Getenv("STAGING_ACCESS_KEY"),
		SecretKey: os.Getenv("STAGING_SECRET_KEY"),
		BaseDir:   os.Getenv("STAGING_BASE_DIR"),
	}
	if v := strings.ToLower(os.Getenv("STAGING_FORCE_PATH_STYLE")); v == "true" || v == "1" || v == "yes" {
		c.ForcePathStyle = true
	}
	return c
}

func Validate(c Config) error {
	switch strings.ToLower(c.Driver) {
	case "s3":
		if c.Bucket == "" {
			return errors.New("bucket required for s3 driver")
		}
		// credentials via env (AWS_ACCESS_KEY_ID/SECRET) or IAM
	case "oss":
		if c.Bucket == "" {
			return errors.New("bucket required for oss driver")
		}
		if c.Endpoint == "" {
			return errors.New("endpoint required for oss driver")
		}
		if c.AccessKey == "" || c.SecretKey == "" {
			return errors.New("access_key/secret_key required for oss driver")
		}
	case "cos":
		if c.Bucket == "" {
			return errors.New("bucket required for cos driver")
		}
		if c.Region == "" && c.Endpoint == "" {
			return errors.New("region or endpoint required for cos driver")
		}
		if c.AccessKey == "" || c.SecretKey == "" {
			return errors.New("access_key/secret_key required for cos driver")
		}
	case "file":
		if c.BaseDir == "" {
			return errors.New("base_dir required for file driver")
		}
		if err := os.MkdirAll(c.BaseDir, 0o755); err != nil {
			return fmt.Errorf("ensure base_dir: %w", err)
		}
	case "":
		return errors.New("staging driver not set")
	default:
		return fmt.Errorf("unknown staging driver: %s", c.Driver)
	}
	return nil
}

// Open returns a Reader for the configured driver.
func Open(ctx context.Context, c Config) (Reader, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	switch strings.ToLower(c.Driver) {
	case "s3":
		return openBlob(ctx, buildS3URL(c))
	case "file":
		return openBlob(ctx, buildFileURL(c))
	case "oss":
		return openOSS(ctx, c)
	case "cos":
		return openCOS(ctx, c)
	}
	return nil, fmt.Errorf("unknown staging driver: %s", c.Driver)
}

// sanitizeKey prevents path traversal.
func sanitizeKey(key string) string {
	key = filepath.ToSlash(key)
	key = strings.TrimLeft(key, "/")
	parts := strings.Split(key, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "/")
}

// buildS3URL constructs a gocloud s3 URL with query params.
func buildS3URL(c Config) string {
	u := url.URL{Scheme: "s3", Host: c.Bucket}
	q := url.Values{}
	if c.Region != "" {
		q.Set("region", c.Region)
	}
	if c.Endpoint != "" {
		q.Set("endpoint", c.Endpoint)
	}
	if c.ForcePathStyle {
		q.Set("s3ForcePathStyle", "true")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func buildFileURL(c Config) string {
	abs, err := filepath.Abs(c.BaseDir)
	if err != nil {
		abs = c.BaseDir
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
