package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmined/s3mirror/internal/blob"
	"github.com/openmined/s3mirror/internal/httpsource"
	"github.com/openmined/s3mirror/internal/utils"
	"github.com/spf13/viper"
)

const (
	SourceHTML     = "html"
	SourceManifest = "manifest"
	SourceBucket   = "bucket"
)

var (
	home, _         = os.UserHomeDir()
	DefaultDir      = filepath.Join(home, ".s3mirror")
	DefaultLockFile = filepath.Join(os.TempDir(), "s3mirror.lock")
)

var (
	ErrNoSourceURL        = errors.New("config: source url missing")
	ErrInvalidSourceURL   = errors.New("config: source url must be an absolute http(s) url")
	ErrUnknownSourceType  = errors.New("config: unknown source type")
	ErrNoSourceBucket     = errors.New("config: source bucket missing")
	ErrInvalidLogLevel    = errors.New("config: invalid log level")
	ErrNoBucket           = blob.ErrNoBucket
	ErrPartialCredentials = blob.ErrPartialCredentials
)

type SourceConfig struct {
	Type            string
	URL             string
	Bucket          string
	Prefix          string
	UserAgent       string
	ListingTimeout  time.Duration
	DownloadTimeout time.Duration
}

type FetchConfig struct {
	URL          string
	Key          string
	AllowNonJSON bool
}

type Config struct {
	Source       SourceConfig
	Fetch        FetchConfig
	Blob         blob.S3BlobConfig
	Prefix       string
	DryRun       bool
	VerifyDryRun bool
	LogLevel     string
	LogFile      string
	LockFile     string
	Path         string
}

// SetDefaults registers defaults on v. Credentials deliberately have none.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source_type", SourceHTML)
	v.SetDefault("backend", blob.BackendS3)
	v.SetDefault("region", blob.DefaultRegion)
	v.SetDefault("listing_timeout", httpsource.DefaultListingTimeout)
	v.SetDefault("download_timeout", httpsource.DefaultDownloadTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("lock_file", DefaultLockFile)
}

// FromViper reads a Config out of flat viper keys. Flags, S3MIRROR_* env and the
// config file all land in the same key space.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Source: SourceConfig{
			Type:            strings.ToLower(v.GetString("source_type")),
			URL:             v.GetString("source"),
			Bucket:          v.GetString("source_bucket"),
			Prefix:          v.GetString("source_prefix"),
			UserAgent:       v.GetString("user_agent"),
			ListingTimeout:  v.GetDuration("listing_timeout"),
			DownloadTimeout: v.GetDuration("download_timeout"),
		},
		Fetch: FetchConfig{
			URL:          v.GetString("url"),
			Key:          v.GetString("key"),
			AllowNonJSON: v.GetBool("allow_non_json"),
		},
		Blob: blob.S3BlobConfig{
			Backend:       strings.ToLower(v.GetString("backend")),
			BucketName:    v.GetString("bucket"),
			Region:        v.GetString("region"),
			AccessKey:     v.GetString("access_key"),
			SecretKey:     v.GetString("secret_key"),
			SessionToken:  v.GetString("session_token"),
			Endpoint:      v.GetString("endpoint"),
			UseAccelerate: v.GetBool("use_accelerate"),
		},
		Prefix:       v.GetString("prefix"),
		DryRun:       v.GetBool("dry_run"),
		VerifyDryRun: v.GetBool("verify_dry_run"),
		LogLevel:     v.GetString("log_level"),
		LogFile:      v.GetString("log_file"),
		LockFile:     v.GetString("lock_file"),
		Path:         v.ConfigFileUsed(),
	}
}

// ValidateSync checks everything the mirror command needs before any network call.
func (c *Config) ValidateSync() error {
	if err := c.validateCommon(); err != nil {
		return err
	}

	switch c.Source.Type {
	case SourceHTML, SourceManifest:
		if c.Source.URL == "" {
			return ErrNoSourceURL
		}
		if !utils.IsValidURL(c.Source.URL) {
			return fmt.Errorf("%w: %q", ErrInvalidSourceURL, c.Source.URL)
		}
	case SourceBucket:
		if c.Source.Bucket == "" {
			return ErrNoSourceBucket
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownSourceType, c.Source.Type)
	}
	return nil
}

// ValidateFetch checks the snapshot command's inputs.
func (c *Config) ValidateFetch() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.Fetch.URL == "" {
		return ErrNoSourceURL
	}
	if !utils.IsValidURL(c.Fetch.URL) {
		return fmt.Errorf("%w: %q", ErrInvalidSourceURL, c.Fetch.URL)
	}
	return nil
}

func (c *Config) validateCommon() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return c.Blob.Validate()
}

// ParseLogLevel accepts debug, info, warn and error (case-insensitive). Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w %q", ErrInvalidLogLevel, s)
	}
	return level, nil
}
