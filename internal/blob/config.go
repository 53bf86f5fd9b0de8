package blob

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openmined/s3mirror/internal/utils"
)

const (
	BackendS3     = "s3"
	BackendMinio  = "minio"
	BackendMemory = "memory"

	DefaultRegion = "us-east-1"
)

var (
	ErrNoBucket           = errors.New("blob: bucket name missing")
	ErrPartialCredentials = errors.New("blob: access key and secret key must be set together")
	ErrUnknownBackend     = errors.New("blob: unknown backend")
)

type S3BlobConfig struct {
	Backend       string `mapstructure:"backend"`
	BucketName    string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	SessionToken  string `mapstructure:"session_token"`
	Endpoint      string `mapstructure:"endpoint"`
	UseAccelerate bool   `mapstructure:"use_accelerate"`
}

// HasStaticCredentials reports whether an explicit key pair was configured.
// Without one the backend falls back to the ambient credential chain.
func (c *S3BlobConfig) HasStaticCredentials() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

func (c *S3BlobConfig) Validate() error {
	switch c.backend() {
	case BackendS3, BackendMinio, BackendMemory:
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
	}
	if c.BucketName == "" {
		return ErrNoBucket
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return ErrPartialCredentials
	}
	if c.Endpoint != "" && !utils.IsValidURL(c.Endpoint) {
		return fmt.Errorf("blob: invalid endpoint url %q", c.Endpoint)
	}
	if c.backend() == BackendMinio && c.Endpoint == "" {
		return fmt.Errorf("blob: endpoint required for the %s backend", BackendMinio)
	}
	return nil
}

func (c *S3BlobConfig) backend() string {
	if c.Backend == "" {
		return BackendS3
	}
	return strings.ToLower(c.Backend)
}

func (c *S3BlobConfig) region() string {
	if c.Region == "" {
		return DefaultRegion
	}
	return c.Region
}

// String is safe to log.
func (c *S3BlobConfig) String() string {
	return fmt.Sprintf("backend=%s bucket=%s region=%s endpoint=%s access_key=%s",
		c.backend(), c.BucketName, c.region(), c.Endpoint, utils.MaskSecret(c.AccessKey))
}
