package config

import "strings"

// StorageConfig contains S3-compatible object storage configuration.
type StorageConfig struct {
	Endpoint  string `env:"ENDPOINT"   envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"SECRET_KEY" envDefault:"minioadmin"`
	Region    string `env:"REGION"     envDefault:""`
	UseSSL    bool   `env:"USE_SSL"    envDefault:"false"`

	// OriginalsBucket holds the uploaded source files referenced by preview_jobs.original_path.
	OriginalsBucket string `env:"ORIGINALS_BUCKET" envDefault:"resources"`
	// PreviewsBucket receives derived preview artifacts.
	PreviewsBucket string `env:"PREVIEWS_BUCKET" envDefault:"previews"`
}

// Sanitize trims whitespace and strips a scheme accidentally included in the endpoint.
func (s *StorageConfig) Sanitize() {
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	switch {
	case strings.HasPrefix(s.Endpoint, "https://"):
		s.Endpoint = strings.TrimPrefix(s.Endpoint, "https://")
		s.UseSSL = true
	case strings.HasPrefix(s.Endpoint, "http://"):
		s.Endpoint = strings.TrimPrefix(s.Endpoint, "http://")
	}
	s.Endpoint = strings.TrimRight(s.Endpoint, "/")

	s.OriginalsBucket = strings.TrimSpace(s.OriginalsBucket)
	s.PreviewsBucket = strings.TrimSpace(s.PreviewsBucket)
	if s.OriginalsBucket == "" {
		s.OriginalsBucket = "resources"
	}
	if s.PreviewsBucket == "" {
		s.PreviewsBucket = "previews"
	}
}
