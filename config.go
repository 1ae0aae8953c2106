package filestorage

import (
	"github.com/gobeaver/beaver-kit/config"
)

// Config carries process-wide defaults loaded from the environment.
// Backend factories consult it when the flat settings omit an argument,
// so credentials can stay out of settings files.
type Config struct {
	// Settings key prefix for SetupFromSettings
	SettingsPrefix string `env:"FILESTORAGE_SETTINGS_PREFIX,default:store"`

	// Local backend defaults
	LocalBasePath    string `env:"FILESTORAGE_LOCAL_BASE_PATH"`
	LocalAutoMakeDir bool   `env:"FILESTORAGE_LOCAL_AUTO_MAKE_DIR,default:false"`

	// S3 backend defaults
	S3Region          string `env:"FILESTORAGE_S3_REGION"`
	S3Bucket          string `env:"FILESTORAGE_S3_BUCKET"`
	S3Endpoint        string `env:"FILESTORAGE_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"FILESTORAGE_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"FILESTORAGE_S3_SECRET_ACCESS_KEY"`
	S3SessionToken    string `env:"FILESTORAGE_S3_SESSION_TOKEN"`
	S3ForcePathStyle  bool   `env:"FILESTORAGE_S3_FORCE_PATH_STYLE,default:false"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
