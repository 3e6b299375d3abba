// Package settings loads server process settings from defaults, an optional
// YAML file, a .env file and GPRCAT_* environment variables, in increasing
// order of precedence.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "GPRCAT"

const (
	KeyHTTPAddr       = "http_addr"
	KeyRPCSocket      = "rpc_socket"
	KeyDBPath         = "db_path"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyMetricsEnabled = "metrics_enabled"
	KeyMaxUploadBytes = "max_upload_bytes"
)

type Settings struct {
	HTTPAddr       string `mapstructure:"http_addr"`
	RPCSocket      string `mapstructure:"rpc_socket"`
	DBPath         string `mapstructure:"db_path"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

func defaults(v *viper.Viper) {
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyRPCSocket, "/tmp/gprcatalog.sock")
	v.SetDefault(KeyDBPath, "gprcatalog.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyMaxUploadBytes, int64(32<<20))
}

// Load reads settings. path names an optional YAML file; an empty path looks
// for gprcatalog.yaml in the working directory. A missing .env or config file
// is not an error.
func Load(path string) (Settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gprcatalog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Validate reports every invalid setting at once.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if strings.TrimSpace(s.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", s.LogLevel))
	}
	switch strings.ToLower(s.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q is not one of text, json", s.LogFormat))
	}
	if s.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be positive"))
	}
	return errors.Join(errs...)
}
