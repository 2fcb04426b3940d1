package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	S3       S3Config       `mapstructure:"s3"`
	Client   ClientConfig   `mapstructure:"client"`
}

type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Database drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type DatabaseConfig struct {
	Driver                 string        `mapstructure:"driver"`
	URI                    string        `mapstructure:"uri"`
	Name                   string        `mapstructure:"name"`
	MaxPoolSize            uint64        `mapstructure:"max_pool_size"`
	ServerSelectionTimeout time.Duration `mapstructure:"server_selection_timeout"`
	SocketTimeout          time.Duration `mapstructure:"socket_timeout"`
	MaxConnIdleTime        time.Duration `mapstructure:"max_conn_idle_time"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// S3Config points at an S3-compatible bucket for archive exports. An empty
// BucketName disables the export feature.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool {
	return c.BucketName != ""
}

// ClientConfig is used by the command-line client.
type ClientConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	OfflineFile      string        `mapstructure:"offline_file"`
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"server.address":                    ":8080",
	"server.mode":                       "release",
	"server.cors_origins":               []string{"*"},
	"database.driver":                   DriverMongo,
	"database.uri":                      "mongodb://localhost:27017",
	"database.name":                     "valeda",
	"database.max_pool_size":            10,
	"database.server_selection_timeout": "5s",
	"database.socket_timeout":           "45s",
	"database.max_conn_idle_time":       "5m",
	"log.level":                         "info",
	"log.format":                        "json",
	"s3.endpoint":                       "",
	"s3.region":                         "us-east-1",
	"s3.access_key_id":                  "",
	"s3.secret_access_key":              "",
	"s3.bucket_name":                    "",
	"s3.use_ssl":                        true,
	"client.base_url":                   "http://localhost:8080/api",
	"client.offline_file":               "valeda-offline.json",
	"client.autosave_interval":          "1s",
	"client.timeout":                    "10s",
}

// LoadConfig reads configuration from path/config.yaml, a .env file in the
// working directory, and environment variables, in increasing precedence.
func LoadConfig(path string) (config Config, err error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, err
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, nil
}
