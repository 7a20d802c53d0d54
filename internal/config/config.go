package config

import (
	"errors"
	"fmt"
	"strings"

	"foodprices/internal/engine"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "FOODPRICES"

// Engine names accepted by query.engine.
const (
	EngineColumnar = "columnar"
	EngineDuckDB   = "duckdb"
)

type Config struct {
	Data   DataConfig   `mapstructure:"data"`
	Server ServerConfig `mapstructure:"server"`
	Query  QueryConfig  `mapstructure:"query"`
	Log    LogConfig    `mapstructure:"log"`
}

type DataConfig struct {
	// Path to the zip archive or plain CSV file.
	Path string `mapstructure:"path" validate:"required"`
	// Entry inside the archive; empty picks the first .csv.
	Entry    string `mapstructure:"entry"`
	Encoding string `mapstructure:"encoding" validate:"encoding"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type QueryConfig struct {
	PreviewRows int    `mapstructure:"preview_rows" validate:"gte=0,lte=1000"`
	Engine      string `mapstructure:"engine" validate:"oneof=columnar duckdb"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data.path", "global_food_prices.zip")
	v.SetDefault("data.entry", "")
	v.SetDefault("data.encoding", "latin1")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("query.preview_rows", 5)
	v.SetDefault("query.engine", EngineColumnar)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
}

// New returns a viper instance with defaults and FOODPRICES_* environment
// overrides wired in.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v, then decodes and validates.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Accepts exactly the names the loader can decode.
	_ = v.RegisterValidation("encoding", func(fl validator.FieldLevel) bool {
		return engine.SupportedEncoding(fl.Field().String())
	})
	return v
}

// Validate checks every field constraint and reports them together.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
