package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwtly10/ws2md"
	"github.com/jwtly10/ws2md/internal/transformer"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "WS2MD"
	ConfigName = "ws2md"
)

// Keys understood in ws2md.yaml and as WS2MD_* environment variables
const (
	KeyHeader       = "header"
	KeyCharset      = "charset"
	KeyFormat       = "format"
	KeyKeepComments = "keep_comments"
	KeyNoBackup     = "no_backup"
	KeyKeepBackups  = "keep_backups"
	KeyNoHeader     = "no_header"
	KeyWorkers      = "workers"
	KeyMaxFiles     = "max_files"
	KeyAddr         = "addr"
	KeyMaxUpload    = "max_upload_bytes"
)

type Config struct {
	// Document decoding
	Header  string
	Charset string

	// Output
	Format       string
	KeepComments bool
	NoBackup     bool
	KeepBackups  int
	NoHeader     bool

	// Directory conversion
	Workers  int
	MaxFiles int

	// HTTP server
	Addr           string
	MaxUploadBytes int64
}

// SetDefaults registers the built-in defaults on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHeader, ws2md.HeaderAuto.String())
	v.SetDefault(KeyCharset, ws2md.CharsetUTF8.String())
	v.SetDefault(KeyFormat, ws2md.ModeMarkdown.String())
	v.SetDefault(KeyKeepComments, false)
	v.SetDefault(KeyNoBackup, false)
	v.SetDefault(KeyKeepBackups, 0)
	v.SetDefault(KeyNoHeader, false)
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyMaxFiles, 500)
	v.SetDefault(KeyAddr, ":8090")
	v.SetDefault(KeyMaxUpload, int64(10<<20)) // 10MB
}

// NewViper returns a viper instance with defaults, the ws2md.yaml search path
// and WS2MD_* environment binding. cfgFile overrides the search path.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads the config file if one exists. A missing file is not an error
// unless it was named explicitly.
func ReadFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}

// Load resolves the effective configuration from v
func Load(v *viper.Viper) Config {
	cfg := Config{
		Header:         v.GetString(KeyHeader),
		Charset:        v.GetString(KeyCharset),
		Format:         v.GetString(KeyFormat),
		KeepComments:   v.GetBool(KeyKeepComments),
		NoBackup:       v.GetBool(KeyNoBackup),
		KeepBackups:    v.GetInt(KeyKeepBackups),
		NoHeader:       v.GetBool(KeyNoHeader),
		Workers:        v.GetInt(KeyWorkers),
		MaxFiles:       v.GetInt(KeyMaxFiles),
		Addr:           v.GetString(KeyAddr),
		MaxUploadBytes: v.GetInt64(KeyMaxUpload),
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 500
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}

	return cfg
}

func (c Config) Validate() error {
	if _, err := ws2md.ParseHeaderMode(c.Header); err != nil {
		return fmt.Errorf("%s: %w", KeyHeader, err)
	}
	if _, err := ws2md.ParseCharset(c.Charset); err != nil {
		return fmt.Errorf("%s: %w", KeyCharset, err)
	}
	if _, err := ws2md.ParseWriteMode(c.Format); err != nil {
		return fmt.Errorf("%s: %w", KeyFormat, err)
	}
	return nil
}

// ParseOptions returns the decoding options. Call Validate first.
func (c Config) ParseOptions() ws2md.Options {
	header, _ := ws2md.ParseHeaderMode(c.Header)
	charset, _ := ws2md.ParseCharset(c.Charset)
	return ws2md.Options{Header: header, Charset: charset}
}

// TransformOptions returns the conversion options. Call Validate first.
func (c Config) TransformOptions() transformer.TransformOptions {
	mode, _ := ws2md.ParseWriteMode(c.Format)
	return transformer.TransformOptions{
		Parse:      c.ParseOptions(),
		WriterMode: mode,
		Writer:     ws2md.WriterOptions{KeepComments: c.KeepComments},
		NoBackup:    c.NoBackup,
		KeepBackups: c.KeepBackups,
		NoHeader:    c.NoHeader,
	}
}
