// Package config defines the configuration of a node.
//
// The configuration is read from the YAML file "config.yaml" of the config
// folder of the node. A missing file or a missing field falls back to the
// default values, and the flags of the start command take precedence over the
// file.
package config

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"go.dedis.ch/dmarket/cli"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// FileName is the name of the configuration file in the config folder.
const FileName = "config.yaml"

const (
	// StoreKV persists the ledger in a bbolt database.
	StoreKV = "kv"

	// StoreMem keeps the ledger in memory. It is lost when the node stops.
	StoreMem = "mem"
)

const (
	// StoreFlag is the flag name overriding the store backend.
	StoreFlag = "store"

	// MinterFlag is the flag name overriding the minter account.
	MinterFlag = "minter"

	// HTTPFlag is the flag name overriding the listen address of the proxy.
	HTTPFlag = "http"

	// LogLevelFlag is the flag name overriding the log level.
	LogLevelFlag = "loglevel"
)

// Config is the configuration of a node.
type Config struct {
	// Store is the backend of the ledger, either "kv" or "mem".
	Store string `yaml:"store"`

	// DB is the path of the database file, relative to the config folder if
	// not absolute.
	DB string `yaml:"db"`

	// Bucket is the name of the database bucket holding the ledger.
	Bucket string `yaml:"bucket"`

	// Key is the path of the private key of the node, relative to the config
	// folder if not absolute.
	Key string `yaml:"key"`

	// Minter is the account allowed to mint. An empty value gives the right to
	// the node's own account.
	Minter string `yaml:"minter"`

	// HTTP is the listen address of the proxy. The proxy is not started when
	// it is empty.
	HTTP string `yaml:"http"`

	// LogLevel is the level of the global logger. An empty value keeps the
	// level of the environment.
	LogLevel string `yaml:"loglevel"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Store:  StoreKV,
		DB:     "dmarket.db",
		Bucket: "dmarket",
		Key:    "private.key",
	}
}

// Load reads the configuration file of the folder. It returns the default
// configuration if the file does not exist.
func Load(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, xerrors.Errorf("failed to read config: %v", err)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to decode config: %v", err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, xerrors.Errorf("invalid config: %v", err)
	}

	return cfg, nil
}

// Save writes the configuration file in the folder.
func (c Config) Save(dir string) error {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return xerrors.Errorf("failed to create folder: %v", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return xerrors.Errorf("failed to encode config: %v", err)
	}

	err = os.WriteFile(filepath.Join(dir, FileName), data, 0600)
	if err != nil {
		return xerrors.Errorf("failed to write config: %v", err)
	}

	return nil
}

// Override returns a copy of the configuration where the values of the flags
// that are set replace the ones of the file.
func (c Config) Override(flags cli.Flags) Config {
	if v := flags.String(StoreFlag); v != "" {
		c.Store = v
	}

	if v := flags.String(MinterFlag); v != "" {
		c.Minter = v
	}

	if v := flags.String(HTTPFlag); v != "" {
		c.HTTP = v
	}

	if v := flags.String(LogLevelFlag); v != "" {
		c.LogLevel = v
	}

	return c
}

// Validate returns an error if a value of the configuration is not supported.
func (c Config) Validate() error {
	switch c.Store {
	case StoreKV:
		if c.DB == "" {
			return xerrors.New("missing database path")
		}

		if c.Bucket == "" {
			return xerrors.New("missing database bucket")
		}
	case StoreMem:
	default:
		return xerrors.Errorf("unknown store '%s'", c.Store)
	}

	if c.Key == "" {
		return xerrors.New("missing key path")
	}

	_, err := c.Level()
	if err != nil {
		return err
	}

	return nil
}

// Level returns the log level of the configuration.
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.NoLevel, nil
	}

	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, xerrors.Errorf("bad log level: %v", err)
	}

	return lvl, nil
}

// DBPath returns the path of the database for the config folder.
func (c Config) DBPath(dir string) string {
	return resolve(dir, c.DB)
}

// KeyPath returns the path of the private key for the config folder.
func (c Config) KeyPath(dir string) string {
	return resolve(dir, c.Key)
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(dir, path)
}
