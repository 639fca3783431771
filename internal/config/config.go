package config

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "whattodo.toml"
	DefaultSQLitePath     = "whattodo.db"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Auth modes.
const (
	AuthToken  = "token"
	AuthStatic = "static"
)

type Push struct {
	VAPIDPublicKey  string `toml:"vapid_public_key"`
	VAPIDPrivateKey string `toml:"vapid_private_key"`
	Subscriber      string `toml:"subscriber"`
}

type Auth struct {
	Mode        string `toml:"mode"`         // token | static
	StaticOwner string `toml:"static_owner"` // owner id when mode = static
}

type Config struct {
	Listen      string `toml:"listen"`
	Store       string `toml:"store"` // postgres | sqlite
	DatabaseURL string `toml:"database_url"`
	SQLitePath  string `toml:"sqlite_path"`
	Auth        Auth   `toml:"auth"`
	Push        Push   `toml:"push"`
}

// LoadOrCreate reads the config at path, writing defaults there first
// if the file does not exist yet.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store {
	case StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	switch c.Auth.Mode {
	case AuthToken, AuthStatic:
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth.Mode)
	}
	if c.Auth.Mode == AuthToken && c.Store != StorePostgres {
		return errors.New("token auth requires the postgres store")
	}
	return nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		Listen:     ":8080",
		Store:      StoreSQLite,
		SQLitePath: DefaultSQLitePath,
		Auth: Auth{
			Mode:        AuthStatic,
			StaticOwner: "local",
		},
	}
}
