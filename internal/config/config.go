// Package config holds blogsol's runtime configuration and the fixed
// constants of the record layout.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultProgramID is the program address records are derived under when no
// other id is configured.
const DefaultProgramID = "3p4hdSQuYuDX8dXw8kNrQFRRT42UbKUkWwMhb6X271GM"

// DefaultMaxAirdrop caps a single airdrop served over RPC, in lamports.
const DefaultMaxAirdrop uint64 = 10_000_000_000

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Database struct {
		Path string
	}
	Program struct {
		ID          string
		PostIDWidth int
	}
	RPC struct {
		Addr       string
		MaxAirdrop uint64
	}
	Keypair struct {
		Path string
	}
	Log struct {
		Level string
	}
}

// Load reads configuration from environment variables and an optional
// config file. An empty path searches for blogsol.yaml in the working
// directory.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BLOGSOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.path", "data/blogsol.db")
	v.SetDefault("program.id", DefaultProgramID)
	v.SetDefault("program.postidwidth", PostIDWidthDefault)
	v.SetDefault("rpc.addr", "127.0.0.1:8899")
	v.SetDefault("rpc.maxairdrop", DefaultMaxAirdrop)
	v.SetDefault("keypair.path", "data/id.json")
	v.SetDefault("log.level", "info")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("blogsol")
		v.AddConfigPath(".")
		_ = v.ReadInConfig() // optional file
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside the program.
func (c Config) Validate() error {
	if !ValidPostIDWidth(c.Program.PostIDWidth) {
		return fmt.Errorf("program.postidwidth must be 1, 2, 4 or 8, got %d", c.Program.PostIDWidth)
	}
	if strings.TrimSpace(c.Program.ID) == "" {
		return fmt.Errorf("program.id is required")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
