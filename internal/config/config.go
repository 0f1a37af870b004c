// Package config loads the engine configuration from YAML.
package config

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/cache"
	"github.com/LurkingFox/Tradeworth-sub000/internal/importer"
	"github.com/LurkingFox/Tradeworth-sub000/internal/instrument"
	"github.com/LurkingFox/Tradeworth-sub000/internal/stats"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled" jsonschema:"description=Cache derived statistics and views,default=true"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" jsonschema:"description=Lifetime of a cached entry (e.g. 5m)" validate:"gt=0"`
	Capacity int           `yaml:"capacity" json:"capacity" jsonschema:"description=Maximum entries per namespace,default=100" validate:"gt=0"`
}

type StatsConfig struct {
	ChunkSize int `yaml:"chunk_size" json:"chunk_size" jsonschema:"description=Trades per aggregation chunk,default=1000" validate:"gt=0"`
	Workers   int `yaml:"workers" json:"workers" jsonschema:"description=Concurrent aggregation workers,default=4" validate:"gt=0,lte=64"`
}

type ImportConfig struct {
	TargetChunkBytes int           `yaml:"target_chunk_bytes" json:"target_chunk_bytes" jsonschema:"description=Memory budget of one persisted chunk in bytes" validate:"gt=0"`
	Workers          int           `yaml:"workers" json:"workers" jsonschema:"description=Concurrent record transform workers,default=4" validate:"gt=0,lte=64"`
	Deduplicate      bool          `yaml:"deduplicate" json:"deduplicate" jsonschema:"description=Skip records that were already imported,default=true"`
	Retention        time.Duration `yaml:"retention" json:"retention" jsonschema:"description=How long finished jobs stay available for polling" validate:"gt=0"`
	SweepInterval    time.Duration `yaml:"sweep_interval" json:"sweep_interval" jsonschema:"description=Interval of the cache and job garbage collection" validate:"gt=0"`
}

type ServerConfig struct {
	Address string `yaml:"address" json:"address" jsonschema:"description=Listen address of the HTTP API,default=:8080" validate:"required"`
}

// InstrumentOverride replaces or adds an instrument convention, keyed by symbol.
type InstrumentOverride struct {
	Category     types.InstrumentCategory `yaml:"category" json:"category" jsonschema:"enum=forex,enum=metal,enum=crypto,enum=index,enum=commodity" validate:"required,oneof=forex metal crypto index commodity"`
	PipValue     float64                  `yaml:"pip_value" json:"pip_value" validate:"gt=0"`
	PipPosition  int                      `yaml:"pip_position" json:"pip_position" validate:"gte=0"`
	ContractSize float64                  `yaml:"contract_size" json:"contract_size" validate:"gt=0"`
	USDBase      bool                     `yaml:"usd_base" json:"usd_base"`
}

type Config struct {
	UserID       string `yaml:"user_id" json:"user_id" jsonschema:"title=User ID,description=Owner of the journal; scopes persistence and cache keys" validate:"required"`
	LogLevel     string `yaml:"log_level" json:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"oneof=debug info warn error"`
	DatabasePath string `yaml:"database_path" json:"database_path" jsonschema:"description=DuckDB file; empty keeps the journal in memory"`
	// AccountBalance is decoded by UnmarshalYAML; absent means the balance follows the trades.
	AccountBalance         optional.Option[float64]      `yaml:"-" json:"account_balance" jsonschema:"title=Account Balance,description=Fixed account balance used for percentages"`
	DefaultStartingBalance float64                       `yaml:"default_starting_balance" json:"default_starting_balance" jsonschema:"default=10000" validate:"gt=0"`
	Cache                  CacheConfig                   `yaml:"cache" json:"cache"`
	Stats                  StatsConfig                   `yaml:"stats" json:"stats"`
	Import                 ImportConfig                  `yaml:"import" json:"import"`
	Server                 ServerConfig                  `yaml:"server" json:"server"`
	Instruments            map[string]InstrumentOverride `yaml:"instruments" json:"instruments" validate:"dive"`
}

// Default returns a complete, valid configuration for the "local" user.
func Default() Config {
	return Config{
		UserID:                 "local",
		LogLevel:               "info",
		DatabasePath:           "",
		AccountBalance:         optional.None[float64](),
		DefaultStartingBalance: 10000,
		Cache: CacheConfig{
			Enabled:  true,
			TTL:      cache.DefaultTTL,
			Capacity: cache.DefaultCapacity,
		},
		Stats: StatsConfig{
			ChunkSize: stats.DefaultChunkSize,
			Workers:   stats.DefaultWorkers,
		},
		Import: ImportConfig{
			TargetChunkBytes: importer.DefaultTargetChunkBytes,
			Workers:          importer.DefaultWorkers,
			Deduplicate:      true,
			Retention:        importer.DefaultRetention,
			SweepInterval:    time.Minute,
		},
		Server: ServerConfig{
			Address: ":8080",
		},
		Instruments: map[string]InstrumentOverride{},
	}
}

// UnmarshalYAML decodes on top of the current values, so fields missing from the
// document keep their defaults.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config

	aux := struct {
		plain          `yaml:",inline"`
		AccountBalance *float64 `yaml:"account_balance"`
	}{
		plain:          plain(*c),
		AccountBalance: nil,
	}

	if err := value.Decode(&aux); err != nil {
		return err
	}

	*c = Config(aux.plain)
	if aux.AccountBalance != nil {
		c.AccountBalance = optional.Some(*aux.AccountBalance)
	}

	return nil
}

// Parse decodes YAML over Default() and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Load reads and parses the config file at path. An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrapf(errors.ErrCodeConfigNotFound, err, "config file %s not found", path)
		}

		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config", err)
	}

	return Parse(data)
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if c.AccountBalance.IsSome() && c.AccountBalance.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "invalid config: account_balance must be positive")
	}

	return nil
}

// InstrumentSpecs converts the overrides into resolver specs keyed by normalized symbol.
func (c *Config) InstrumentSpecs() map[string]types.InstrumentSpec {
	specs := make(map[string]types.InstrumentSpec, len(c.Instruments))

	for symbol, o := range c.Instruments {
		key := instrument.Normalize(symbol)
		specs[key] = types.InstrumentSpec{
			Symbol:       key,
			Category:     o.Category,
			PipValue:     o.PipValue,
			PipPosition:  o.PipPosition,
			ContractSize: o.ContractSize,
			USDBase:      o.USDBase,
		}
	}

	return specs
}

// GenerateSchema generates a JSON schema for Config.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch {
			case strings.HasPrefix(t.String(), "optional.Option[float64]"):
				return &jsonschema.Schema{Type: "number", ExclusiveMinimum: json.Number("0")}
			case t == reflect.TypeOf(time.Duration(0)):
				return &jsonschema.Schema{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "tradeworth-config"
	schema.Description = "Configuration schema for the Tradeworth analytics engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates an indented JSON schema string for Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
