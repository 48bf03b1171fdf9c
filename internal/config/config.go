package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/hybridmocap/simulator/pkg/core"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "hybrid_sim.cfg.json"

// ErrConfigNotFound is returned by Load when no config file exists. Defaults
// are still in effect.
var ErrConfigNotFound = errors.New("config file not found")

// SimulationConfig holds the input/output paths and run parameters
type SimulationConfig struct {
	InputPath  string
	OutputPath string
	Params     core.Params
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpPath string `json:"dumpPath" mapstructure:"dumpPath"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StorageConfig selects and configures the results backend
type StorageConfig struct {
	Type     string
	Memory   MemoryConfig
	SQLite   SQLiteConfig
	Postgres DatabaseConfig
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
	Timeout  time.Duration
}

// OTelConfig holds OpenTelemetry log provider settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GraylogConfig holds GELF sink settings
type GraylogConfig struct {
	Enabled bool
	Address string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./hybridlogs")

	viper.SetDefault("input.path", "trc_original.trc")
	viper.SetDefault("output.path", "output.trc")

	viper.SetDefault("drift.amplitude", 89.2)
	viper.SetDefault("drift.frequency", 0.9)
	viper.SetDefault("drift.verticalShift", 89.2)

	viper.SetDefault("occlusion.number", 25)
	viper.SetDefault("occlusion.duration", 10.0)
	viper.SetDefault("occlusion.avoidRepeat", false)
	viper.SetDefault("occlusion.seed", 0)

	viper.SetDefault("optical.skipFactor", 4)
	viper.SetDefault("simulation.frameLimit", 0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./results")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.dumpPath", "./results/hybrid_sim.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "hybrid_sim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "hybrid-mocap")
	viper.SetDefault("influx.bucket", "fusion")
	viper.SetDefault("influx.timeout", "2s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "hybrid-sim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("%w in %s", ErrConfigNotFound, configDir)
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Flags registers the command-line overrides on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", ".", "directory containing "+FileName)
	fs.String("input", "", "ground-truth TRC file")
	fs.String("output", "", "fused TRC file to write")
	fs.Uint64("seed", 0, "occlusion seed, 0 picks one from the clock")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
}

// BindFlags binds the flags registered by Flags to their config keys. Only
// flags set on the command line override the file.
func BindFlags(fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"input.path":     "input",
		"output.path":    "output",
		"occlusion.seed": "seed",
		"logLevel":       "log-level",
	}
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag --%s not registered", name)
		}
		if !flag.Changed {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimulationConfig returns the paths and parameters for a run.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		InputPath:  viper.GetString("input.path"),
		OutputPath: viper.GetString("output.path"),
		Params: core.Params{
			Drift: core.DriftParams{
				Amplitude:     viper.GetFloat64("drift.amplitude"),
				Frequency:     viper.GetFloat64("drift.frequency"),
				VerticalShift: viper.GetFloat64("drift.verticalShift"),
			},
			Occlusion: core.OcclusionParams{
				Number:          viper.GetInt("occlusion.number"),
				DurationSeconds: viper.GetFloat64("occlusion.duration"),
				AvoidRepeat:     viper.GetBool("occlusion.avoidRepeat"),
				Seed:            viper.GetUint64("occlusion.seed"),
			},
			SkipFactor: viper.GetInt("optical.skipFactor"),
			FrameLimit: viper.GetInt("simulation.frameLimit"),
		},
	}
}

// GetStorageConfig returns the results backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpPath: viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: DatabaseConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
		Timeout:  viper.GetDuration("influx.timeout"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
