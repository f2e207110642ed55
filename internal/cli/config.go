package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

const (
	configFileName = "orchestra"
	configFileType = "yaml"

	cfgKeyFormat    = "format"
	cfgKeyVerbose   = "verbose"
	cfgKeySchemaDir = "schema_dir"
	cfgKeyGoldenDir = "golden_dir"

	defaultFormat = "text"
)

// Config holds settings read from orchestra.yaml. Flags override them.
type Config struct {
	Format    string
	Verbose   bool
	SchemaDir string // default schema for validate and graph
	GoldenDir string // golden file directory for test; empty means <scenarios>/golden
}

// loadConfig reads the config file. An explicit path must exist; otherwise
// orchestra.yaml is looked up in the working directory and a missing file
// yields the defaults.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyFormat, defaultFormat)
	v.SetDefault(cfgKeyVerbose, false)
	v.SetDefault(cfgKeySchemaDir, "")
	v.SetDefault(cfgKeyGoldenDir, "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		Format:    v.GetString(cfgKeyFormat),
		Verbose:   v.GetBool(cfgKeyVerbose),
		SchemaDir: v.GetString(cfgKeySchemaDir),
		GoldenDir: v.GetString(cfgKeyGoldenDir),
	}, nil
}
