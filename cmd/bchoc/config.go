package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jmerrifield20/bchoc/internal/roles"
)

// config is the resolved configuration handed to the core packages.
type config struct {
	FilePath    string
	Secrets     map[roles.Role]string
	LogLevel    string
	MetricsFile string
	ConfigUsed  string
}

// loadConfig reads the optional config file and the environment.
//
// Environment keys are BCHOC_<KEY> with dots replaced by underscores
// (BCHOC_FILE_PATH, BCHOC_LOG_LEVEL, BCHOC_METRICS_TEXTFILE). Role secrets
// are read from BCHOC_PASSWORD_<ROLE>.
func loadConfig(v *viper.Viper, cfgFile string) (config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".bchoc"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("BCHOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("file_path", "blockchain.dat")
	v.SetDefault("log.level", "warn")
	v.SetDefault("metrics.textfile", "")
	for _, r := range roles.All {
		if err := v.BindEnv(r.ConfigKey(), r.EnvKey()); err != nil {
			return config{}, fmt.Errorf("bind %s: %w", r.EnvKey(), err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := config{
		FilePath:    v.GetString("file_path"),
		Secrets:     make(map[roles.Role]string, len(roles.All)),
		LogLevel:    v.GetString("log.level"),
		MetricsFile: v.GetString("metrics.textfile"),
		ConfigUsed:  v.ConfigFileUsed(),
	}
	if v.GetBool("verbose") {
		cfg.LogLevel = "debug"
	}
	for _, r := range roles.All {
		cfg.Secrets[r] = v.GetString(r.ConfigKey())
	}
	if cfg.FilePath == "" {
		return config{}, errors.New("ledger file path must not be empty")
	}
	return cfg, nil
}

// newLogger builds a console logger on stderr. Normal command output goes
// to stdout, so logs default to warnings only.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Sampling = nil

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
