package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/loadgen"
	"github.com/aryankumar/taskpool/internal/util"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = ".taskpool"
	defaultConfigDir  = ".taskpool"

	// EnvPrefix prefixes environment overrides, e.g. TASKPOOL_POOL_WORKERS
	EnvPrefix = "TASKPOOL"
)

// defaults lists every configuration key with its default value
// Registering each key lets environment variables override nested settings
var defaults = map[string]interface{}{
	"pool.mode":                    string(executor.ModeFixed),
	"pool.workers":                 executor.DefaultWorkers,
	"pool.capacity":                executor.DefaultCapacity,
	"pool.submitTimeout":           executor.DefaultSubmitTimeout,
	"pool.wakePolicy":              string(executor.WakeSignal),
	"pool.cached.maxWorkers":       0,
	"pool.cached.idleTimeout":      executor.DefaultIdleTimeout,
	"pool.cached.scaleInterval":    executor.DefaultScaleInterval,
	"pool.cached.backlogThreshold": executor.DefaultBacklogThreshold,
	"load.producers":               4,
	"load.tasks":                   10000,
	"load.rate":                    0.0,
	"load.burst":                   1,
	"load.kind":                    string(loadgen.KindSleep),
	"load.duration":                time.Millisecond,
}

// Manager handles taskpool configuration
type Manager struct {
	configPath string
	config     *FileConfig
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
// An empty configPath searches ~/.taskpool/ and ~/ for .taskpool.yaml
func NewManager(configPath string) *Manager {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	return &Manager{
		configPath: configPath,
		viper:      v,
		config:     &FileConfig{},
	}
}

// BindFlag lets a command-line flag override the given configuration key
// The flag only takes precedence when it was set explicitly
func (m *Manager) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind for key %q", key)
	}
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return m.viper.BindPFlag(key, flag)
}

// Load reads the configuration file, environment and bound flags
// A missing config file is not an error; defaults are used instead
func (m *Manager) Load() (*FileConfig, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// Check ~/.taskpool/.taskpool.yaml, then ~/.taskpool.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &FileConfig{}
	if err := m.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	m.config = cfg

	return m.config, nil
}

// Save writes the current configuration as YAML
// Without an explicit path it writes ~/.taskpool/.taskpool.yaml
func (m *Manager) Save() error {
	if _, err := m.ResolvePath(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	for key, value := range m.settings() {
		m.viper.Set(key, value)
	}

	if err := m.viper.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// settings flattens the current config into viper keys, durations as strings
func (m *Manager) settings() map[string]interface{} {
	p, l := m.config.Pool, m.config.Load
	return map[string]interface{}{
		"pool.mode":                    p.Mode,
		"pool.workers":                 p.Workers,
		"pool.capacity":                p.Capacity,
		"pool.submitTimeout":           p.SubmitTimeout.String(),
		"pool.wakePolicy":              p.WakePolicy,
		"pool.cached.maxWorkers":       p.Cached.MaxWorkers,
		"pool.cached.idleTimeout":      p.Cached.IdleTimeout.String(),
		"pool.cached.scaleInterval":    p.Cached.ScaleInterval.String(),
		"pool.cached.backlogThreshold": p.Cached.BacklogThreshold.String(),
		"load.producers":               l.Producers,
		"load.tasks":                   l.Tasks,
		"load.rate":                    l.Rate,
		"load.burst":                   l.Burst,
		"load.kind":                    l.Kind,
		"load.duration":                l.Duration.String(),
	}
}

// ResolvePath fixes the path Save writes to, defaulting to
// ~/.taskpool/.taskpool.yaml when none was given
func (m *Manager) ResolvePath() (string, error) {
	if m.configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		m.configPath = filepath.Join(home, defaultConfigDir, defaultConfigName+".yaml")
	}
	return m.configPath, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *FileConfig {
	return m.config
}

// SetConfig replaces the current configuration, e.g. before Save
func (m *Manager) SetConfig(cfg *FileConfig) {
	if cfg != nil {
		m.config = cfg
	}
}

// ConfigFileUsed returns the file Load read, if any
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// Path returns the explicit config path, if any
func (m *Manager) Path() string {
	return m.configPath
}

// Default returns the built-in configuration
func Default() *FileConfig {
	return &FileConfig{
		Pool: PoolConfig{
			Mode:          string(executor.ModeFixed),
			Workers:       executor.DefaultWorkers,
			Capacity:      executor.DefaultCapacity,
			SubmitTimeout: executor.DefaultSubmitTimeout,
			WakePolicy:    string(executor.WakeSignal),
			Cached: CachedConfig{
				IdleTimeout:      executor.DefaultIdleTimeout,
				ScaleInterval:    executor.DefaultScaleInterval,
				BacklogThreshold: executor.DefaultBacklogThreshold,
			},
		},
		Load: LoadConfig{
			Producers: 4,
			Tasks:     10000,
			Burst:     1,
			Kind:      string(loadgen.KindSleep),
			Duration:  time.Millisecond,
		},
	}
}

// Validate checks the whole file configuration
func (c *FileConfig) Validate() error {
	return util.CombineErrors(c.Pool.Validate(), c.Load.Validate())
}

// Validate checks the pool settings
func (c *PoolConfig) Validate() error {
	errs := &util.MultiError{}

	if _, err := executor.ParseMode(c.Mode); err != nil {
		errs.Add(util.NewValidationError("pool.mode", c.Mode, err.Error()))
	}
	if c.Workers <= 0 {
		errs.Add(util.NewValidationError("pool.workers", c.Workers, "must be a positive integer"))
	}
	if c.Capacity <= 0 {
		errs.Add(util.NewValidationError("pool.capacity", c.Capacity, "must be a positive integer"))
	}
	if c.SubmitTimeout < 0 {
		errs.Add(util.NewValidationError("pool.submitTimeout", c.SubmitTimeout, "must not be negative"))
	}
	if _, err := executor.ParseWakePolicy(c.WakePolicy); err != nil {
		errs.Add(util.NewValidationError("pool.wakePolicy", c.WakePolicy, err.Error()))
	}
	if c.Cached.MaxWorkers < 0 {
		errs.Add(util.NewValidationError("pool.cached.maxWorkers", c.Cached.MaxWorkers, "must not be negative"))
	} else if c.Cached.MaxWorkers > 0 && c.Cached.MaxWorkers < c.Workers {
		errs.Add(util.NewValidationError("pool.cached.maxWorkers", c.Cached.MaxWorkers, "must not be below pool.workers"))
	}
	if c.Cached.IdleTimeout < 0 {
		errs.Add(util.NewValidationError("pool.cached.idleTimeout", c.Cached.IdleTimeout, "must not be negative"))
	}
	if c.Cached.ScaleInterval <= 0 {
		errs.Add(util.NewValidationError("pool.cached.scaleInterval", c.Cached.ScaleInterval, "must be positive"))
	}
	if c.Cached.BacklogThreshold < 0 {
		errs.Add(util.NewValidationError("pool.cached.backlogThreshold", c.Cached.BacklogThreshold, "must not be negative"))
	}

	return errs.ErrorOrNil()
}

// Validate checks the load settings
func (c *LoadConfig) Validate() error {
	errs := &util.MultiError{}

	if c.Producers <= 0 {
		errs.Add(util.NewValidationError("load.producers", c.Producers, "must be a positive integer"))
	}
	if c.Tasks < 0 {
		errs.Add(util.NewValidationError("load.tasks", c.Tasks, "must not be negative"))
	}
	if c.Rate < 0 {
		errs.Add(util.NewValidationError("load.rate", c.Rate, "must not be negative"))
	}
	if c.Rate > 0 && c.Burst <= 0 {
		errs.Add(util.NewValidationError("load.burst", c.Burst, "must be positive when a rate is set"))
	}
	if _, err := loadgen.ParseKind(c.Kind); err != nil {
		errs.Add(util.NewValidationError("load.kind", c.Kind, err.Error()))
	}
	if c.Duration < 0 {
		errs.Add(util.NewValidationError("load.duration", c.Duration, "must not be negative"))
	}

	return errs.ErrorOrNil()
}

// Apply pushes the pool settings into an unstarted pool
func (c *PoolConfig) Apply(pool *executor.Pool) error {
	if err := c.Validate(); err != nil {
		return err
	}

	mode, _ := executor.ParseMode(c.Mode)
	policy, _ := executor.ParseWakePolicy(c.WakePolicy)

	steps := []func() error{
		func() error { return pool.SetMode(mode) },
		func() error { return pool.SetCapacityThreshold(c.Capacity) },
		func() error { return pool.SetSubmitTimeout(c.SubmitTimeout) },
		func() error { return pool.SetWakePolicy(policy) },
		func() error { return pool.SetMaxWorkers(c.Cached.MaxWorkers) },
		func() error { return pool.SetIdleTimeout(c.Cached.IdleTimeout) },
		func() error { return pool.SetScaleInterval(c.Cached.ScaleInterval) },
		func() error { return pool.SetBacklogThreshold(c.Cached.BacklogThreshold) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("failed to configure pool: %w", err)
		}
	}

	return nil
}
