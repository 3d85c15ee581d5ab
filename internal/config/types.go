package config

import "time"

// FileConfig represents the taskpool configuration file structure
type FileConfig struct {
	// Pool configures the worker pool
	Pool PoolConfig `yaml:"pool" json:"pool" mapstructure:"pool"`

	// Load configures the synthetic load used by the run command
	Load LoadConfig `yaml:"load" json:"load" mapstructure:"load"`
}

// PoolConfig holds the pool settings fixed at start time
type PoolConfig struct {
	// Mode is the growth mode (fixed, cached)
	Mode string `yaml:"mode" json:"mode" mapstructure:"mode"`

	// Workers is the initial worker count
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`

	// Capacity is the task queue capacity threshold
	Capacity int `yaml:"capacity" json:"capacity" mapstructure:"capacity"`

	// SubmitTimeout bounds how long a submission waits on a full queue
	SubmitTimeout time.Duration `yaml:"submitTimeout" json:"submitTimeout" mapstructure:"submitTimeout"`

	// WakePolicy is signal or broadcast
	WakePolicy string `yaml:"wakePolicy" json:"wakePolicy" mapstructure:"wakePolicy"`

	// Cached holds settings only used in cached mode
	Cached CachedConfig `yaml:"cached" json:"cached" mapstructure:"cached"`
}

// CachedConfig holds cached-mode growth settings
type CachedConfig struct {
	// MaxWorkers caps growth; zero means twice the initial worker count
	MaxWorkers int `yaml:"maxWorkers" json:"maxWorkers" mapstructure:"maxWorkers"`

	// IdleTimeout is how long a surplus worker idles before retiring
	IdleTimeout time.Duration `yaml:"idleTimeout" json:"idleTimeout" mapstructure:"idleTimeout"`

	// ScaleInterval is how often the scaler inspects the queue
	ScaleInterval time.Duration `yaml:"scaleInterval" json:"scaleInterval" mapstructure:"scaleInterval"`

	// BacklogThreshold is how long a backlog must persist before growth
	BacklogThreshold time.Duration `yaml:"backlogThreshold" json:"backlogThreshold" mapstructure:"backlogThreshold"`
}

// LoadConfig describes synthetic load
type LoadConfig struct {
	// Producers is the number of concurrent submitting goroutines
	Producers int `yaml:"producers" json:"producers" mapstructure:"producers"`

	// Tasks is the total number of tasks submitted across producers
	Tasks int `yaml:"tasks" json:"tasks" mapstructure:"tasks"`

	// Rate limits submissions per second across producers; zero is unlimited
	Rate float64 `yaml:"rate" json:"rate" mapstructure:"rate"`

	// Burst is the token bucket burst size when Rate is set
	Burst int `yaml:"burst" json:"burst" mapstructure:"burst"`

	// Kind is the synthetic task kind (noop, sleep, spin)
	Kind string `yaml:"kind" json:"kind" mapstructure:"kind"`

	// Duration is how long each sleep or spin task runs
	Duration time.Duration `yaml:"duration" json:"duration" mapstructure:"duration"`
}
