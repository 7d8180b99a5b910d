package config

// Config is the top-level configuration structure parsed from YAML.
type Config struct {
	Sysbench  Sysbench  `yaml:"sysbench"`
	Database  Database  `yaml:"database"`
	Artifacts Artifacts `yaml:"artifacts"`
	Log       Log       `yaml:"log"`
}

// Sysbench controls how the external binary is invoked.
type Sysbench struct {
	Binary         string   `yaml:"binary"`
	Timeout        string   `yaml:"timeout"`
	DefaultThreads int      `yaml:"default_threads"`
	ExtraArgs      []string `yaml:"extra_args"`
}

// Database selects where run history is stored. Driver is "sqlite3" or "pgx".
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Artifacts controls where raw output and parsed records are kept on disk.
type Artifacts struct {
	Dir     string `yaml:"dir"`
	Disable bool   `yaml:"disable"`
}

// Log configures the slog handler installed by the CLI.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
