package b2extract

// Option configures a Config built by NewConfig using a single-purpose functional-option style.
type Option func(cfg *Config) error

// NewConfig builds a Config for outputDir with every toggle off, then applies opts in order.
func NewConfig(outputDir string, opts ...Option) (*Config, error) {
	cfg := &Config{OutputDir: outputDir}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// WithHeaderPathRecovery enables the C5 header strategy.
func WithHeaderPathRecovery(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.EnableHeaderPath = enabled
		return nil
	}
}

// WithContentPathRecovery enables the C5 content-scan strategy, used as a fallback when the
// header strategy yields nothing.
func WithContentPathRecovery(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.EnableContentPath = enabled
		return nil
	}
}

// WithSkipWemFiles skips every file, whatever its extension, with a wwiseaudio or wwisetriton
// path segment, and also turns on the localization skip.
func WithSkipWemFiles(skip bool) Option {
	return func(cfg *Config) error {
		cfg.SkipWemFiles = skip
		return nil
	}
}

// WithSkipBinkFiles skips Bink video files (.bik, .bk2).
func WithSkipBinkFiles(skip bool) Option {
	return func(cfg *Config) error {
		cfg.SkipBinkFiles = skip
		return nil
	}
}

// WithSkipExistingFiles skips any entry whose basename already exists somewhere under the
// output directory, per a pre-extraction ExistingIndex scan.
func WithSkipExistingFiles(skip bool) Option {
	return func(cfg *Config) error {
		cfg.SkipExistingFiles = skip
		return nil
	}
}

// WithSkipResAndAce skips .res and .ace files.
func WithSkipResAndAce(skip bool) Option {
	return func(cfg *Config) error {
		cfg.SkipResAndAce = skip
		return nil
	}
}

// WithSkipConfigFiles skips files that would otherwise route to Configs/.
func WithSkipConfigFiles(skip bool) Option {
	return func(cfg *Config) error {
		cfg.SkipConfigFiles = skip
		return nil
	}
}

// WithOnlyAssets restricts extraction to recoverable asset extensions and their bulk siblings.
func WithOnlyAssets(only bool) Option {
	return func(cfg *Config) error {
		cfg.OnlyAssets = only
		return nil
	}
}

// WithLogLevel records a log level in Config.LogLevel for the host UI; the driver itself does not
// filter events by it.
func WithLogLevel(level LogLevel) Option {
	return func(cfg *Config) error {
		cfg.LogLevel = level
		return nil
	}
}

// WithDryRun runs the router and reconcile logic without writing any files.
func WithDryRun(dryRun bool) Option {
	return func(cfg *Config) error {
		cfg.DryRun = dryRun
		return nil
	}
}
