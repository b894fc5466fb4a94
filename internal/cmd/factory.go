package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/annolab/emlkit/internal/config"
	"github.com/annolab/emlkit/internal/store"
)

// Factory provides dependencies for commands. Config and store are
// initialized lazily so commands that never touch them stay cheap.
type Factory struct {
	Out    io.Writer
	ErrOut io.Writer

	// ConfigPath overrides the default config file location.
	ConfigPath string

	cfg *config.Config
	st  store.Store
}

// NewFactory creates a factory wired to the process streams.
func NewFactory() *Factory {
	return &Factory{Out: os.Stdout, ErrOut: os.Stderr}
}

// Config loads the configuration once and caches it.
func (f *Factory) Config() (*config.Config, error) {
	if f.cfg != nil {
		return f.cfg, nil
	}
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	f.cfg = cfg
	return cfg, nil
}

// Store opens the configured store once and caches it.
func (f *Factory) Store() (store.Store, error) {
	if f.st != nil {
		return f.st, nil
	}
	cfg, err := f.Config()
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := st.Open(); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	f.st = st
	return st, nil
}

// Close releases the store if a command opened it.
func (f *Factory) Close() error {
	if f.st != nil {
		return f.st.Close()
	}
	return nil
}
