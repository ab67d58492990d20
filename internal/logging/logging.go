// Package logging provides shared structured logging for diskflash.
// Enumeration and flashing code obtain a named logger once and log
// key-value pairs through it:
//
//	logger := logging.Get("discovery")
//	logger.Warn("metadata query failed", "device", path, "err", err)
package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	level   = log.InfoLevel
	loggers = make(map[string]*log.Logger)
)

// SetLevel sets the level for all loggers, existing and future.
// Accepted values: debug, info, warn, error.
func SetLevel(s string) error {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", s, err)
	}

	mu.Lock()
	defer mu.Unlock()
	level = lvl
	for _, l := range loggers {
		l.SetLevel(lvl)
	}
	return nil
}

// Get returns the logger for the given subsystem name, creating it on
// first use. Loggers write to stderr so command output stays clean.
func Get(name string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: name,
		Level:  level,
	})
	loggers[name] = l
	return l
}
