// Package logging provides leveled log output for volsampler, optionally
// redirected to a rotating log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
)

// Config controls where log messages go.
type Config struct {
	// Logfile is the path of the rotating log file. Empty sends output to stdout.
	Logfile string `yaml:"logfile" toml:"logfile"`

	// MaxSize is the size in megabytes at which the log file is rotated.
	MaxSize int `yaml:"maxLogSize" toml:"max_log_size"`

	// MaxAge is the number of days rotated files are kept.
	MaxAge int `yaml:"maxLogAge" toml:"max_log_age"`

	// Verbose enables Debug level messages.
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

var (
	mu      sync.Mutex
	std     = log.New(os.Stdout, "", log.LstdFlags)
	rotator *lumberjack.Logger
	verbose bool
)

// SetLogger applies the configuration. A nil config or empty Logfile keeps stdout.
func (c *Config) SetLogger() {
	mu.Lock()
	defer mu.Unlock()

	if c == nil {
		return
	}
	verbose = c.Verbose
	if c.Logfile == "" {
		return
	}
	fmt.Printf("Sending log messages to: %s\n", c.Logfile)
	rotator = &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	std.SetOutput(rotator)
}

// SetOutput redirects log messages to w. Used by tests and embedding programs.
func SetOutput(w io.Writer) {
	mu.Lock()
	std.SetOutput(w)
	mu.Unlock()
}

// SetVerbose toggles Debug level output.
func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
}

// Debugf records a message at DEBUG level. Dropped unless verbose.
func Debugf(format string, args ...interface{}) {
	mu.Lock()
	v := verbose
	mu.Unlock()
	if v {
		std.Printf(" DEBUG "+format, args...)
	}
}

// Infof records a message at INFO level.
func Infof(format string, args ...interface{}) {
	std.Printf(" INFO "+format, args...)
}

// Warningf records a message at WARNING level.
func Warningf(format string, args ...interface{}) {
	std.Printf(" WARNING "+format, args...)
}

// Errorf records a message at ERROR level.
func Errorf(format string, args ...interface{}) {
	std.Printf(" ERROR "+format, args...)
}

// Shutdown closes the rotating log file, if any.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if rotator != nil {
		std.Printf(" INFO Closing log file...\n")
		rotator.Close()
		rotator = nil
		std.SetOutput(os.Stdout)
	}
}
