// Package config loads the daemon configuration from an optional .env file
// and AKSHARA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "AKSHARA_"

// Config is the daemon configuration.
type Config struct {
	Addr      string
	DataDir   string
	WebDir    string
	PluginDir string

	CameraID   int
	RenderFPS  int
	MotionGate bool
	// MaxReuseFrames bounds how many ticks a detection is reused while the
	// scene is static.
	MaxReuseFrames int

	InitAttempts int
	InitBackoff  time.Duration
	InitTimeout  time.Duration

	BackendURL    string
	UserID        string
	ModuleID      string
	LevelsPerGame int

	LogLevel string
	Tray     bool

	Tuning Tuning
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".akshara")
	return &Config{
		Addr:           "127.0.0.1:8080",
		DataDir:        dataDir,
		PluginDir:      filepath.Join(dataDir, "plugins"),
		CameraID:       0,
		RenderFPS:      30,
		MotionGate:     false,
		MaxReuseFrames: 3,
		InitAttempts:   3,
		InitBackoff:    500 * time.Millisecond,
		InitTimeout:    15 * time.Second,
		BackendURL:     "http://localhost:8000",
		UserID:         "student_001",
		ModuleID:       "ar-hunt",
		LevelsPerGame:  5,
		LogLevel:       "info",
		Tray:           true,
		Tuning:         DefaultTuning(),
	}
}

// DBPath returns the sqlite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "akshara.db")
}

// Load reads the given .env files (".env" when none are named) and then the
// process environment. Real environment variables take precedence over the
// files. Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	values := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range m {
			values[k] = v
		}
	}

	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	})
}

// FromLookup builds a configuration from a variable lookup function.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	p.str("ADDR", &c.Addr)
	if p.str("DATA_DIR", &c.DataDir) {
		c.PluginDir = filepath.Join(c.DataDir, "plugins")
	}
	p.str("WEB_DIR", &c.WebDir)
	p.str("PLUGIN_DIR", &c.PluginDir)
	p.int("CAMERA_ID", &c.CameraID)
	p.int("RENDER_FPS", &c.RenderFPS)
	p.bool("MOTION_GATE", &c.MotionGate)
	p.int("MAX_REUSE_FRAMES", &c.MaxReuseFrames)
	p.int("INIT_ATTEMPTS", &c.InitAttempts)
	p.duration("INIT_BACKOFF", &c.InitBackoff)
	p.duration("INIT_TIMEOUT", &c.InitTimeout)
	p.str("BACKEND_URL", &c.BackendURL)
	p.str("USER_ID", &c.UserID)
	p.str("MODULE_ID", &c.ModuleID)
	p.int("LEVELS_PER_GAME", &c.LevelsPerGame)
	p.str("LOG_LEVEL", &c.LogLevel)
	p.bool("TRAY", &c.Tray)

	overrides := make(map[string]string)
	for _, key := range TuningKeys {
		if v, ok := lookup(Prefix + strings.ToUpper(key)); ok && v != "" {
			overrides[key] = v
		}
	}

	if p.err != nil {
		return nil, p.err
	}

	tuning, err := c.Tuning.Apply(overrides)
	if err != nil {
		return nil, err
	}
	c.Tuning = tuning

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the non-tuning fields.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%sADDR must not be empty", Prefix)
	}
	if c.RenderFPS <= 0 || c.RenderFPS > 120 {
		return fmt.Errorf("%sRENDER_FPS must be in 1-120, got %d", Prefix, c.RenderFPS)
	}
	if c.CameraID < 0 {
		return fmt.Errorf("%sCAMERA_ID must not be negative", Prefix)
	}
	if c.InitAttempts < 1 {
		return fmt.Errorf("%sINIT_ATTEMPTS must be at least 1", Prefix)
	}
	if c.InitTimeout <= 0 {
		return fmt.Errorf("%sINIT_TIMEOUT must be positive", Prefix)
	}
	if c.LevelsPerGame < 1 {
		return fmt.Errorf("%sLEVELS_PER_GAME must be at least 1", Prefix)
	}
	if c.MaxReuseFrames < 0 {
		return fmt.Errorf("%sMAX_REUSE_FRAMES must not be negative", Prefix)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "disable":
	default:
		return fmt.Errorf("%sLOG_LEVEL: unknown level %q", Prefix, c.LogLevel)
	}
	return c.Tuning.Validate()
}

// parser records the first error while reading variables.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) get(name string) (string, bool) {
	v, ok := p.lookup(Prefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *parser) fail(name, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s%s=%q: %w", Prefix, name, v, err)
	}
}

func (p *parser) str(name string, dst *string) bool {
	v, ok := p.get(name)
	if ok {
		*dst = v
	}
	return ok
}

func (p *parser) int(name string, dst *int) {
	v, ok := p.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v, err)
		return
	}
	*dst = n
}

func (p *parser) bool(name string, dst *bool) {
	v, ok := p.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(name, v, err)
		return
	}
	*dst = b
}

func (p *parser) duration(name string, dst *time.Duration) {
	v, ok := p.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(name, v, err)
		return
	}
	*dst = d
}
