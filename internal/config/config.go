package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultTimeoutMS       = 10000
	DefaultListen          = ":3378"
	DefaultBlinkIntervalMS = 1000
	DefaultMQTTPrefix      = "hue"
)

// Options stores the service configuration. Values come from the config
// file, then the environment, then command line flags.
type Options struct {
	// IP address or hostname of the bridge; empty means auto-discovery
	BridgeHost string `yaml:"bridge,omitempty"`
	// Whitelisted bridge user
	Username string `yaml:"username,omitempty"`
	// Bridge communications timeout in milliseconds
	Timeout int  `yaml:"timeout,omitempty"`
	Verbose bool `yaml:"verbose,omitempty"`
	// HTTP listen address
	Listen string `yaml:"listen,omitempty"`
	// MQTT broker URL, e.g. tcp://localhost:1883; empty disables MQTT
	MQTTBroker string `yaml:"mqtt_broker,omitempty"`
	MQTTPrefix string `yaml:"mqtt_prefix,omitempty"`
	// Period between two alerts while blinking, in milliseconds
	BlinkInterval int `yaml:"blink_interval,omitempty"`

	Demo bool   `yaml:"-"`
	Pair bool   `yaml:"-"`
	File string `yaml:"-"`
}

var (
	ErrInvalidTimeout       = errors.New("timeout must be positive")
	ErrInvalidBlinkInterval = errors.New("blink interval must be positive")
	ErrInvalidListen        = errors.New("listen address must be host:port")
)

// Defaults returns the options used when nothing is configured
func Defaults() *Options {
	return &Options{
		Timeout:       DefaultTimeoutMS,
		Listen:        DefaultListen,
		MQTTPrefix:    DefaultMQTTPrefix,
		BlinkInterval: DefaultBlinkIntervalMS,
	}
}

// configDir returns the configuration directory path
func configDir() (string, error) {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hue-wrapper"), nil
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hue-wrapper"), nil
}

// Path returns the default config file path
func Path() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the default config file over the defaults
func Load() (*Options, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a config file over the defaults. A missing file is not
// an error.
func LoadFile(path string) (*Options, error) {
	opts := Defaults()
	opts.File = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return opts, nil
}

// Save writes the options to the file they were loaded from, or to the
// default path.
func (o *Options) Save() error {
	path := o.File
	if path == "" {
		var err error
		if path, err = Path(); err != nil {
			return err
		}
	}
	return o.SaveFile(path)
}

// SaveFile writes the options to path
func (o *Options) SaveFile(path string) error {
	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(o)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides options from HUE_BRIDGE, HUE_USERNAME and HUE_DEMO
func (o *Options) ApplyEnv(getenv func(string) string) {
	if v := getenv("HUE_BRIDGE"); v != "" {
		o.BridgeHost = v
	}
	if v := getenv("HUE_USERNAME"); v != "" {
		o.Username = v
	}
	if getenv("HUE_DEMO") != "" {
		o.Demo = true
	}
}

// ParseFlags overrides options from the command line. -config is handled
// by the caller before the file is loaded, it is only accepted here.
func (o *Options) ParseFlags(fs *flag.FlagSet, args []string) error {
	var configFile string

	fs.StringVar(&o.BridgeHost, "huebridge", o.BridgeHost, "HUE Bridge fixed IP address or hostname")
	fs.StringVar(&o.BridgeHost, "h", o.BridgeHost, "alias for -huebridge")
	fs.IntVar(&o.Timeout, "timeout", o.Timeout, "Communications timeout in milliseconds")
	fs.IntVar(&o.Timeout, "t", o.Timeout, "alias for -timeout")
	fs.BoolVar(&o.Verbose, "verbose", o.Verbose, "Enable verbose logging")
	fs.BoolVar(&o.Verbose, "v", o.Verbose, "alias for -verbose")
	fs.StringVar(&o.Listen, "listen", o.Listen, "HTTP listen address")
	fs.StringVar(&o.Username, "username", o.Username, "Bridge username")
	fs.StringVar(&o.MQTTBroker, "mqtt", o.MQTTBroker, "MQTT broker URL to publish light changes to")
	fs.IntVar(&o.BlinkInterval, "blink", o.BlinkInterval, "Blink interval in milliseconds")
	fs.BoolVar(&o.Demo, "demo", o.Demo, "Use an in-memory demo bridge")
	fs.BoolVar(&o.Pair, "pair", o.Pair, "Create a bridge username (press the link button) and save it")
	fs.StringVar(&configFile, "config", o.File, "Config file")

	return fs.Parse(args)
}

// ConfigFlag returns the value of -config in args, if any
func ConfigFlag(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// Validate checks the options are usable
func (o *Options) Validate() error {
	if o.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if o.BlinkInterval <= 0 {
		return ErrInvalidBlinkInterval
	}
	if !strings.Contains(o.Listen, ":") {
		return errors.Wrapf(ErrInvalidListen, "got %q", o.Listen)
	}
	return nil
}

// TimeoutDuration returns the bridge timeout
func (o *Options) TimeoutDuration() time.Duration {
	return time.Duration(o.Timeout) * time.Millisecond
}

// BlinkIntervalDuration returns the blink period
func (o *Options) BlinkIntervalDuration() time.Duration {
	return time.Duration(o.BlinkInterval) * time.Millisecond
}
