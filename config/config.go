package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/spec"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Radio    Radio    `yaml:"radio"`
	Evaluate Evaluate `yaml:"evaluate"`
}

type Radio struct {
	// crazyflie link uri. i.e. radio://0/80/2M/E7E7E7E7E7
	URI string `yaml:"uri,omitempty"`
	// default distance threshold in meters. nil when the file omits it,
	// so an explicit 0 survives to the range check
	Threshold *float64 `yaml:"threshold,omitempty"`
	// pause after each parameter write
	WritePause string `yaml:"writePause,omitempty"`
	// delay before re-reading the parameters
	Settle string `yaml:"settle,omitempty"`
	// wait after requesting parameter updates
	UpdateWait string `yaml:"updateWait,omitempty"`
	// per request timeout of the parameter protocol
	Timeout string `yaml:"timeout,omitempty"`
	// directory holding cached parameter TOCs
	Cache string `yaml:"cache,omitempty"`
}

type Evaluate struct {
	// ui server host
	Host string `yaml:"host,omitempty"`
	// ui server port
	Port int `yaml:"port,omitempty"`
	// default distance threshold in meters
	Threshold *float64 `yaml:"threshold,omitempty"`
	// how long to wait for a reply to each command
	ReplyTimeout string `yaml:"replyTimeout,omitempty"`
	// pause between restart and enablePolicySwitching
	StepPause string `yaml:"stepPause,omitempty"`
}

// DefaultPath is $HOME/.config/rltctl/rltctl.yml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "rltctl", "rltctl.yml"), nil
}

// Load reads path. An empty path loads the default file when it exists
// and falls back to built-in defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			logrus.Debugf("no home directory, using built-in defaults: %s", err)
			cfg.applyDefaults()
			return cfg, nil
		}
		path = p
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()
	if err = yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	logrus.Debugf("config loaded from %s", path)
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if len(c.Radio.URI) == 0 {
		c.Radio.URI = spec.DefaultRadioURI
	}
	if c.Radio.Threshold == nil {
		c.Radio.Threshold = float64Ptr(spec.DefaultRadioThreshold)
	}
	if len(c.Radio.WritePause) == 0 {
		c.Radio.WritePause = "100ms"
	}
	if len(c.Radio.Settle) == 0 {
		c.Radio.Settle = "500ms"
	}
	if len(c.Radio.UpdateWait) == 0 {
		c.Radio.UpdateWait = "500ms"
	}
	if len(c.Radio.Timeout) == 0 {
		c.Radio.Timeout = "1s"
	}
	if len(c.Radio.Cache) == 0 {
		c.Radio.Cache = "./cache"
	}

	if len(c.Evaluate.Host) == 0 {
		c.Evaluate.Host = spec.DefaultEvaluateHost
	}
	if c.Evaluate.Port == 0 {
		c.Evaluate.Port = spec.DefaultEvaluatePort
	}
	if c.Evaluate.Threshold == nil {
		c.Evaluate.Threshold = float64Ptr(spec.DefaultEvaluateThreshold)
	}
	if len(c.Evaluate.ReplyTimeout) == 0 {
		c.Evaluate.ReplyTimeout = "2s"
	}
	if len(c.Evaluate.StepPause) == 0 {
		c.Evaluate.StepPause = "1s"
	}
}

func (c *Config) validate() error {
	for name, d := range map[string]string{
		"radio.writePause":      c.Radio.WritePause,
		"radio.settle":          c.Radio.Settle,
		"radio.updateWait":      c.Radio.UpdateWait,
		"radio.timeout":         c.Radio.Timeout,
		"evaluate.replyTimeout": c.Evaluate.ReplyTimeout,
		"evaluate.stepPause":    c.Evaluate.StepPause,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func float64Ptr(f float64) *float64 {
	return &f
}

// Duration parses a validated duration field
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
