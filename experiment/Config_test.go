package experiment

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/samuelfneumann/wsnlearn/agent/approx"
)

func TestConfigDefaults(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: default config invalid: %v", err)
	}

	if c.TotalEpisodes != 100 || c.MaxEnvSteps != 100 || c.Epsilon != 1 ||
		c.EpsilonMin != 0.01 || c.EpsilonDecay != 0.999 || c.Gamma != 0.95 {
		t.Errorf("defaultConfig: unexpected defaults %+v", c)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"episodes", func(c *Config) { c.TotalEpisodes = 0 }},
		{"steps", func(c *Config) { c.MaxEnvSteps = -1 }},
		{"epsilon", func(c *Config) { c.Epsilon = 1.5 }},
		{"epsilon min", func(c *Config) { c.Epsilon = 0.001 }},
		{"decay", func(c *Config) { c.EpsilonDecay = 0 }},
		{"gamma", func(c *Config) { c.Gamma = -0.1 }},
		{"checkpoint", func(c *Config) {
			c.CheckpointInterval = 5
			c.OutputDir = ""
		}},
		{"env", func(c *Config) { c.EnvConf.StepTime = 0 }},
		{"agent", func(c *Config) { c.AgentConf.Type = "Tabular" }},
	}

	for _, test := range tests {
		c := DefaultConfig()
		test.edit(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%v: expected validation error", test.name)
		}
	}
}

func TestConfigSaveLoad(t *testing.T) {
	c := DefaultConfig()
	c.TotalEpisodes = 12
	c.LearnTerminal = true
	c.AgentConf.Output = approx.OutputSoftmax
	c.AgentConf.Hidden = []int{16, 8}
	c.EnvConf.SimArgs = map[string]string{"nodes": "25"}

	filename := filepath.Join(t.TempDir(), "config.json")
	if err := c.Save(filename); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.TotalEpisodes != 12 || !loaded.LearnTerminal ||
		loaded.AgentConf.Output != approx.OutputSoftmax ||
		!reflect.DeepEqual(loaded.AgentConf.Hidden, c.AgentConf.Hidden) ||
		!reflect.DeepEqual(loaded.EnvConf, c.EnvConf) {
		t.Errorf("load: config not restored\n\twant(%+v)\n\thave(%+v)", c,
			loaded)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("load: %v", err)
	}
}
