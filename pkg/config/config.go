// Package config provides configuration loading and management for volsampler.
// It handles loading configuration from YAML or TOML files, validating them and
// providing default values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"volsampler/internal/logging"
)

// Params is the flat parameter set consulted while building samples.
type Params struct {
	// IsDataAugmentation enables random reflection/transpose of extracted subvolumes
	IsDataAugmentation bool `yaml:"isDataAugmentation" toml:"is_data_aug"`

	// OutputDataKind names the network output; any value containing "aff" means affinity
	OutputDataKind string `yaml:"outputDataKind" toml:"out_dtype"`

	// IsRebalance enables class-rebalancing weights on output masks
	IsRebalance bool `yaml:"isRebalance" toml:"is_rebalance"`

	// Seed initializes the sampling random generator
	Seed int64 `yaml:"seed" toml:"seed"`

	// NumCores bounds the number of files read concurrently while building samples
	NumCores int `yaml:"numCores" toml:"num_cores"`
}

// Affinity reports whether the output data kind is an affinity graph.
func (p Params) Affinity() bool { return strings.Contains(p.OutputDataKind, "aff") }

// Network describes the input and output layers of the consuming network as
// name -> [channels, z, y, x].
type Network struct {
	Inputs  map[string][]int `yaml:"inputs" toml:"inputs"`
	Outputs map[string][]int `yaml:"outputs" toml:"outputs"`
}

// InputSpecs returns the input layer dimensions.
func (n *Network) InputSpecs() map[string][4]int { return specs(n.Inputs) }

// OutputSpecs returns the output layer dimensions.
func (n *Network) OutputSpecs() map[string][4]int { return specs(n.Outputs) }

func specs(m map[string][]int) map[string][4]int {
	out := make(map[string][4]int, len(m))
	for name, dims := range m {
		var d [4]int
		copy(d[:], dims)
		out[name] = d
	}
	return out
}

// ImageSection describes one input image stack.
type ImageSection struct {
	// Fnames lists the co-registered volumes stacked as channels
	Fnames []string `yaml:"fnames" toml:"fnames"`

	// IsAutoCrop crops all volumes to their common minimum shape
	IsAutoCrop bool `yaml:"isAutoCrop" toml:"is_auto_crop"`

	// PPTypes is a comma-separated preprocessing token per channel
	PPTypes string `yaml:"ppTypes" toml:"pp_types"`
}

// LabelSection describes one output label stack.
type LabelSection struct {
	Fnames     []string `yaml:"fnames" toml:"fnames"`
	Fmasks     []string `yaml:"fmasks,omitempty" toml:"fmasks,omitempty"`
	IsAutoCrop bool     `yaml:"isAutoCrop" toml:"is_auto_crop"`
	PPTypes    string   `yaml:"ppTypes" toml:"pp_types"`
}

// Config represents the application configuration.
type Config struct {
	Params  Params  `yaml:"params" toml:"params"`
	Network Network `yaml:"network" toml:"network"`

	// Images and Labels are keyed by section id
	Images map[string]*ImageSection `yaml:"images" toml:"images"`
	Labels map[string]*LabelSection `yaml:"labels" toml:"labels"`

	// Samples maps a sample id to its layer name -> section id assignments
	Samples map[string]map[string]int `yaml:"samples" toml:"samples"`

	// Train and Test list the sample ids of each split
	Train []int `yaml:"train" toml:"train"`
	Test  []int `yaml:"test,omitempty" toml:"test,omitempty"`

	Logging logging.Config `yaml:"logging" toml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Params.IsDataAugmentation = true
	cfg.Params.OutputDataKind = "boundary"
	cfg.Params.IsRebalance = false
	cfg.Params.Seed = 1
	cfg.Params.NumCores = runtime.NumCPU()

	cfg.Network.Inputs = map[string][]int{"input": {1, 9, 9, 9}}
	cfg.Network.Outputs = map[string][]int{"output": {1, 1, 1, 1}}

	cfg.Images = map[string]*ImageSection{
		"1": {Fnames: []string{"image1"}, PPTypes: "standard2D"},
	}
	cfg.Labels = map[string]*LabelSection{
		"1": {Fnames: []string{"label1"}, PPTypes: "binary_class"},
	}
	cfg.Samples = map[string]map[string]int{
		"1": {"input": 1, "output": 1},
	}
	cfg.Train = []int{1}

	return cfg
}

// Image returns the image section with the given id.
func (c *Config) Image(id int) (*ImageSection, error) {
	sec, ok := c.Images[strconv.Itoa(id)]
	if !ok {
		return nil, fmt.Errorf("no image section %d", id)
	}
	return sec, nil
}

// Label returns the label section with the given id.
func (c *Config) Label(id int) (*LabelSection, error) {
	sec, ok := c.Labels[strconv.Itoa(id)]
	if !ok {
		return nil, fmt.Errorf("no label section %d", id)
	}
	return sec, nil
}

// Sample returns the layer -> section assignments of a sample.
func (c *Config) Sample(id int) (map[string]int, error) {
	sec, ok := c.Samples[strconv.Itoa(id)]
	if !ok {
		return nil, fmt.Errorf("no sample section %d", id)
	}
	return sec, nil
}

// SampleIDs returns all configured sample ids in ascending order.
func (c *Config) SampleIDs() []int {
	var ids []int
	for k := range c.Samples {
		if id, err := strconv.Atoi(k); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := validate(data, isTOML(configPath)); err != nil {
		return nil, err
	}

	// Sections replace the defaults wholesale.
	cfg.Images, cfg.Labels, cfg.Samples, cfg.Train = nil, nil, nil, nil
	cfg.Network = Network{}
	if isTOML(configPath) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.convertPathsToAbsolute(configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file, chosen by extension.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	var data []byte
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Some settings can be given as relative paths.
// This converts them in-place to absolute paths,
// assuming they were relative to the config file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("error getting absolute path of config file %q: %w", configPath, err)
	}
	dir := filepath.Dir(absPath)

	abs := func(paths []string) {
		for i, p := range paths {
			if p != "" && !filepath.IsAbs(p) {
				paths[i] = filepath.Join(dir, p)
			}
		}
	}
	for _, sec := range c.Images {
		abs(sec.Fnames)
	}
	for _, sec := range c.Labels {
		abs(sec.Fnames)
		abs(sec.Fmasks)
	}
	if c.Logging.Logfile != "" && !filepath.IsAbs(c.Logging.Logfile) {
		c.Logging.Logfile = filepath.Join(dir, c.Logging.Logfile)
	}
	return nil
}
