package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/blade-go/blade/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "blade.json"

	// YAMLConfigFileName is the name of the YAML configuration file.
	// blade.json wins when both exist.
	YAMLConfigFileName = "blade.yaml"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":9000"

	// DefaultShutdownTimeout bounds how long in-flight requests may drain.
	DefaultShutdownTimeout = "10s"

	// DefaultMetricsPath is where Prometheus metrics are exposed.
	DefaultMetricsPath = "/metrics"

	// DefaultManifest is the default manifest path written by "blade scan".
	DefaultManifest = "blade.manifest.json"

	// DefaultOutput is the default file written by "blade gen".
	DefaultOutput = "internal/bladegen/types.go"
)

// Config represents the complete blade.json configuration.
type Config struct {
	// Name is the application name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// BasePackage expands to "<base>/route" and "<base>/interceptor".
	BasePackage string `json:"basePackage,omitempty" yaml:"basePackage,omitempty" validate:"omitempty,excludesall= \\"`

	// Routes lists packages scanned for controllers.
	Routes []string `json:"routes,omitempty" yaml:"routes,omitempty" validate:"dive,required,excludesall= \\"`

	// Interceptors lists packages scanned for interceptors.
	Interceptors []string `json:"interceptors,omitempty" yaml:"interceptors,omitempty" validate:"dive,required,excludesall= \\"`

	// Ioc lists packages scanned for plain components.
	Ioc []string `json:"ioc,omitempty" yaml:"ioc,omitempty" validate:"dive,required,excludesall= \\"`

	// Source is the directory "blade scan" walks for directives.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Manifest is the manifest file path, or an s3://bucket/key URL.
	Manifest string `json:"manifest,omitempty" yaml:"manifest,omitempty"`

	// Output is the Go file written by "blade gen".
	Output string `json:"output,omitempty" yaml:"output,omitempty" validate:"omitempty,endswith=.go"`

	// Server contains HTTP serving configuration.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Debug enables debug logging.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`

	// configPath is the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP serving configuration.
type ServerConfig struct {
	// Address is the listen address (host:port).
	Address string `json:"address,omitempty" yaml:"address,omitempty" validate:"required,hostname_port"`

	// ShutdownTimeout is a Go duration string.
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	// MetricsPath is where Prometheus metrics are served. "-" disables them.
	MetricsPath string `json:"metricsPath,omitempty" yaml:"metricsPath,omitempty" validate:"omitempty,metricspath"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Source:   ".",
		Manifest: DefaultManifest,
		Output:   DefaultOutput,
		Server: ServerConfig{
			Address:         DefaultAddress,
			ShutdownTimeout: DefaultShutdownTimeout,
			MetricsPath:     DefaultMetricsPath,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for blade.json, then blade.yaml.
func Load(dir string) (*Config, error) {
	jsonPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(jsonPath); err == nil {
		return LoadFile(jsonPath)
	}
	yamlPath := filepath.Join(dir, YAMLConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return LoadFile(yamlPath)
	}
	return nil, errors.New(errors.CodeConfigNotFound).
		WithDetail("No blade.json or blade.yaml found in " + dir).
		WithSuggestion("Run 'blade init' or create blade.json manually")
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension: .yaml and .yml are YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No config found at " + path)
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.CodeConfigParse).
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeConfigParse).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = "."
	}
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var detail []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				detail = append(detail, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			detail = append(detail, err.Error())
		}
		return errors.New(errors.CodeConfigValidation).
			WithDetail(strings.Join(detail, "; "))
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return errors.New(errors.CodeConfigValidation).
			WithDetail("server.shutdownTimeout: " + err.Error()).
			WithSuggestion(`Use a Go duration such as "10s"`)
	}
	return nil
}

// ShutdownTimeout returns the parsed shutdown timeout, falling back to the
// default on parse errors.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultShutdownTimeout)
	}
	return d
}

// MetricsEnabled reports whether Prometheus metrics should be served.
func (c *Config) MetricsEnabled() bool {
	return c.Server.MetricsPath != "-"
}

// ManifestPath resolves the manifest path against the config directory.
// S3 URLs are returned unchanged.
func (c *Config) ManifestPath() string {
	return c.resolve(c.Manifest)
}

// SourcePath resolves the scan root against the config directory.
func (c *Config) SourcePath() string {
	return c.resolve(c.Source)
}

// OutputPath resolves the generated file path against the config directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Output)
}

func (c *Config) resolve(p string) string {
	if p == "" || strings.HasPrefix(p, "s3://") || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing blade.json or blade.yaml.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No blade.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("metricspath", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "-" || strings.HasPrefix(s, "/")
	})
	return v
}
