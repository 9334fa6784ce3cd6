// config.go settings for the detection analytics toolkit
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/birdmetrics/internal/errors"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         `yaml:"enabled"`  // true to enable this log
	Path     string       `yaml:"path"`     // path to log file
	Rotation RotationType `yaml:"rotation"` // rotation type
	MaxSize  int64        `yaml:"maxsize"`  // max size in bytes for RotationSize
}

// RotationType defines the type of log rotation
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// MainSettings contains general application settings
type MainSettings struct {
	Name string    `yaml:"name"` // name of this analysis node
	Log  LogConfig `yaml:"log"`  // main log configuration
}

// ActivitySettings holds defaults for the vocal activity rate engine
type ActivitySettings struct {
	Interval string `yaml:"interval"` // deduplication granularity: minute, 15min, hour, day
	Method   string `yaml:"method"`   // interval_deduplication, total_detections, detections_per_day
	BySite   bool   `yaml:"bysite"`   // group by site in addition to species
}

// DiversitySettings holds defaults for the diversity engine
type DiversitySettings struct {
	Statistic string `yaml:"statistic"` // abundance aggregation: sum, mean, median, max, min
}

// ThresholdSettings holds defaults for confidence threshold calibration
type ThresholdSettings struct {
	TargetPrecision float64 `yaml:"targetprecision"` // target probability of correctness
	Sensitivity     float64 `yaml:"sensitivity"`     // logit rescaling factor
	Backtransform   bool    `yaml:"backtransform"`   // fit on logit(confidence)/sensitivity scale
	MinObservations int     `yaml:"minobservations"` // below this the fit is flagged low confidence
}

// SamplingSettings holds defaults for confidence-stratified sampling
type SamplingSettings struct {
	Samples  int   `yaml:"samples"`  // target sample count per species
	Bins     int   `yaml:"bins"`     // number of equal-width confidence bins
	Resample bool  `yaml:"resample"` // redistribute shortfall across remaining bins
	Seed     int64 `yaml:"seed"`     // 0 means non-deterministic
}

// AnalyticsSettings groups the per-engine defaults
type AnalyticsSettings struct {
	Activity  ActivitySettings  `yaml:"activity"`
	Diversity DiversitySettings `yaml:"diversity"`
	Threshold ThresholdSettings `yaml:"threshold"`
	Sampling  SamplingSettings  `yaml:"sampling"`
}

// OutputSettings controls where result tables go
type OutputSettings struct {
	Directory string `yaml:"directory"` // output directory for result CSV files
	Database  string `yaml:"database"`  // optional sqlite database for persisting runs
}

// Settings is the root configuration structure
type Settings struct {
	Debug     bool              `yaml:"debug"`
	Main      MainSettings      `yaml:"main"`
	Analytics AnalyticsSettings `yaml:"analytics"`
	Output    OutputSettings    `yaml:"output"`
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("birdmetrics")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Defaults for every configuration parameter, defined in defaults.go
	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create one with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a default config file to the first default config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "birdmetrics.yaml")

	defaults := &Settings{}
	if err := viper.Unmarshal(defaults); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if err := SaveYAMLConfig(configPath, defaults); err != nil {
		return err
	}

	return viper.ReadInConfig()
}

// SaveYAMLConfig marshals settings to YAML and writes them to configPath.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to yaml: %w", err)
	}

	if err := os.WriteFile(configPath, yamlData, 0o644); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("config_path", configPath).
			Build()
	}

	return nil
}

// Setting returns the current settings instance, loading it if needed.
func Setting() *Settings {
	settingsMutex.RLock()
	if settingsInstance != nil {
		defer settingsMutex.RUnlock()
		return settingsInstance
	}
	settingsMutex.RUnlock()

	if _, err := Load(); err != nil {
		return nil
	}

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ValidateSettings checks enum-valued settings, reporting every invalid
// item at once.
func ValidateSettings(s *Settings) error {
	var invalid []string

	switch s.Analytics.Activity.Method {
	case MethodIntervalDedup, MethodTotalDetections, MethodDetectionsPerDay:
	default:
		invalid = append(invalid, fmt.Sprintf("analytics.activity.method=%q", s.Analytics.Activity.Method))
	}

	switch s.Analytics.Diversity.Statistic {
	case StatSum, StatMean, StatMedian, StatMax, StatMin:
	default:
		invalid = append(invalid, fmt.Sprintf("analytics.diversity.statistic=%q", s.Analytics.Diversity.Statistic))
	}

	if p := s.Analytics.Threshold.TargetPrecision; p <= 0 || p >= 1 {
		invalid = append(invalid, fmt.Sprintf("analytics.threshold.targetprecision=%v", p))
	}
	if s.Analytics.Threshold.Sensitivity <= 0 {
		invalid = append(invalid, fmt.Sprintf("analytics.threshold.sensitivity=%v", s.Analytics.Threshold.Sensitivity))
	}
	if s.Analytics.Sampling.Bins < 1 {
		invalid = append(invalid, fmt.Sprintf("analytics.sampling.bins=%d", s.Analytics.Sampling.Bins))
	}
	if s.Analytics.Sampling.Samples < 1 {
		invalid = append(invalid, fmt.Sprintf("analytics.sampling.samples=%d", s.Analytics.Sampling.Samples))
	}

	if len(invalid) > 0 {
		return errors.ConfigurationError("invalid settings", invalid...)
	}
	return nil
}
