package icp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyConfig is the on-disk YAML shape a Strategy is built from,
// mirroring the teacher's LoadConfig/SaveConfig split: plain structs decoded
// with yaml.Unmarshal, validated by hand, then translated into the runtime
// types a Strategy actually holds.
type StrategyConfig struct {
	Dim                 int             `yaml:"dim"`
	OutlierMixingWeight float64         `yaml:"outlierMixingWeight"`
	Matcher             MatcherConfig   `yaml:"matcher"`
	ErrorMinimizer      string          `yaml:"errorMinimizer"`
	MaxIterations       int             `yaml:"maxIterations"`
	MinDeltaRotation    float64         `yaml:"minDeltaRotation"`
	MinDeltaTranslation float64         `yaml:"minDeltaTranslation"`
	MaxRotationAngle    float64         `yaml:"maxRotationAngle"`
	MaxTranslationNorm  float64         `yaml:"maxTranslationNorm"`
	OutlierFilter       OutlierFilterConfig `yaml:"outlierFilter"`
	InspectorDir        string          `yaml:"inspectorDir"`
	InspectorCSVPath    string          `yaml:"inspectorCsvPath"`
}

// MatcherConfig selects and parameterizes the Matcher stage.
type MatcherConfig struct {
	Type    string  `yaml:"type"` // "null" or "kdtree"
	KNN     int     `yaml:"knn"`
	Epsilon float64 `yaml:"epsilon"`
}

// OutlierFilterConfig selects and parameterizes the feature outlier filter.
type OutlierFilterConfig struct {
	Type    string  `yaml:"type"` // "null", "maxDist", "minDist", "medianDist", "trimmedDist"
	MaxDist float64 `yaml:"maxDist"`
	MinDist float64 `yaml:"minDist"`
	Factor  float64 `yaml:"factor"`
	Ratio   float64 `yaml:"ratio"`
}

// LoadStrategyConfig reads and validates a StrategyConfig from a YAML file.
func LoadStrategyConfig(path string) (*StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg StrategyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if cfg.Dim != 2 && cfg.Dim != 3 {
		return nil, fmt.Errorf("dim must be 2 or 3, got %d", cfg.Dim)
	}
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("maxIterations must be positive")
	}

	return &cfg, nil
}

// SaveStrategyConfig writes cfg to path as YAML.
func SaveStrategyConfig(path string, cfg *StrategyConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// BuildStrategy translates a validated StrategyConfig into a runtime
// Strategy, wiring the named stage variants to their concrete
// implementations.
func (cfg *StrategyConfig) BuildStrategy() (*Strategy, error) {
	s := &Strategy{
		OutlierMixingWeight: cfg.OutlierMixingWeight,
	}

	switch cfg.Matcher.Type {
	case "", "null":
		s.Matcher = &NullMatcher{}
	case "kdtree":
		knn := cfg.Matcher.KNN
		if knn < 1 {
			knn = 1
		}
		s.Matcher = &KDTreeMatcher{KNN: knn, Epsilon: cfg.Matcher.Epsilon}
	default:
		return nil, fmt.Errorf("unknown matcher type: %q", cfg.Matcher.Type)
	}

	switch cfg.ErrorMinimizer {
	case "", "pointToPoint":
		s.ErrorMinimizer = PointToPointErrorMinimizer{}
	case "pointToPlane":
		s.ErrorMinimizer = PointToPlaneErrorMinimizer{}
	case "identity":
		s.ErrorMinimizer = IdentityErrorMinimizer{Dim: cfg.Dim}
	default:
		return nil, fmt.Errorf("unknown errorMinimizer: %q", cfg.ErrorMinimizer)
	}

	switch cfg.OutlierFilter.Type {
	case "", "null":
		s.FeatureOutlierFilters = FeatureOutlierFilters{NullFeatureOutlierFilter{}}
	case "maxDist":
		s.FeatureOutlierFilters = FeatureOutlierFilters{MaxDistOutlierFilter{MaxDist: cfg.OutlierFilter.MaxDist}}
	case "minDist":
		s.FeatureOutlierFilters = FeatureOutlierFilters{MinDistOutlierFilter{MinDist: cfg.OutlierFilter.MinDist}}
	case "medianDist":
		factor := cfg.OutlierFilter.Factor
		if factor <= 0 {
			factor = 3
		}
		s.FeatureOutlierFilters = FeatureOutlierFilters{MedianDistOutlierFilter{Factor: factor}}
	case "trimmedDist":
		ratio := cfg.OutlierFilter.Ratio
		if ratio <= 0 {
			ratio = 0.8
		}
		s.FeatureOutlierFilters = FeatureOutlierFilters{TrimmedDistOutlierFilter{Ratio: ratio}}
	default:
		return nil, fmt.Errorf("unknown outlierFilter type: %q", cfg.OutlierFilter.Type)
	}

	checkers := TransformationCheckers{
		&CounterTransformationChecker{MaxIterations: cfg.MaxIterations},
	}
	if cfg.MinDeltaRotation > 0 || cfg.MinDeltaTranslation > 0 {
		checkers = append(checkers, &ErrorTransformationChecker{
			MinDeltaRotation:    cfg.MinDeltaRotation,
			MinDeltaTranslation: cfg.MinDeltaTranslation,
			Tail:                3,
		})
	}
	if cfg.MaxRotationAngle > 0 || cfg.MaxTranslationNorm > 0 {
		checkers = append(checkers, &BoundTransformationChecker{
			MaxRotationAngle:   cfg.MaxRotationAngle,
			MaxTranslationNorm: cfg.MaxTranslationNorm,
		})
	}
	s.TransformationCheckers = checkers

	if cfg.InspectorDir != "" || cfg.InspectorCSVPath != "" {
		s.Inspector = &FileInspector{Dir: cfg.InspectorDir, CSVPath: cfg.InspectorCSVPath}
	} else {
		s.Inspector = NoopInspector{}
	}

	s.Transformations = Transformations{TransformFeatures{}, TransformDescriptors{}}
	s.DescriptorOutlierFilter = NullDescriptorOutlierFilter{}

	s.Validate(cfg.Dim)
	return s, nil
}
