package detection

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// Result is a single secret found in tool parameters.
type Result struct {
	RuleID      string
	Description string
	Path        string
}

type Engine struct {
	// detect.Detector is not documented as safe for concurrent use.
	mu       sync.Mutex
	detector *detect.Detector
}

// NewEngine creates a detection engine. An empty configPath selects the
// gitleaks default rule set, otherwise the rules are read from that file.
func NewEngine(configPath string) (*Engine, error) {
	if configPath == "" {
		detector, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load default gitleaks rules: %w", err)
		}
		return &Engine{detector: detector}, nil
	}

	// Setup viper to read the rules file
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Parse into gitleaks config format
	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("failed to translate config: %w", err)
	}

	return &Engine{detector: detect.NewDetector(cfg)}, nil
}

// Detect scans every string value reachable from params, including values
// nested in objects and arrays.
func (e *Engine) Detect(params map[string]interface{}) []Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	var results []Result
	e.walk("parameters", params, &results)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results
}

func (e *Engine) walk(path string, data interface{}, results *[]Result) {
	switch v := data.(type) {
	case string:
		// Only string leaves can carry a secret
		for _, f := range e.detector.DetectString(v) {
			*results = append(*results, Result{
				RuleID:      f.RuleID,
				Description: f.Description,
				Path:        path,
			})
		}
	case map[string]interface{}:
		// Recursively process all fields, extending the path with the key
		for key, value := range v {
			e.walk(path+"."+key, value, results)
		}
	case []interface{}:
		// Process array elements
		for i, item := range v {
			e.walk(fmt.Sprintf("%s[%d]", path, i), item, results)
		}
	}
}
