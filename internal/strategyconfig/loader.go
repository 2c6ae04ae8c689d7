package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wonny/dinger/backend/internal/screening"
	"github.com/wonny/dinger/backend/pkg/logger"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// Parse decodes and validates one strategy document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDir loads every *.yaml / *.yml file in dir in name order.
// 하나라도 실패하면 전체 실패 (fail fast)
func LoadDir(dir string) ([]*Config, error) {
	paths := make([]string, 0)
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	configs := make([]*Config, 0, len(paths))
	for _, p := range paths {
		cfg, _, err := Load(p)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Strategy builds the immutable screening strategy described by cfg
func (cfg *Config) Strategy() (*screening.Strategy, error) {
	rules := make([]screening.ThresholdRule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		cmp, err := screening.ParseComparator(r.Comparator)
		if err != nil {
			return nil, &screening.ConfigError{Strategy: cfg.Meta.StrategyID, Field: r.Metric, Message: err.Error()}
		}

		rule := screening.ThresholdRule{Metric: r.Metric, Comparator: cmp}
		if cmp == screening.Range {
			rule.Min, rule.Max = deref(r.Min), deref(r.Max)
		} else {
			rule.Bound = deref(r.Bound)
		}
		rules = append(rules, rule)
	}

	opts := []screening.Option{
		screening.WithDescription(cfg.Meta.Description),
		screening.WithMinCriteriaPassed(cfg.Scoring.MinCriteriaPassed),
	}
	if cfg.MarketCap.IsEnabled() {
		opts = append(opts, screening.WithMarketCapGate(cfg.MarketCap.Min, cfg.MarketCap.IsInclusive()))
	} else {
		opts = append(opts, screening.WithoutMarketCapGate())
	}
	if cfg.Scoring.EmphasisThreshold != nil {
		opts = append(opts, screening.WithEmphasisThreshold(*cfg.Scoring.EmphasisThreshold))
	}

	return screening.NewStrategy(cfg.Meta.StrategyID, rules, opts...)
}

// RegisterDir loads strategy files from dir into the registry. A missing
// directory is not an error; an invalid file is.
func RegisterDir(reg *screening.Registry, dir string, log *logger.Logger) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.WithField("dir", dir).Debug("Strategy directory not found, using presets only")
		return nil
	}

	configs, err := LoadDir(dir)
	if err != nil {
		return fmt.Errorf("load strategies: %w", err)
	}

	for _, cfg := range configs {
		s, err := cfg.Strategy()
		if err != nil {
			return err
		}
		hash, err := Hash(cfg)
		if err != nil {
			return fmt.Errorf("hash strategy %s: %w", cfg.Meta.StrategyID, err)
		}
		reg.Register(s)

		for _, w := range Warn(cfg) {
			log.WithFields(map[string]interface{}{
				"strategy": cfg.Meta.StrategyID,
				"code":     w.Code,
			}).Warn(w.Message)
		}
		log.WithFields(map[string]interface{}{
			"strategy": cfg.Meta.StrategyID,
			"version":  cfg.Meta.Version,
			"rules":    len(cfg.Rules),
			"hash":     hash[:12],
		}).Info("Strategy loaded")
	}
	return nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
