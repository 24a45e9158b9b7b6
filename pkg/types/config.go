// File: pkg/types/config.go
// ============================================
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// RebalanceFrequency is a closed enum of the gate triggers from the
// rebalance-gate table. New modes require an explicit addition here,
// not duck-typed discovery.
type RebalanceFrequency string

const (
	FrequencyDaily     RebalanceFrequency = "daily"
	FrequencyWeekly    RebalanceFrequency = "weekly"
	FrequencyMonthly   RebalanceFrequency = "monthly"
	FrequencyQuarterly RebalanceFrequency = "quarterly"
	FrequencyYearly    RebalanceFrequency = "yearly"
	// FrequencyCustom signals that CustomRebalanceOffset should be parsed
	// ("3D", "2W", "1M") and used as the gate trigger.
	FrequencyCustom RebalanceFrequency = "custom"
)

// CustomUnit is the unit of a parsed custom rebalance offset.
type CustomUnit string

const (
	CustomUnitDays   CustomUnit = "D"
	CustomUnitWeeks  CustomUnit = "W"
	CustomUnitMonths CustomUnit = "M"
)

// CustomOffset is a parsed "ND"/"NW"/"NM" rebalance offset.
type CustomOffset struct {
	N    int
	Unit CustomUnit
}

// ParseCustomOffset parses strings like "3D", "2W", "1M".
func ParseCustomOffset(s string) (CustomOffset, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) < 2 {
		return CustomOffset{}, fmt.Errorf("invalid custom rebalance offset %q", s)
	}
	unit := CustomUnit(s[len(s)-1:])
	switch unit {
	case CustomUnitDays, CustomUnitWeeks, CustomUnitMonths:
	default:
		return CustomOffset{}, fmt.Errorf("invalid custom rebalance offset unit in %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return CustomOffset{}, fmt.Errorf("invalid custom rebalance offset count in %q", s)
	}
	return CustomOffset{N: n, Unit: unit}, nil
}

// StrengthMethod is a closed enum of signal-strength formulas (§4.2.1).
type StrengthMethod string

const (
	StrengthBinary        StrengthMethod = "binary"
	StrengthLinear        StrengthMethod = "linear"
	StrengthProportional  StrengthMethod = "proportional"
	StrengthMomentumRatio StrengthMethod = "momentum_ratio"
)

// OptimizationMethod is a closed enum of the eight portfolio-optimizer
// alternatives (§4.3).
type OptimizationMethod string

const (
	OptimizationMomentumBased          OptimizationMethod = "momentum_based"
	OptimizationEqualWeight            OptimizationMethod = "equal_weight"
	OptimizationInverseVolatility      OptimizationMethod = "inverse_volatility"
	OptimizationMinimumVariance        OptimizationMethod = "minimum_variance"
	OptimizationMaximumSharpe          OptimizationMethod = "maximum_sharpe"
	OptimizationRiskParity             OptimizationMethod = "risk_parity"
	OptimizationMaximumDiversification OptimizationMethod = "maximum_diversification"
	OptimizationHRP                    OptimizationMethod = "hierarchical_risk_parity"
)

// BenchmarkMode is the §4.4.5 benchmark cost-modeling mode.
type BenchmarkMode string

const (
	BenchmarkPassive   BenchmarkMode = "passive"
	BenchmarkRealistic BenchmarkMode = "realistic"
)

// StrategyConfig is the full set of tunable knobs from §6, with yaml
// tags in the teacher's style so a caller can load it from a config
// file the way the teacher's types.Config is loaded.
type StrategyConfig struct {
	LookbackPeriod          int                `yaml:"lookback_period"`
	RebalanceFrequency      RebalanceFrequency `yaml:"rebalance_frequency"`
	CustomRebalanceOffset   string             `yaml:"custom_rebalance_offset"`
	PositionCount           int                `yaml:"position_count"`
	AbsoluteThreshold       float64            `yaml:"absolute_threshold"`
	UseVolatilityAdjustment bool               `yaml:"use_volatility_adjustment"`
	StrengthMethod          StrengthMethod     `yaml:"strength_method"`
	StrengthScaleRange      float64            `yaml:"strength_scale_range"`
	SafeAsset               string             `yaml:"safe_asset"`

	OptimizationMethod   OptimizationMethod `yaml:"optimization_method"`
	OptimizationLookback int                `yaml:"optimization_lookback"`
	WeightMin            float64            `yaml:"weight_min"`
	WeightMax            float64            `yaml:"weight_max"`
	RiskFreeRate         float64            `yaml:"risk_free_rate"`

	InitialCapital float64 `yaml:"initial_capital"`
	Commission     float64 `yaml:"commission"`
	Slippage       float64 `yaml:"slippage"`

	Benchmark             string        `yaml:"benchmark"`
	BenchmarkIncludeCosts bool          `yaml:"benchmark_include_costs"`
	BenchmarkMode         BenchmarkMode `yaml:"-"`

	StrategyName string `yaml:"strategy_name"`
}

// RequiredHistory is max(lookback_period, optimization_lookback), the
// number of returns every symbol must cover before the first rebalance
// can be forced (§4.4.3); the engine therefore waits for
// RequiredHistory()+1 closes.
func (c StrategyConfig) RequiredHistory() int {
	if c.LookbackPeriod > c.OptimizationLookback {
		return c.LookbackPeriod
	}
	return c.OptimizationLookback
}

// Validate performs the fail-fast configuration checks from §4.4.6/§7.
func (c StrategyConfig) Validate(universe map[string]PriceData) error {
	if c.InitialCapital <= 0 {
		return &ConfigurationError{
			Field:   "initial_capital",
			Message: "initial capital must be > 0",
			Remedy:  "set initial_capital to a positive number",
		}
	}
	if c.PositionCount < 1 {
		return &ConfigurationError{
			Field:   "position_count",
			Message: "position_count must be >= 1",
			Remedy:  "set position_count to 1 or higher",
		}
	}
	if c.WeightMin < 0 || c.WeightMax > 1 || c.WeightMin > c.WeightMax {
		return &ConfigurationError{
			Field:   "weight_min/weight_max",
			Message: fmt.Sprintf("invalid weight bounds [%.4f, %.4f]", c.WeightMin, c.WeightMax),
			Remedy:  "ensure 0 <= weight_min <= weight_max <= 1",
		}
	}
	if !isKnownOptimizationMethod(c.OptimizationMethod) {
		return &ConfigurationError{
			Field:   "optimization_method",
			Message: fmt.Sprintf("unknown optimization method %q", c.OptimizationMethod),
			Remedy:  "use one of the eight documented optimizer methods",
		}
	}
	if c.RebalanceFrequency == FrequencyCustom {
		if _, err := ParseCustomOffset(c.CustomRebalanceOffset); err != nil {
			return &ConfigurationError{
				Field:   "custom_rebalance_offset",
				Message: err.Error(),
				Remedy:  "use the form NDayCount e.g. \"3D\", \"2W\", \"1M\"",
			}
		}
	}
	if c.SafeAsset != "" {
		if _, ok := universe[c.SafeAsset]; !ok {
			remedies := []string{
				fmt.Sprintf("add %q to the price-data universe", c.SafeAsset),
				"change safe_asset to a symbol that is present",
				"set safe_asset to empty to disable defensive rotation",
			}
			return &ConfigurationError{
				Field:   "safe_asset",
				Message: fmt.Sprintf("configured safe_asset %q has no price data", c.SafeAsset),
				Remedy:  strings.Join(remedies, "; "),
			}
		}
	}
	return nil
}

func isKnownOptimizationMethod(m OptimizationMethod) bool {
	switch m {
	case OptimizationMomentumBased, OptimizationEqualWeight, OptimizationInverseVolatility,
		OptimizationMinimumVariance, OptimizationMaximumSharpe, OptimizationRiskParity,
		OptimizationMaximumDiversification, OptimizationHRP:
		return true
	}
	return false
}

// ParamType is a closed enum for ParameterSpace entries.
type ParamType string

const (
	ParamInt         ParamType = "int"
	ParamFloat       ParamType = "float"
	ParamCategorical ParamType = "categorical"
)

// Parameter is one named, typed dimension of a hyperparameter search.
// Either Values (discrete) or Min/Max (range) must be populated,
// depending on how the search method consumes it.
type Parameter struct {
	Name   string
	Type   ParamType
	Values []interface{} // discrete candidates, used by grid search
	Min    float64       // range lower bound, used by random search
	Max    float64       // range upper bound, used by random search
}

// ParameterSpace is the set of named parameters a tuner sweeps over.
type ParameterSpace struct {
	Parameters []Parameter
}

// ValidationIssue names one problem found by ParameterSpace.Validate.
type ValidationIssue struct {
	Parameter string
	Message   string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Parameter, v.Message)
}

// Validate rejects empty value lists, wrong types, and min > max,
// returning every problem found rather than just the first.
func (s ParameterSpace) Validate() []ValidationIssue {
	var issues []ValidationIssue
	for _, p := range s.Parameters {
		switch p.Type {
		case ParamInt, ParamFloat, ParamCategorical:
		default:
			issues = append(issues, ValidationIssue{p.Name, fmt.Sprintf("unknown parameter type %q", p.Type)})
			continue
		}
		hasValues := len(p.Values) > 0
		hasRange := p.Min != 0 || p.Max != 0
		if !hasValues && !hasRange {
			issues = append(issues, ValidationIssue{p.Name, "has neither a value list nor a min/max range"})
			continue
		}
		if hasValues {
			for _, v := range p.Values {
				if !valueMatchesType(v, p.Type) {
					issues = append(issues, ValidationIssue{p.Name, fmt.Sprintf("value %v does not match declared type %s", v, p.Type)})
				}
			}
		}
		if p.Min > p.Max && hasRange && !hasValues {
			issues = append(issues, ValidationIssue{p.Name, fmt.Sprintf("min (%v) > max (%v)", p.Min, p.Max)})
		}
	}
	return issues
}

func valueMatchesType(v interface{}, t ParamType) bool {
	switch t {
	case ParamInt:
		switch v.(type) {
		case int, int64:
			return true
		}
		return false
	case ParamFloat:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case ParamCategorical:
		return true
	}
	return false
}
