package rules

// Settings are the thresholds of the size and complexity rules. Zero
// fields take the default.
type Settings struct {
	MaxNestingDepth         int     `yaml:"max_nesting_depth" json:"max_nesting_depth"`
	MaxParameters           int     `yaml:"max_parameters" json:"max_parameters"`
	MaxCyclomaticComplexity int     `yaml:"max_cyclomatic_complexity" json:"max_cyclomatic_complexity"`
	MinMaintainabilityIndex float64 `yaml:"min_maintainability_index" json:"min_maintainability_index"`
	MemberSizeSigma         float64 `yaml:"member_size_sigma" json:"member_size_sigma"`
	MinSigmaSample          int     `yaml:"min_sigma_sample" json:"min_sigma_sample"`
}

var DefaultSettings = Settings{
	MaxNestingDepth:         3,
	MaxParameters:           5,
	MaxCyclomaticComplexity: 10,
	MinMaintainabilityIndex: 10,
	MemberSizeSigma:         3,
	MinSigmaSample:          10,
}

func (s Settings) withDefaults() Settings {
	if s.MaxNestingDepth <= 0 {
		s.MaxNestingDepth = DefaultSettings.MaxNestingDepth
	}
	if s.MaxParameters <= 0 {
		s.MaxParameters = DefaultSettings.MaxParameters
	}
	if s.MaxCyclomaticComplexity <= 0 {
		s.MaxCyclomaticComplexity = DefaultSettings.MaxCyclomaticComplexity
	}
	if s.MinMaintainabilityIndex <= 0 {
		s.MinMaintainabilityIndex = DefaultSettings.MinMaintainabilityIndex
	}
	if s.MemberSizeSigma <= 0 {
		s.MemberSizeSigma = DefaultSettings.MemberSizeSigma
	}
	if s.MinSigmaSample <= 0 {
		s.MinSigmaSample = DefaultSettings.MinSigmaSample
	}
	return s
}
