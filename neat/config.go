package neat

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Tie-break policies for crossover between parents of equal fitness.
const (
	// TieBreakPrimary treats the first parent argument as the fitter one.
	// Deterministic given the caller's ordering, which keeps tests stable.
	TieBreakPrimary = "primary"
	// TieBreakRandom picks the primary parent uniformly at random.
	TieBreakRandom = "random"
)

// Config stores the configuration parameters for the NEAT algorithm.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Reproduction ReproductionConfig
	SpeciesSet   SpeciesSetConfig
	Stagnation   StagnationConfig
}

// NeatConfig holds parameters specific to the NEAT algorithm itself.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size"`
	FitnessCriterion     string  `ini:"fitness_criterion"` // e.g., "max", "min", "mean"
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	ResetOnExtinction    bool    `ini:"reset_on_extinction"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
}

// GenomeConfig holds parameters specific to the structure, mutation and
// comparison of genomes.
type GenomeConfig struct {
	// --- Network shape ---
	NumInputs  int  `ini:"num_inputs"`
	NumOutputs int  `ini:"num_outputs"`
	NumHidden  int  `ini:"num_hidden"`
	UseBias    bool `ini:"use_bias"` // adds a bias node with constant activation 1.0

	// FeedForward disallows recurrent connections when true. When false,
	// genomes may contain cycles and are evaluated by multi-step relaxation.
	FeedForward    bool    `ini:"feed_forward"`
	MaxRelaxSteps  int     `ini:"max_relax_steps"` // relaxation passes for recurrent activation
	RelaxTolerance float64 `ini:"relax_tolerance"` // early-exit delta for relaxation; 0 disables

	// --- Compatibility distance coefficients ---
	CompatibilityExcessCoefficient   float64 `ini:"compatibility_excess_coefficient"`   // c1
	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"` // c2
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`   // c3

	// --- Structural mutation ---
	ConnAddProb              float64 `ini:"conn_add_prob"`
	NodeAddProb              float64 `ini:"node_add_prob"`
	EnabledMutateRate        float64 `ini:"enabled_mutate_rate"` // probability of toggling a random gene
	SingleStructuralMutation bool    `ini:"single_structural_mutation"`
	InitialConnection        string  `ini:"initial_connection"` // e.g. 'unconnected', 'fs_neat', 'full_direct', 'partial_direct 0.5'

	// --- Crossover ---
	DisabledInheritProb float64 `ini:"disabled_inherit_prob"` // chance a matching gene disabled in either parent stays disabled
	CrossoverTieBreak   string  `ini:"crossover_tie_break"`   // 'primary' or 'random'

	// --- Node gene attributes ---
	BiasInitMean    float64 `ini:"bias_init_mean"`
	BiasInitStdev   float64 `ini:"bias_init_stdev"`
	BiasInitType    string  `ini:"bias_init_type"` // 'gaussian' or 'uniform'
	BiasReplaceRate float64 `ini:"bias_replace_rate"`
	BiasMutateRate  float64 `ini:"bias_mutate_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power"`
	BiasMaxValue    float64 `ini:"bias_max_value"`
	BiasMinValue    float64 `ini:"bias_min_value"`

	ResponseInitMean    float64 `ini:"response_init_mean"`
	ResponseInitStdev   float64 `ini:"response_init_stdev"`
	ResponseInitType    string  `ini:"response_init_type"`
	ResponseReplaceRate float64 `ini:"response_replace_rate"`
	ResponseMutateRate  float64 `ini:"response_mutate_rate"`
	ResponseMutatePower float64 `ini:"response_mutate_power"`
	ResponseMaxValue    float64 `ini:"response_max_value"`
	ResponseMinValue    float64 `ini:"response_min_value"`

	ActivationDefault    string   `ini:"activation_default"`
	ActivationOptions    []string `ini:"activation_options" delim:" "`
	ActivationMutateRate float64  `ini:"activation_mutate_rate"`

	AggregationDefault    string   `ini:"aggregation_default"`
	AggregationOptions    []string `ini:"aggregation_options" delim:" "`
	AggregationMutateRate float64  `ini:"aggregation_mutate_rate"`

	// --- Connection gene attributes ---
	WeightInitMean    float64 `ini:"weight_init_mean"`
	WeightInitStdev   float64 `ini:"weight_init_stdev"`
	WeightInitType    string  `ini:"weight_init_type"`
	WeightReplaceRate float64 `ini:"weight_replace_rate"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power"`
	WeightMaxValue    float64 `ini:"weight_max_value"`
	WeightMinValue    float64 `ini:"weight_min_value"`

	// --- Derived (not read from the file) ---
	InputKeys  []int `ini:"-"` // -1 .. -NumInputs
	OutputKeys []int `ini:"-"` // 0 .. NumOutputs-1
	BiasKey    int   `ini:"-"` // -(NumInputs+1); meaningful only when UseBias
	HiddenKeys []int `ini:"-"` // NumOutputs .. NumOutputs+NumHidden-1
}

// FirstSplitNodeKey is the node key the innovation tracker should hand to the
// first hidden node created by a split, past all fixed keys.
func (gc *GenomeConfig) FirstSplitNodeKey() int {
	return gc.NumOutputs + gc.NumHidden
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	Elitism           int     `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
	MinSpeciesSize    int     `ini:"min_species_size"`
}

// SpeciesSetConfig holds parameters related to speciation.
type SpeciesSetConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	SpeciesFitnessFunc string `ini:"species_fitness_func"`
	MaxStagnation      int    `ini:"max_stagnation"`
	SpeciesElitism     int    `ini:"species_elitism"`
}

// DefaultConfig returns a configuration bundle for the given network shape
// with the customary NEAT defaults, usable without a config file.
func DefaultConfig(numInputs, numOutputs int) *Config {
	config := &Config{
		Neat: NeatConfig{
			PopSize:          150,
			FitnessCriterion: "max",
			FitnessThreshold: 0.0,
		},
		Genome: GenomeConfig{
			NumInputs:  numInputs,
			NumOutputs: numOutputs,
			UseBias:    true,

			FeedForward:    true,
			MaxRelaxSteps:  10,
			RelaxTolerance: 1e-3,

			CompatibilityExcessCoefficient:   1.0,
			CompatibilityDisjointCoefficient: 1.0,
			CompatibilityWeightCoefficient:   0.5,

			ConnAddProb:       0.5,
			NodeAddProb:       0.2,
			EnabledMutateRate: 0.01,
			InitialConnection: "fs_neat",

			DisabledInheritProb: 0.75,
			CrossoverTieBreak:   TieBreakPrimary,

			BiasInitMean:    0.0,
			BiasInitStdev:   1.0,
			BiasInitType:    "gaussian",
			BiasReplaceRate: 0.1,
			BiasMutateRate:  0.7,
			BiasMutatePower: 0.5,
			BiasMaxValue:    30.0,
			BiasMinValue:    -30.0,

			ResponseInitMean:    1.0,
			ResponseInitStdev:   0.0,
			ResponseInitType:    "gaussian",
			ResponseReplaceRate: 0.0,
			ResponseMutateRate:  0.0,
			ResponseMutatePower: 0.0,
			ResponseMaxValue:    30.0,
			ResponseMinValue:    -30.0,

			ActivationDefault:    "sigmoid",
			ActivationOptions:    []string{"sigmoid", "tanh", "relu"},
			ActivationMutateRate: 0.0,

			AggregationDefault:    "sum",
			AggregationOptions:    []string{"sum"},
			AggregationMutateRate: 0.0,

			WeightInitMean:    0.0,
			WeightInitStdev:   1.0,
			WeightInitType:    "gaussian",
			WeightReplaceRate: 0.1,
			WeightMutateRate:  0.8,
			WeightMutatePower: 0.5,
			WeightMaxValue:    30.0,
			WeightMinValue:    -30.0,
		},
		Reproduction: ReproductionConfig{
			Elitism:           2,
			SurvivalThreshold: 0.2,
			MinSpeciesSize:    2,
		},
		SpeciesSet: SpeciesSetConfig{
			CompatibilityThreshold: 3.0,
		},
		Stagnation: StagnationConfig{
			SpeciesFitnessFunc: "mean",
			MaxStagnation:      15,
			SpeciesElitism:     2,
		},
	}
	config.Genome.DeriveKeys()
	return config
}

// LoadConfig loads configuration parameters from an INI file.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := &Config{}

	if err := cfg.Section("NEAT").MapTo(&config.Neat); err != nil {
		return nil, fmt.Errorf("failed to map [NEAT] section: %w", err)
	}
	if err := cfg.Section("DefaultGenome").MapTo(&config.Genome); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultGenome] section: %w", err)
	}
	if err := cfg.Section("DefaultReproduction").MapTo(&config.Reproduction); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultReproduction] section: %w", err)
	}
	if err := cfg.Section("DefaultSpeciesSet").MapTo(&config.SpeciesSet); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultSpeciesSet] section: %w", err)
	}
	if err := cfg.Section("DefaultStagnation").MapTo(&config.Stagnation); err != nil {
		return nil, fmt.Errorf("failed to map [DefaultStagnation] section: %w", err)
	}

	// Re-read booleans that trip MapTo when followed by inline comments.
	genomeSection := cfg.Section("DefaultGenome")
	if key, err := genomeSection.GetKey("feed_forward"); err == nil {
		config.Genome.FeedForward, _ = key.Bool()
	}
	if key, err := genomeSection.GetKey("use_bias"); err == nil {
		config.Genome.UseBias, _ = key.Bool()
	}
	if key, err := genomeSection.GetKey("single_structural_mutation"); err == nil {
		config.Genome.SingleStructuralMutation, _ = key.Bool()
	}
	neatSection := cfg.Section("NEAT")
	if key, err := neatSection.GetKey("reset_on_extinction"); err == nil {
		config.Neat.ResetOnExtinction, _ = key.Bool()
	}
	if key, err := neatSection.GetKey("no_fitness_termination"); err == nil {
		config.Neat.NoFitnessTermination, _ = key.Bool()
	}

	// Scrub string values that may carry inline comments or stray spaces.
	config.Genome.BiasInitType = cleanIniString(config.Genome.BiasInitType)
	config.Genome.ResponseInitType = cleanIniString(config.Genome.ResponseInitType)
	config.Genome.WeightInitType = cleanIniString(config.Genome.WeightInitType)
	config.Genome.ActivationDefault = cleanIniString(config.Genome.ActivationDefault)
	config.Genome.AggregationDefault = cleanIniString(config.Genome.AggregationDefault)
	config.Genome.InitialConnection = cleanIniString(config.Genome.InitialConnection)
	config.Genome.CrossoverTieBreak = cleanIniString(config.Genome.CrossoverTieBreak)
	config.Neat.FitnessCriterion = cleanIniString(config.Neat.FitnessCriterion)
	config.Stagnation.SpeciesFitnessFunc = cleanIniString(config.Stagnation.SpeciesFitnessFunc)
	for i, opt := range config.Genome.ActivationOptions {
		config.Genome.ActivationOptions[i] = strings.TrimSpace(opt)
	}
	for i, opt := range config.Genome.AggregationOptions {
		config.Genome.AggregationOptions[i] = strings.TrimSpace(opt)
	}

	applyDefaults(cfg, config)
	config.Genome.DeriveKeys()

	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults fills in values the file left unset, mirroring the defaults
// the reference implementations bake in. Settings where zero is a legal
// choice are checked for key presence rather than for the zero value.
func applyDefaults(cfg *ini.File, config *Config) {
	if config.Genome.BiasInitType == "" {
		config.Genome.BiasInitType = "gaussian"
	}
	if config.Genome.ResponseInitType == "" {
		config.Genome.ResponseInitType = "gaussian"
	}
	if config.Genome.WeightInitType == "" {
		config.Genome.WeightInitType = "gaussian"
	}
	if config.Genome.ActivationDefault == "" {
		config.Genome.ActivationDefault = "random"
	}
	if config.Genome.AggregationDefault == "" {
		config.Genome.AggregationDefault = "random"
	}
	if config.Genome.InitialConnection == "" {
		config.Genome.InitialConnection = "unconnected"
	}
	if config.Genome.MaxRelaxSteps == 0 {
		config.Genome.MaxRelaxSteps = 10
	}
	if !cfg.Section("DefaultGenome").HasKey("disabled_inherit_prob") {
		config.Genome.DisabledInheritProb = 0.75
	}
	if config.Genome.CrossoverTieBreak == "" {
		config.Genome.CrossoverTieBreak = TieBreakPrimary
	}
	if config.Reproduction.MinSpeciesSize == 0 {
		config.Reproduction.MinSpeciesSize = 1
	}
	if !cfg.Section("DefaultReproduction").HasKey("survival_threshold") {
		config.Reproduction.SurvivalThreshold = 0.2
	}
	if config.Stagnation.SpeciesFitnessFunc == "" {
		config.Stagnation.SpeciesFitnessFunc = "mean"
	}
	if config.Stagnation.MaxStagnation == 0 {
		config.Stagnation.MaxStagnation = 15
	}
}

// DeriveKeys computes the fixed node key layout: inputs use negative keys,
// the bias node sits just past the inputs, outputs start at 0 and the
// configured hidden nodes follow them. Callers that change the network shape
// on a programmatic config must call it again before building genomes.
func (gc *GenomeConfig) DeriveKeys() {
	gc.InputKeys = make([]int, gc.NumInputs)
	for i := 0; i < gc.NumInputs; i++ {
		gc.InputKeys[i] = -(i + 1)
	}
	gc.BiasKey = -(gc.NumInputs + 1)
	gc.OutputKeys = make([]int, gc.NumOutputs)
	for i := 0; i < gc.NumOutputs; i++ {
		gc.OutputKeys[i] = i
	}
	gc.HiddenKeys = make([]int, gc.NumHidden)
	for i := 0; i < gc.NumHidden; i++ {
		gc.HiddenKeys[i] = gc.NumOutputs + i
	}
}

func validate(config *Config) error {
	g := &config.Genome
	if g.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if g.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if len(g.ActivationOptions) == 0 {
		return fmt.Errorf("config error: activation_options must be specified")
	}
	if len(g.AggregationOptions) == 0 {
		return fmt.Errorf("config error: aggregation_options must be specified")
	}
	if g.CompatibilityExcessCoefficient < 0 || g.CompatibilityDisjointCoefficient < 0 || g.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility coefficients cannot be negative")
	}
	if g.ConnAddProb < 0 || g.ConnAddProb > 1 {
		return fmt.Errorf("config error: conn_add_prob must be between 0 and 1")
	}
	if g.NodeAddProb < 0 || g.NodeAddProb > 1 {
		return fmt.Errorf("config error: node_add_prob must be between 0 and 1")
	}
	if g.DisabledInheritProb < 0 || g.DisabledInheritProb > 1 {
		return fmt.Errorf("config error: disabled_inherit_prob must be between 0 and 1")
	}
	if g.CrossoverTieBreak != TieBreakPrimary && g.CrossoverTieBreak != TieBreakRandom {
		return fmt.Errorf("config error: invalid crossover_tie_break '%s'", g.CrossoverTieBreak)
	}
	if g.MaxRelaxSteps <= 0 {
		return fmt.Errorf("config error: max_relax_steps must be positive")
	}
	if g.BiasMaxValue < g.BiasMinValue {
		return fmt.Errorf("config error: bias_max_value cannot be less than bias_min_value")
	}
	if g.ResponseMaxValue < g.ResponseMinValue {
		return fmt.Errorf("config error: response_max_value cannot be less than response_min_value")
	}
	if g.WeightMaxValue < g.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}
	if config.Reproduction.SurvivalThreshold < 0 || config.Reproduction.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be between 0 and 1")
	}
	if config.Reproduction.MinSpeciesSize <= 0 {
		return fmt.Errorf("config error: min_species_size must be positive")
	}
	if config.SpeciesSet.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if config.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}

	validCriteria := map[string]bool{"max": true, "min": true, "mean": true}
	if !validCriteria[strings.ToLower(config.Neat.FitnessCriterion)] {
		return fmt.Errorf("config error: invalid fitness_criterion '%s', must be one of 'max', 'min', 'mean'", config.Neat.FitnessCriterion)
	}

	validConnections := map[string]bool{
		"unconnected": true, "fs_neat": true,
		"full_direct": true, "full_nodirect": true,
		"partial_direct": true, "partial_nodirect": true,
	}
	baseConnection := strings.Fields(g.InitialConnection)[0]
	if !validConnections[baseConnection] {
		return fmt.Errorf("config error: invalid initial_connection type '%s'", baseConnection)
	}

	if _, ok := StatFunctions[strings.ToLower(config.Stagnation.SpeciesFitnessFunc)]; !ok {
		return fmt.Errorf("config error: invalid species_fitness_func '%s'", config.Stagnation.SpeciesFitnessFunc)
	}

	for _, name := range g.ActivationOptions {
		if _, err := GetActivation(name); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	for _, name := range g.AggregationOptions {
		if _, err := GetAggregation(name); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	return nil
}

// cleanIniString removes inline comments and trims whitespace from a string
// read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
