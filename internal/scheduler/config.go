package scheduler

import "time"

// CandidateWeights steer greedy candidate scoring.
type CandidateWeights struct {
	TeacherPreference      float64
	RoomSuitability        float64
	TimePreference         float64
	ConstraintSatisfaction float64
}

// UtilizationBand is the target room usage range [Min, Optimal, Max].
type UtilizationBand struct {
	Min     float64
	Optimal float64
	Max     float64
}

// Config tunes both solvers and the evaluator. It is an explicit value
// passed into every component constructor; there is no package-level state.
type Config struct {
	PopulationSize       int
	Generations          int
	MutationRate         float64
	CrossoverRate        float64
	TournamentSize       int
	EliteSize            int
	ConvergenceThreshold float64
	ConvergenceWindow    int
	MaxExecutionTime     time.Duration

	// HardPenalty is the large multiplier applied to hard violations and
	// unplaced periods when computing fitness.
	HardPenalty float64

	Weights     CandidateWeights
	Utilization UtilizationBand
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PopulationSize:       50,
		Generations:          100,
		MutationRate:         0.1,
		CrossoverRate:        0.8,
		TournamentSize:       3,
		EliteSize:            5,
		ConvergenceThreshold: 0.01,
		ConvergenceWindow:    10,
		MaxExecutionTime:     time.Hour,
		HardPenalty:          1000,
		Weights: CandidateWeights{
			TeacherPreference:      1.0,
			RoomSuitability:        1.5,
			TimePreference:         1.0,
			ConstraintSatisfaction: 2.0,
		},
		Utilization: UtilizationBand{Min: 0.3, Optimal: 0.75, Max: 0.95},
	}
}

// Normalized fills zero fields with defaults so partially built configs stay
// usable in tests and callers.
func (c Config) Normalized() Config {
	def := DefaultConfig()
	if c.PopulationSize <= 0 {
		c.PopulationSize = def.PopulationSize
	}
	if c.Generations <= 0 {
		c.Generations = def.Generations
	}
	if c.MutationRate <= 0 {
		c.MutationRate = def.MutationRate
	}
	if c.CrossoverRate <= 0 {
		c.CrossoverRate = def.CrossoverRate
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = def.TournamentSize
	}
	if c.EliteSize <= 0 {
		c.EliteSize = def.EliteSize
	}
	if c.ConvergenceThreshold <= 0 {
		c.ConvergenceThreshold = def.ConvergenceThreshold
	}
	if c.ConvergenceWindow <= 0 {
		c.ConvergenceWindow = def.ConvergenceWindow
	}
	if c.MaxExecutionTime <= 0 {
		c.MaxExecutionTime = def.MaxExecutionTime
	}
	if c.HardPenalty <= 0 {
		c.HardPenalty = def.HardPenalty
	}
	if c.Weights == (CandidateWeights{}) {
		c.Weights = def.Weights
	}
	if c.Utilization == (UtilizationBand{}) {
		c.Utilization = def.Utilization
	}
	return c
}
