package scheduler

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
)

// RunStats reports how a genetic run ended.
type RunStats struct {
	Generations int           `json:"generations"`
	BestFitness float64       `json:"best_fitness"`
	Converged   bool          `json:"converged"`
	TimedOut    bool          `json:"timed_out"`
	Elapsed     time.Duration `json:"elapsed"`
}

type individual struct {
	schedule *Schedule
	eval     Evaluation
}

// GeneticSolver refines greedy seeds with tournament selection, uniform
// per-demand crossover, mutation and elitism. All randomness flows through
// the injected rng, so a fixed seed reproduces the run exactly.
type GeneticSolver struct {
	ds     *Dataset
	cfg    Config
	clock  Clock
	rng    *rand.Rand
	log    *zap.Logger
	greedy *GreedySolver
	eval   *Evaluator
}

// NewGeneticSolver wires a solver. clock may be nil for the system clock and
// log may be nil for silent operation.
func NewGeneticSolver(ds *Dataset, cfg Config, clock Clock, rng *rand.Rand, log *zap.Logger) *GeneticSolver {
	cfg = cfg.Normalized()
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GeneticSolver{
		ds:     ds,
		cfg:    cfg,
		clock:  clock,
		rng:    rng,
		log:    log,
		greedy: NewGreedySolver(ds, cfg),
		eval:   NewEvaluator(ds, cfg),
	}
}

// Solve evolves a population and returns the best schedule found together
// with its evaluation. Cancellation returns the best-so-far alongside the
// context error.
func (g *GeneticSolver) Solve(ctx context.Context, demands []Demand) (*Schedule, Evaluation, RunStats, error) {
	start := g.clock.Now()
	deadline := start.Add(g.cfg.MaxExecutionTime)

	population := g.seedPopulation(demands)
	g.sortPopulation(population)
	best := population[0]

	stats := RunStats{}
	history := make([]float64, 0, g.cfg.ConvergenceWindow)

	for gen := 0; gen < g.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = g.clock.Now().Sub(start)
			stats.BestFitness = best.eval.Fitness
			return best.schedule, best.eval, stats, err
		}
		if !g.clock.Now().Before(deadline) {
			stats.TimedOut = true
			break
		}

		population = g.nextGeneration(population)
		g.sortPopulation(population)
		if better(population[0], best) {
			best = population[0]
		}
		stats.Generations = gen + 1

		if best.eval.Feasible() && best.eval.SoftPenalty == 0 && best.eval.ShapePenalty == 0 {
			stats.Converged = true
			break
		}

		history = append(history, best.eval.Fitness)
		if len(history) > g.cfg.ConvergenceWindow {
			history = history[1:]
		}
		if len(history) == g.cfg.ConvergenceWindow && converged(history, g.cfg.ConvergenceThreshold) {
			stats.Converged = true
			break
		}
	}

	stats.BestFitness = best.eval.Fitness
	stats.Elapsed = g.clock.Now().Sub(start)
	g.log.Debug("genetic run finished",
		zap.Int("generations", stats.Generations),
		zap.Float64("best_fitness", stats.BestFitness),
		zap.Bool("converged", stats.Converged),
		zap.Bool("timed_out", stats.TimedOut),
	)
	return best.schedule, best.eval, stats, nil
}

// seedPopulation builds the initial pool: one deterministic greedy schedule
// plus jittered greedy variants.
func (g *GeneticSolver) seedPopulation(demands []Demand) []individual {
	population := make([]individual, 0, g.cfg.PopulationSize)

	deterministic := g.greedy.Solve(demands, nil)
	population = append(population, individual{deterministic, g.eval.Evaluate(deterministic)})

	for len(population) < g.cfg.PopulationSize {
		s := g.greedy.Solve(demands, g.rng)
		population = append(population, individual{s, g.eval.Evaluate(s)})
	}
	return population
}

func (g *GeneticSolver) nextGeneration(population []individual) []individual {
	next := make([]individual, 0, len(population))

	elite := g.cfg.EliteSize
	if elite > len(population) {
		elite = len(population)
	}
	for i := 0; i < elite; i++ {
		next = append(next, population[i])
	}

	for len(next) < len(population) {
		pa := g.tournament(population)
		pb := g.tournament(population)

		var child *Schedule
		if g.rng.Float64() < g.cfg.CrossoverRate {
			child = g.crossover(pa.schedule, pb.schedule)
		} else {
			child = pa.schedule.Clone()
		}
		g.mutate(child)
		child.Normalize()
		next = append(next, individual{child, g.eval.Evaluate(child)})
	}
	return next
}

func (g *GeneticSolver) tournament(population []individual) individual {
	best := population[g.rng.Intn(len(population))]
	for i := 1; i < g.cfg.TournamentSize; i++ {
		candidate := population[g.rng.Intn(len(population))]
		if better(candidate, best) {
			best = candidate
		}
	}
	return best
}

// crossover picks each demand's placements from one parent uniformly, drops
// the placements that are no longer feasible on the child's board, then
// refills the missing periods greedily. The child therefore never inherits a
// clash from its parents.
func (g *GeneticSolver) crossover(pa, pb *Schedule) *Schedule {
	child := NewSchedule(pa.Demands)
	b := newBoard(g.ds)

	for i, d := range child.Demands {
		source := pa.Placements[i]
		if g.rng.Float64() < 0.5 {
			source = pb.Placements[i]
		}
		for _, p := range source {
			if b.canPlace(d, p) {
				child.Placements[i] = append(child.Placements[i], p)
				b.place(d, p)
			}
		}
	}

	for i, d := range child.Demands {
		for len(child.Placements[i]) < d.Periods {
			p, ok := g.greedy.bestPlacement(b, d, child.Placements[i], g.rng)
			if !ok {
				break
			}
			child.Placements[i] = append(child.Placements[i], p)
			b.place(d, p)
		}
	}
	return child
}

// mutate walks every demand and, with probability MutationRate each,
// relocates one of its placements to another hard-feasible cell.
func (g *GeneticSolver) mutate(s *Schedule) {
	b := newBoardFrom(g.ds, s)
	for i := range s.Demands {
		if g.rng.Float64() >= g.cfg.MutationRate {
			continue
		}
		if len(s.Placements[i]) == 0 {
			continue
		}
		d := s.Demands[i]

		j := g.rng.Intn(len(s.Placements[i]))
		removed := s.Placements[i][j]
		s.Placements[i] = append(s.Placements[i][:j], s.Placements[i][j+1:]...)
		b.unplace(d, removed)

		if p, ok := g.greedy.bestPlacement(b, d, s.Placements[i], g.rng); ok {
			s.Placements[i] = append(s.Placements[i], p)
			b.place(d, p)
		} else {
			// Nothing better exists; keep the original cell.
			s.Placements[i] = append(s.Placements[i], removed)
			b.place(d, removed)
		}
	}
}

func (g *GeneticSolver) sortPopulation(population []individual) {
	sort.SliceStable(population, func(i, j int) bool {
		return better(population[i], population[j])
	})
}

// better orders individuals by fitness, breaking ties by hard violations,
// soft penalty and finally the number of roomless placements.
func better(a, b individual) bool {
	if a.eval.Fitness != b.eval.Fitness {
		return a.eval.Fitness < b.eval.Fitness
	}
	if len(a.eval.Hard) != len(b.eval.Hard) {
		return len(a.eval.Hard) < len(b.eval.Hard)
	}
	if a.eval.SoftPenalty != b.eval.SoftPenalty {
		return a.eval.SoftPenalty < b.eval.SoftPenalty
	}
	return roomless(a.schedule) < roomless(b.schedule)
}

func roomless(s *Schedule) int {
	n := 0
	for _, ps := range s.Placements {
		for _, p := range ps {
			if p.RoomID == "" {
				n++
			}
		}
	}
	return n
}

// converged reports whether the best fitness moved less than threshold
// (relative) across the window.
func converged(history []float64, threshold float64) bool {
	first, last := history[0], history[len(history)-1]
	denom := first
	if denom < 0 {
		denom = -denom
	}
	if denom < 1 {
		denom = 1
	}
	improvement := (first - last) / denom
	return improvement < threshold
}
