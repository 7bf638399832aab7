package scheduler

import (
	"errors"
	"strings"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/pkg/config"
)

var (
	// ErrEmptyInstance is returned when there is nothing to schedule.
	ErrEmptyInstance = errors.New("scheduler: instance has no course sections")
	// ErrUnsatisfiable is returned when sections exist but rooms, slots or days do not.
	ErrUnsatisfiable = errors.New("scheduler: instance has no rooms, time slots or days")
)

// Selection strategies.
const (
	SelectionTournament = "tournament"
	SelectionRoulette   = "roulette"
)

// Crossover operators.
const (
	CrossoverSinglePoint = "single_point"
	CrossoverTwoPoint    = "two_point"
)

// Parameters tunes the genetic solver.
type Parameters struct {
	PopulationSize     int
	MaxGenerations     int
	StallGenerations   int
	CrossoverRate      float64
	MutationRate       float64
	Crossover          string
	Selection          string
	TournamentSize     int
	EliteCount         int
	InitBias           float64
	Seed               int64
	Workers            int
	StrictAvailability bool
	Weights            Weights
}

// Weights scales each fitness term.
type Weights struct {
	Hard         float64
	Capacity     float64
	Availability float64
	Distribution float64
}

// DefaultParameters mirrors the engine's configuration defaults.
func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize:   100,
		MaxGenerations:   500,
		StallGenerations: 50,
		CrossoverRate:    0.9,
		MutationRate:     0.02,
		Crossover:        CrossoverTwoPoint,
		Selection:        SelectionTournament,
		TournamentSize:   3,
		EliteCount:       1,
		InitBias:         0.8,
		Workers:          1,
		Weights: Weights{
			Hard:         1000,
			Capacity:     1000,
			Availability: 10,
			Distribution: 1,
		},
	}
}

// ParametersFromConfig maps solver configuration onto Parameters.
func ParametersFromConfig(cfg config.SolverConfig) Parameters {
	return Parameters{
		PopulationSize:     cfg.PopulationSize,
		MaxGenerations:     cfg.MaxGenerations,
		StallGenerations:   cfg.StallGenerations,
		CrossoverRate:      cfg.CrossoverRate,
		MutationRate:       cfg.MutationRate,
		Crossover:          cfg.Crossover,
		Selection:          cfg.Selection,
		TournamentSize:     cfg.TournamentSize,
		EliteCount:         cfg.EliteCount,
		InitBias:           cfg.InitBias,
		Seed:               cfg.Seed,
		Workers:            cfg.Workers,
		StrictAvailability: cfg.StrictAvailability,
		Weights: Weights{
			Hard:         cfg.HardWeight,
			Capacity:     cfg.CapacityWeight,
			Availability: cfg.AvailabilityWeight,
			Distribution: cfg.DistributionWeight,
		},
	}
}

func (p Parameters) normalize() Parameters {
	defaults := DefaultParameters()
	if p.PopulationSize < 2 {
		p.PopulationSize = defaults.PopulationSize
	}
	if p.MaxGenerations <= 0 {
		p.MaxGenerations = defaults.MaxGenerations
	}
	if p.StallGenerations <= 0 {
		p.StallGenerations = defaults.StallGenerations
	}
	if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
		p.CrossoverRate = defaults.CrossoverRate
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		p.MutationRate = defaults.MutationRate
	}
	p.Crossover = strings.ToLower(strings.TrimSpace(p.Crossover))
	if p.Crossover != CrossoverSinglePoint && p.Crossover != CrossoverTwoPoint {
		p.Crossover = defaults.Crossover
	}
	p.Selection = strings.ToLower(strings.TrimSpace(p.Selection))
	if p.Selection != SelectionTournament && p.Selection != SelectionRoulette {
		p.Selection = defaults.Selection
	}
	if p.TournamentSize < 2 {
		p.TournamentSize = 2
	}
	if p.EliteCount < 0 {
		p.EliteCount = 0
	}
	if p.EliteCount > p.PopulationSize {
		p.EliteCount = p.PopulationSize
	}
	if p.InitBias < 0 || p.InitBias > 1 {
		p.InitBias = defaults.InitBias
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	if p.Weights.Hard <= 0 {
		p.Weights.Hard = defaults.Weights.Hard
	}
	if p.Weights.Capacity <= 0 {
		p.Weights.Capacity = defaults.Weights.Capacity
	}
	if p.Weights.Availability < 0 {
		p.Weights.Availability = 0
	}
	if p.Weights.Distribution < 0 {
		p.Weights.Distribution = 0
	}
	return p
}

// Instance is one term's scheduling problem.
type Instance struct {
	AcademicYear string
	Semester     int
	Sections     []models.CourseSection
	Rooms        []models.Room
	Lecturers    []models.Lecturer
	Slots        []models.TimeSlot
	Days         []models.Weekday
}

// Result is the best schedule found and how the search went.
type Result struct {
	Entries []models.TimetableEntry
	Stats   Stats
}

// Stats summarises a finished search.
type Stats struct {
	Seed                   int64
	Generations            int
	BestFitness            float64
	HardConflicts          int
	CapacityViolations     int
	AvailabilityViolations int
	Feasible               bool
}

// gene places one section: indexes into the instance's rooms, days and slots.
type gene struct {
	room int
	day  int
	slot int
}

type chromosome struct {
	genes        []gene
	fitness      float64
	hard         int
	capacity     int
	availability int
}

func (c *chromosome) feasible() bool {
	return c.hard == 0 && c.capacity == 0
}

func (c *chromosome) clone() *chromosome {
	genes := make([]gene, len(c.genes))
	copy(genes, c.genes)
	return &chromosome{
		genes:        genes,
		fitness:      c.fitness,
		hard:         c.hard,
		capacity:     c.capacity,
		availability: c.availability,
	}
}
