package scheduler

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// Solver searches for a timetable with a genetic algorithm. A Solver is safe for
// concurrent use; every Solve call owns its population and random source.
type Solver struct {
	params Parameters
}

// NewSolver normalises params and returns a solver.
func NewSolver(params Parameters) *Solver {
	return &Solver{params: params.normalize()}
}

// Parameters returns the effective, normalised parameters.
func (s *Solver) Parameters() Parameters {
	return s.params
}

// Solve places every section exactly once and returns the best candidate found, even
// when it still carries conflicts.
func (s *Solver) Solve(ctx context.Context, inst Instance) (*Result, error) {
	if len(inst.Sections) == 0 {
		return nil, ErrEmptyInstance
	}
	if len(inst.Rooms) == 0 || len(inst.Slots) == 0 || len(inst.Days) == 0 {
		return nil, ErrUnsatisfiable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := s.params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := newRun(s.params, inst, rand.New(rand.NewSource(seed)))

	pop := make([]*chromosome, s.params.PopulationSize)
	for i := range pop {
		pop[i] = r.randomChromosome()
	}
	if err := r.evaluateAll(ctx, pop); err != nil {
		return nil, err
	}

	best := r.fittest(pop).clone()
	stall := 0
	generations := 0
	for generations < s.params.MaxGenerations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if best.feasible() && stall >= s.params.StallGenerations {
			break
		}

		sort.SliceStable(pop, func(i, j int) bool {
			return pop[i].fitness > pop[j].fitness
		})

		next := make([]*chromosome, 0, s.params.PopulationSize)
		for i := 0; i < s.params.EliteCount; i++ {
			next = append(next, pop[i].clone())
		}
		for len(next) < s.params.PopulationSize {
			child1 := r.selectParent(pop).clone()
			child2 := r.selectParent(pop).clone()
			if r.rng.Float64() < s.params.CrossoverRate {
				r.crossover(child1, child2)
			}
			r.mutate(child1)
			r.mutate(child2)
			next = append(next, child1)
			if len(next) < s.params.PopulationSize {
				next = append(next, child2)
			}
		}
		if err := r.evaluateAll(ctx, next[s.params.EliteCount:]); err != nil {
			return nil, err
		}
		pop = next
		generations++

		if candidate := r.fittest(pop); candidate.fitness > best.fitness {
			best = candidate.clone()
			stall = 0
		} else {
			stall++
		}
	}

	return &Result{
		Entries: r.decode(best),
		Stats: Stats{
			Seed:                   seed,
			Generations:            generations,
			BestFitness:            best.fitness,
			HardConflicts:          best.hard,
			CapacityViolations:     best.capacity,
			AvailabilityViolations: best.availability,
			Feasible:               best.feasible(),
		},
	}, nil
}

type cell struct {
	day  int
	slot int
}

// run holds the per-Solve state derived from the instance.
type run struct {
	params    Parameters
	inst      Instance
	rng       *rand.Rand
	lecturers map[string]models.Lecturer
	fitRooms  [][]int
	openCells [][]cell
	hardW     float64
	capW      float64
}

func newRun(params Parameters, inst Instance, rng *rand.Rand) *run {
	r := &run{
		params:    params,
		inst:      inst,
		rng:       rng,
		lecturers: make(map[string]models.Lecturer, len(inst.Lecturers)),
		fitRooms:  make([][]int, len(inst.Sections)),
		openCells: make([][]cell, len(inst.Sections)),
	}
	for _, lecturer := range inst.Lecturers {
		r.lecturers[lecturer.ID] = lecturer
	}

	for i, section := range inst.Sections {
		for roomIdx, room := range inst.Rooms {
			if FitsCapacity(room, section) {
				r.fitRooms[i] = append(r.fitRooms[i], roomIdx)
			}
		}
		lecturer, ok := r.lecturers[section.LecturerID]
		if !ok {
			continue
		}
		for dayIdx, day := range inst.Days {
			for slotIdx, slot := range inst.Slots {
				if IsWithinAvailability(lecturer, day, slot) {
					r.openCells[i] = append(r.openCells[i], cell{day: dayIdx, slot: slotIdx})
				}
			}
		}
	}

	// A feasible schedule must beat any infeasible one whatever its soft score.
	floor := params.Weights.Availability*float64(len(inst.Sections)) + params.Weights.Distribution + 1
	if params.StrictAvailability {
		floor = params.Weights.Distribution + 1
	}
	r.hardW = math.Max(params.Weights.Hard, floor)
	r.capW = math.Max(params.Weights.Capacity, floor)
	return r
}

func (r *run) randomGene(section int) gene {
	var g gene
	if rooms := r.fitRooms[section]; len(rooms) > 0 && r.rng.Float64() < r.params.InitBias {
		g.room = rooms[r.rng.Intn(len(rooms))]
	} else {
		g.room = r.rng.Intn(len(r.inst.Rooms))
	}
	if cells := r.openCells[section]; len(cells) > 0 && r.rng.Float64() < r.params.InitBias {
		c := cells[r.rng.Intn(len(cells))]
		g.day, g.slot = c.day, c.slot
	} else {
		g.day = r.rng.Intn(len(r.inst.Days))
		g.slot = r.rng.Intn(len(r.inst.Slots))
	}
	return g
}

func (r *run) randomChromosome() *chromosome {
	genes := make([]gene, len(r.inst.Sections))
	for i := range genes {
		genes[i] = r.randomGene(i)
	}
	return &chromosome{genes: genes}
}

func (r *run) decode(c *chromosome) []models.TimetableEntry {
	entries := make([]models.TimetableEntry, len(c.genes))
	for i, g := range c.genes {
		section := r.inst.Sections[i]
		entries[i] = models.TimetableEntry{
			CourseID:     section.ID,
			RoomID:       r.inst.Rooms[g.room].ID,
			LecturerID:   section.LecturerID,
			Day:          r.inst.Days[g.day],
			TimeSlotID:   r.inst.Slots[g.slot].ID,
			AcademicYear: r.inst.AcademicYear,
			Semester:     r.inst.Semester,
		}
	}
	return entries
}

// evaluate is pure with respect to the run; it only writes into c.
func (r *run) evaluate(c *chromosome) {
	entries := r.decode(c)
	hard := HardConflictCount(entries)
	capacity, availability := 0, 0
	for i, g := range c.genes {
		section := r.inst.Sections[i]
		if !FitsCapacity(r.inst.Rooms[g.room], section) {
			capacity++
		}
		lecturer, ok := r.lecturers[section.LecturerID]
		if ok && !IsWithinAvailability(lecturer, r.inst.Days[g.day], r.inst.Slots[g.slot]) {
			availability++
		}
	}

	fitness := r.params.Weights.Distribution * DistributionScore(entries, len(r.inst.Days))
	if r.params.StrictAvailability {
		hard += availability
	} else {
		fitness -= r.params.Weights.Availability * float64(availability)
	}
	fitness -= r.hardW*float64(hard) + r.capW*float64(capacity)

	c.hard = hard
	c.capacity = capacity
	c.availability = availability
	c.fitness = fitness
}

func (r *run) evaluateAll(ctx context.Context, pop []*chromosome) error {
	workers := r.params.Workers
	if workers <= 1 || len(pop) < 2*workers {
		for _, c := range pop {
			r.evaluate(c)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (len(pop) + workers - 1) / workers
	for start := 0; start < len(pop); start += chunk {
		end := start + chunk
		if end > len(pop) {
			end = len(pop)
		}
		shard := pop[start:end]
		g.Go(func() error {
			for _, c := range shard {
				if err := gctx.Err(); err != nil {
					return err
				}
				r.evaluate(c)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *run) fittest(pop []*chromosome) *chromosome {
	best := pop[0]
	for _, c := range pop[1:] {
		if c.fitness > best.fitness {
			best = c
		}
	}
	return best
}

func (r *run) selectParent(pop []*chromosome) *chromosome {
	if r.params.Selection == SelectionRoulette {
		return r.selectByRoulette(pop)
	}
	return r.selectByTournament(pop)
}

func (r *run) selectByTournament(pop []*chromosome) *chromosome {
	best := pop[r.rng.Intn(len(pop))]
	for i := 1; i < r.params.TournamentSize; i++ {
		candidate := pop[r.rng.Intn(len(pop))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return best
}

// selectByRoulette shifts fitness so the weakest individual keeps a small share.
func (r *run) selectByRoulette(pop []*chromosome) *chromosome {
	lowest := math.Inf(1)
	for _, c := range pop {
		lowest = math.Min(lowest, c.fitness)
	}
	shares := make([]float64, len(pop))
	total := 0.0
	for i, c := range pop {
		shares[i] = c.fitness - lowest + 1
		total += shares[i]
	}
	pick := r.rng.Float64() * total
	partial := 0.0
	for i, share := range shares {
		partial += share
		if partial >= pick {
			return pop[i]
		}
	}
	return pop[len(pop)-1]
}

func (r *run) crossover(a, b *chromosome) {
	length := len(a.genes)
	if length < 2 || length != len(b.genes) {
		return
	}
	start := 1 + r.rng.Intn(length-1)
	end := length
	if r.params.Crossover == CrossoverTwoPoint && start < length-1 {
		end = start + 1 + r.rng.Intn(length-start)
	}
	for i := start; i < end; i++ {
		a.genes[i], b.genes[i] = b.genes[i], a.genes[i]
	}
}

func (r *run) mutate(c *chromosome) {
	for i := range c.genes {
		if r.rng.Float64() < r.params.MutationRate {
			c.genes[i] = r.randomGene(i)
		}
	}
}
