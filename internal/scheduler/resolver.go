package scheduler

import (
	"math"
	"sort"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/pkg/config"
)

const (
	reasonOptimalMatch      = "optimal match"
	reasonLecturerAvailable = "lecturer available"
	reasonCapacitySuitable  = "room capacity suitable"
	reasonAlternative       = "alternative placement"
)

// ScoringWeights are the points awarded to a candidate placement.
// ProximityPoints[i] applies when the start times differ by at most i+1 hours.
type ScoringWeights struct {
	Availability    float64
	Capacity        float64
	ProximityPoints []float64
	SameDay         float64
	SameBuilding    float64
	Limit           int
}

// DefaultScoringWeights returns 30/20/15-10-5/10/5 with a limit of five.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Availability:    30,
		Capacity:        20,
		ProximityPoints: []float64{15, 10, 5},
		SameDay:         10,
		SameBuilding:    5,
		Limit:           5,
	}
}

// ScoringWeightsFromConfig maps resolver configuration onto ScoringWeights.
func ScoringWeightsFromConfig(cfg config.ResolverConfig) ScoringWeights {
	return ScoringWeights{
		Availability:    cfg.AvailabilityPoints,
		Capacity:        cfg.CapacityPoints,
		ProximityPoints: cfg.ProximityPoints,
		SameDay:         cfg.SameDayPoints,
		SameBuilding:    cfg.SameBuildingPoints,
		Limit:           cfg.Limit,
	}
}

// Target is the committed entry to relocate together with its reference data.
type Target struct {
	Entry    models.TimetableEntry
	Section  models.CourseSection
	Lecturer models.Lecturer
	Slot     models.TimeSlot
	Room     models.Room
}

// Suggestion is one ranked alternative placement.
type Suggestion struct {
	Day        models.Weekday `json:"day"`
	TimeSlotID string         `json:"time_slot_id"`
	RoomID     string         `json:"room_id"`
	Score      float64        `json:"score"`
	Reason     string         `json:"reason"`
}

type placement struct {
	day  models.Weekday
	slot string
	room string
}

type scoredCandidate struct {
	Suggestion
	dayIndex  int
	slotStart models.ClockTime
}

// SuggestAlternatives scores every (day, slot, room) cell for target and returns the
// best ones, highest score first. knownConflicts are the entries target currently
// collides with; their cells and the target's own cell are never suggested.
func SuggestAlternatives(target Target, slots []models.TimeSlot, rooms []models.Room, days []models.Weekday, knownConflicts []models.TimetableEntry, weights ScoringWeights) []Suggestion {
	excluded := map[placement]struct{}{
		{day: target.Entry.Day, slot: target.Entry.TimeSlotID, room: target.Entry.RoomID}: {},
	}
	for _, other := range knownConflicts {
		excluded[placement{day: other.Day, slot: other.TimeSlotID, room: other.RoomID}] = struct{}{}
	}

	var candidates []scoredCandidate
	for dayIdx, day := range days {
		for _, slot := range slots {
			for _, room := range rooms {
				if _, skip := excluded[placement{day: day, slot: slot.ID, room: room.ID}]; skip {
					continue
				}
				score := scorePlacement(target, day, slot, room, weights)
				if score <= 0 {
					continue
				}
				candidates = append(candidates, scoredCandidate{
					Suggestion: Suggestion{
						Day:        day,
						TimeSlotID: slot.ID,
						RoomID:     room.ID,
						Score:      score,
						Reason:     reasonFor(score, weights),
					},
					dayIndex:  dayIdx,
					slotStart: slot.StartTime,
				})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.dayIndex != b.dayIndex {
			return a.dayIndex < b.dayIndex
		}
		if a.slotStart != b.slotStart {
			return a.slotStart < b.slotStart
		}
		return a.RoomID < b.RoomID
	})

	limit := weights.Limit
	if limit <= 0 {
		limit = DefaultScoringWeights().Limit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	suggestions := make([]Suggestion, len(candidates))
	for i, candidate := range candidates {
		suggestions[i] = candidate.Suggestion
	}
	return suggestions
}

func scorePlacement(target Target, day models.Weekday, slot models.TimeSlot, room models.Room, weights ScoringWeights) float64 {
	score := 0.0
	if IsWithinAvailability(target.Lecturer, day, slot) {
		score += weights.Availability
	}
	if FitsCapacity(room, target.Section) {
		score += weights.Capacity
	}
	score += proximityPoints(target.Slot.StartTime, slot.StartTime, weights.ProximityPoints)
	if day == target.Entry.Day {
		score += weights.SameDay
	}
	if room.Building != "" && room.Building == target.Room.Building {
		score += weights.SameBuilding
	}
	return score
}

func proximityPoints(original, candidate models.ClockTime, points []float64) float64 {
	diff := candidate.Minutes() - original.Minutes()
	if diff < 0 {
		diff = -diff
	}
	for i, value := range points {
		if diff <= (i+1)*60 {
			return value
		}
	}
	return 0
}

// optimalScore is what a free lecturer, a fitting room and the same day earn
// together. It is zero when that sum does not exceed the single largest award.
func optimalScore(weights ScoringWeights) float64 {
	optimal := weights.Availability + weights.Capacity + weights.SameDay
	if optimal <= math.Max(weights.Availability, weights.Capacity) {
		return 0
	}
	return optimal
}

func reasonFor(score float64, weights ScoringWeights) string {
	optimal := optimalScore(weights)
	switch {
	case optimal > 0 && score >= optimal:
		return reasonOptimalMatch
	case score >= weights.Availability && weights.Availability > 0:
		return reasonLecturerAvailable
	case score >= weights.Capacity && weights.Capacity > 0:
		return reasonCapacitySuitable
	default:
		return reasonAlternative
	}
}
