package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

type resolverFixture struct {
	target Target
	slots  []models.TimeSlot
	rooms  []models.Room
	days   []models.Weekday
}

func newResolverFixture() resolverFixture {
	slots := []models.TimeSlot{
		slot("s1", "08:00", "09:00"),
		slot("s2", "09:00", "11:00"),
		slot("s3", "14:00", "17:00"),
	}
	rooms := []models.Room{
		{ID: "r1", Capacity: 40, Building: "A"},
		{ID: "r2", Capacity: 50, Building: "A"},
		{ID: "r3", Capacity: 20, Building: "B"},
	}
	return resolverFixture{
		target: Target{
			Entry:   entry("e1", "r1", "l1", models.Monday, "s3"),
			Section: models.CourseSection{ID: "c1", ExpectedEnrollment: 30, LecturerID: "l1"},
			Lecturer: models.Lecturer{ID: "l1", Availability: []models.AvailabilityWindow{
				window(models.Monday, "08:00", "12:00"),
			}},
			Slot: slots[2],
			Room: rooms[0],
		},
		slots: slots,
		rooms: rooms,
		days:  []models.Weekday{models.Monday, models.Tuesday},
	}
}

func TestSuggestAlternativesRanksSameDayWindowFirst(t *testing.T) {
	f := newResolverFixture()

	suggestions := SuggestAlternatives(f.target, f.slots, f.rooms, f.days, nil, DefaultScoringWeights())
	require.Len(t, suggestions, 5)

	var found bool
	for _, s := range suggestions {
		if s.Day == models.Monday && s.TimeSlotID == "s2" && s.RoomID == "r2" {
			found = true
			assert.GreaterOrEqual(t, s.Score, 65.0)
			assert.Equal(t, "optimal match", s.Reason)
		}
	}
	assert.True(t, found, "MON s2 r2 should be suggested")

	assert.Equal(t, Suggestion{Day: models.Monday, TimeSlotID: "s1", RoomID: "r1", Score: 65, Reason: "optimal match"}, suggestions[0])
	assert.Equal(t, "r2", suggestions[1].RoomID)
	assert.Equal(t, "s1", suggestions[1].TimeSlotID)
	assert.Equal(t, Suggestion{Day: models.Monday, TimeSlotID: "s3", RoomID: "r2", Score: 50, Reason: "lecturer available"}, suggestions[4])
}

func TestSuggestAlternativesOrderingAndBounds(t *testing.T) {
	f := newResolverFixture()

	suggestions := SuggestAlternatives(f.target, f.slots, f.rooms, f.days, nil, DefaultScoringWeights())
	require.NotEmpty(t, suggestions)
	assert.LessOrEqual(t, len(suggestions), 5)
	for i, s := range suggestions {
		assert.Greater(t, s.Score, 0.0)
		if i > 0 {
			assert.GreaterOrEqual(t, suggestions[i-1].Score, s.Score)
		}
		assert.False(t, s.Day == models.Monday && s.TimeSlotID == "s3" && s.RoomID == "r1", "current placement must be excluded")
	}
}

func TestSuggestAlternativesCapacityAddsExactlyTwenty(t *testing.T) {
	f := newResolverFixture()
	small := models.Room{ID: "rx", Capacity: 29, Building: "C"}
	large := small
	large.Capacity = 30

	weights := DefaultScoringWeights()
	cell := []models.TimeSlot{f.slots[1]}
	days := []models.Weekday{models.Tuesday}

	below := SuggestAlternatives(f.target, cell, []models.Room{small}, days, nil, weights)
	above := SuggestAlternatives(f.target, cell, []models.Room{large}, days, nil, weights)
	require.Len(t, above, 1)

	belowScore := 0.0
	if len(below) == 1 {
		belowScore = below[0].Score
	}
	assert.Equal(t, 20.0, above[0].Score-belowScore)
	assert.Equal(t, 20.0, scorePlacement(f.target, models.Monday, f.slots[0], large, weights)-scorePlacement(f.target, models.Monday, f.slots[0], small, weights))
}

func TestSuggestAlternativesDropsNonPositiveScores(t *testing.T) {
	f := newResolverFixture()
	f.target.Lecturer.Availability = nil
	f.target.Section.ExpectedEnrollment = 100

	suggestions := SuggestAlternatives(
		f.target,
		[]models.TimeSlot{f.slots[0]},
		[]models.Room{f.rooms[2]},
		[]models.Weekday{models.Tuesday},
		nil,
		DefaultScoringWeights(),
	)
	assert.Empty(t, suggestions)
}

func TestSuggestAlternativesExcludesConflictingPlacements(t *testing.T) {
	f := newResolverFixture()
	counterpart := entry("e2", "r1", "l9", models.Monday, "s1")

	suggestions := SuggestAlternatives(f.target, f.slots, f.rooms, f.days, []models.TimetableEntry{counterpart}, DefaultScoringWeights())
	for _, s := range suggestions {
		assert.False(t, s.Day == models.Monday && s.TimeSlotID == "s1" && s.RoomID == "r1")
	}
	assert.Equal(t, "r2", suggestions[0].RoomID)
}

func TestSuggestAlternativesHonoursLimit(t *testing.T) {
	f := newResolverFixture()
	weights := DefaultScoringWeights()
	weights.Limit = 2

	assert.Len(t, SuggestAlternatives(f.target, f.slots, f.rooms, f.days, nil, weights), 2)
}

func TestReasonFor(t *testing.T) {
	weights := DefaultScoringWeights()
	assert.Equal(t, "optimal match", reasonFor(65, weights))
	assert.Equal(t, "lecturer available", reasonFor(45, weights))
	assert.Equal(t, "room capacity suitable", reasonFor(25, weights))
	assert.Equal(t, "alternative placement", reasonFor(15, weights))
}

func TestReasonForFollowsCustomWeights(t *testing.T) {
	weights := ScoringWeights{Availability: 50, Capacity: 40, SameDay: 10, Limit: 5}
	assert.Equal(t, 100.0, optimalScore(weights))
	assert.Equal(t, "optimal match", reasonFor(100, weights))
	assert.Equal(t, "lecturer available", reasonFor(65, weights))
	assert.Equal(t, "room capacity suitable", reasonFor(45, weights))

	capacityOnly := ScoringWeights{Capacity: 20, Limit: 3}
	assert.Zero(t, optimalScore(capacityOnly))
	assert.Equal(t, "room capacity suitable", reasonFor(20, capacityOnly))
	assert.Equal(t, "alternative placement", reasonFor(0, capacityOnly))
}

func TestProximityPoints(t *testing.T) {
	points := []float64{15, 10, 5}
	origin := models.MustClockTime("14:00")
	assert.Equal(t, 15.0, proximityPoints(origin, models.MustClockTime("13:00"), points))
	assert.Equal(t, 10.0, proximityPoints(origin, models.MustClockTime("16:00"), points))
	assert.Equal(t, 5.0, proximityPoints(origin, models.MustClockTime("11:00"), points))
	assert.Equal(t, 0.0, proximityPoints(origin, models.MustClockTime("09:00"), points))
}
