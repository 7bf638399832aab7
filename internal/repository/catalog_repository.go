package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-engine/internal/models"
)

// CatalogRepository reads the reference data owned by the domain data service.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListTimeSlots returns the daily slots ordered by start time.
func (r *CatalogRepository) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, start_time, end_time FROM time_slots ORDER BY start_time ASC, id ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// ListRooms returns every room.
func (r *CatalogRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT id, name, capacity, building FROM rooms ORDER BY id ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// FindSection loads a course section.
func (r *CatalogRepository) FindSection(ctx context.Context, id string) (*models.CourseSection, error) {
	const query = `SELECT id, code, expected_enrollment, credit_hours, lecturer_id, department_id FROM course_sections WHERE id = $1`
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListLecturers loads lecturers with their availability windows.
func (r *CatalogRepository) ListLecturers(ctx context.Context, ids []string) ([]models.Lecturer, error) {
	if len(ids) == 0 {
		return []models.Lecturer{}, nil
	}

	const lecturerQuery = `SELECT id, name FROM lecturers WHERE id = ANY($1) ORDER BY id ASC`
	var lecturers []models.Lecturer
	if err := r.db.SelectContext(ctx, &lecturers, lecturerQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list lecturers: %w", err)
	}

	const windowQuery = `SELECT lecturer_id, day, start_time, end_time FROM lecturer_availability
WHERE lecturer_id = ANY($1) ORDER BY lecturer_id ASC, day ASC, start_time ASC`
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, windowQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list lecturer availability: %w", err)
	}

	index := make(map[string]int, len(lecturers))
	for i := range lecturers {
		index[lecturers[i].ID] = i
		lecturers[i].Availability = []models.AvailabilityWindow{}
	}
	for _, window := range windows {
		if i, ok := index[window.LecturerID]; ok {
			lecturers[i].Availability = append(lecturers[i].Availability, window)
		}
	}
	return lecturers, nil
}
