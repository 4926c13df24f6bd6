package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
)

// GormTimetableRepository implements the auction's TimetableStore using GORM.
// The timetable document (STN, dispatchable graph, schedule) is persisted as
// JSON; the caller re-attaches the solver after loading.
type GormTimetableRepository struct {
	db *gorm.DB
}

// NewGormTimetableRepository creates a new GORM timetable repository
func NewGormTimetableRepository(db *gorm.DB) *GormTimetableRepository {
	return &GormTimetableRepository{db: db}
}

// Get retrieves a robot's timetable, or (nil, nil) when none is stored.
func (r *GormTimetableRepository) Get(ctx context.Context, robotID string) (*timetable.Timetable, error) {
	var model TimetableModel
	result := r.db.WithContext(ctx).Where("robot_id = ?", robotID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find timetable: %w", result.Error)
	}

	var tt timetable.Timetable
	if err := json.Unmarshal([]byte(model.Document), &tt); err != nil {
		return nil, fmt.Errorf("invalid timetable document for robot %s: %w", robotID, err)
	}
	return &tt, nil
}

// Save upserts a robot's timetable.
func (r *GormTimetableRepository) Save(ctx context.Context, tt *timetable.Timetable) error {
	doc, err := json.Marshal(tt)
	if err != nil {
		return fmt.Errorf("failed to marshal timetable: %w", err)
	}
	model := &TimetableModel{
		RobotID:       tt.RobotID,
		ZeroTimepoint: tt.ZeroTimepoint,
		Document:      string(doc),
	}
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save timetable: %w", result.Error)
	}
	return nil
}

// Archive moves a robot's current timetable row into the archive table.
// Archiving a robot that has no stored timetable is a no-op.
func (r *GormTimetableRepository) Archive(ctx context.Context, robotID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model TimetableModel
		result := tx.Where("robot_id = ?", robotID).First(&model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to find timetable: %w", result.Error)
		}

		archived := &TimetableArchiveModel{
			RobotID:       model.RobotID,
			ZeroTimepoint: model.ZeroTimepoint,
			Document:      model.Document,
		}
		if err := tx.Create(archived).Error; err != nil {
			return fmt.Errorf("failed to archive timetable: %w", err)
		}
		if err := tx.Delete(&model).Error; err != nil {
			return fmt.Errorf("failed to remove archived timetable: %w", err)
		}
		return nil
	})
}
