package persistence

import (
	"time"
)

// TaskModel represents the tasks table. Request and constraints are stored
// as JSON text so the schema survives constraint-shape changes.
type TaskModel struct {
	TaskID         string    `gorm:"column:task_id;primaryKey"`
	Status         string    `gorm:"column:status;not null;index"`
	Request        string    `gorm:"column:request;type:text;not null"`
	Constraints    string    `gorm:"column:constraints;type:text;not null"`
	AssignedRobots string    `gorm:"column:assigned_robots;type:text"` // JSON array as text
	CreatedAt      time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (TaskModel) TableName() string {
	return "tasks"
}

// TimetableModel represents the timetables table, one row per robot. The STN,
// dispatchable graph, and schedule are the timetable's own JSON encoding.
type TimetableModel struct {
	RobotID       string    `gorm:"column:robot_id;primaryKey"`
	ZeroTimepoint time.Time `gorm:"column:zero_timepoint;not null"`
	Document      string    `gorm:"column:document;type:text;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (TimetableModel) TableName() string {
	return "timetables"
}

// TimetableArchiveModel represents the timetable_archive table. Archiving a
// robot moves its current row here so a later registration starts empty
// without losing history.
type TimetableArchiveModel struct {
	ID            int       `gorm:"column:id;primaryKey;autoIncrement"`
	RobotID       string    `gorm:"column:robot_id;not null;index"`
	ZeroTimepoint time.Time `gorm:"column:zero_timepoint;not null"`
	Document      string    `gorm:"column:document;type:text;not null"`
	ArchivedAt    time.Time `gorm:"column:archived_at;not null;autoCreateTime"`
}

func (TimetableArchiveModel) TableName() string {
	return "timetable_archive"
}
