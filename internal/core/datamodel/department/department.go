package department

import "time"

type Department struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;size:100;index:idx_departments_name;not null"`
	Semester  int       `gorm:"column:semester;uniqueIndex:uq_departments_semester;not null;check:chk_departments_semester,semester > 0"`
	Cost      int64     `gorm:"column:cost;not null;default:0;check:chk_departments_cost,cost >= 0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
