package department

import (
	"fmt"
	"time"

	departmentDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/department"
)

// Department is a fee tier keyed by semester.
type Department struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Semester  int       `json:"semester"`
	Cost      int64     `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Removal reports what a delete took out of the store, including the proofs of the
// transactions that went with it.
type Removal struct {
	Count  int
	Proofs []string
}

// Label is the option text shown when picking a department for a transaction.
func (d *Department) Label() string {
	return fmt.Sprintf("%s - Semester %d", d.Name, d.Semester)
}

func (d *Department) ToResponse() DepartmentResponse {
	return DepartmentResponse{
		ID:        d.ID,
		Name:      d.Name,
		Semester:  d.Semester,
		Cost:      d.Cost,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func NewDepartment(name string, semester int, cost int64) *Department {
	now := time.Now()
	return &Department{
		Name:      name,
		Semester:  semester,
		Cost:      cost,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ToDataModel(d *Department) *departmentDatamodel.Department {
	return &departmentDatamodel.Department{
		ID:        d.ID,
		Name:      d.Name,
		Semester:  d.Semester,
		Cost:      d.Cost,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func FromDataModel(d *departmentDatamodel.Department) *Department {
	return &Department{
		ID:        d.ID,
		Name:      d.Name,
		Semester:  d.Semester,
		Cost:      d.Cost,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
