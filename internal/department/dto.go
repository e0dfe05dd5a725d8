package department

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/core/common/validation"
)

type CreateDepartmentDTO struct {
	Name     string `json:"name" validate:"required,max=100"`
	Semester int    `json:"semester" validate:"required,gt=0,lte=255"`
	Cost     int64  `json:"cost" validate:"gte=0,lte=4294967295"`
}

func (d *CreateDepartmentDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
}

func (d *CreateDepartmentDTO) Validate() *errors.AppError {
	d.Normalize()
	return validation.Struct(d)
}

type UpdateDepartmentDTO = CreateDepartmentDTO

type DepartmentResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Semester  int       `json:"semester"`
	Cost      int64     `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DepartmentsResponse struct {
	Departments []DepartmentResponse `json:"departments"`
}

type OptionResponse struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Cost  int64  `json:"cost"`
}

type CostResponse struct {
	DepartmentID int64 `json:"department_id"`
	Cost         int64 `json:"cost"`
}
