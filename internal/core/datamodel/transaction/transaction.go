package transaction

import (
	"time"

	departmentDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/department"
	userDatamodel "github.com/frahmantamala/payflow/internal/core/datamodel/user"
)

type Transaction struct {
	ID            int64     `gorm:"primaryKey"`
	Code          string    `gorm:"column:code;size:32;uniqueIndex:uq_transactions_code;not null"`
	UserID        int64     `gorm:"column:user_id;not null;index"`
	DepartmentID  int64     `gorm:"column:department_id;not null;index"`
	PaymentMethod *string   `gorm:"column:payment_method;check:chk_transactions_payment_method,payment_method IN ('cash','transfer','digital_wallet')"`
	PaymentStatus string    `gorm:"column:payment_status;not null;default:'pending';check:chk_transactions_payment_status,payment_status IN ('pending','complete','failed')"`
	PaymentProof  *string   `gorm:"column:payment_proof"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`

	User       *userDatamodel.User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Department *departmentDatamodel.Department `gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE"`
}
