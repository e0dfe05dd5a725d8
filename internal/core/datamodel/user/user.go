package user

import "time"

type User struct {
	ID              int64     `gorm:"primaryKey"`
	Name            string    `gorm:"column:name;size:100;not null"`
	Email           string    `gorm:"column:email;size:150;uniqueIndex:uq_users_email;not null"`
	PasswordHash    string    `gorm:"column:password_hash;not null"`
	Phone           string    `gorm:"column:phone;size:15;uniqueIndex:uq_users_phone;not null"`
	Photo           *string   `gorm:"column:photo"`
	ScanCertificate *string   `gorm:"column:scan_certificate"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex:uq_permissions_name;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

type UserPermission struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       int64     `gorm:"column:user_id;not null;uniqueIndex:uq_user_permissions_user_permission"`
	PermissionID int64     `gorm:"column:permission_id;not null;uniqueIndex:uq_user_permissions_user_permission"`
	GrantedBy    *int64    `gorm:"column:granted_by"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`

	User       User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Permission Permission `gorm:"foreignKey:PermissionID;constraint:OnDelete:CASCADE"`
}
