package entity

import "time"

// ProfileRole 用户角色
type ProfileRole string

const (
	ProfileRoleMember  ProfileRole = "member"
	ProfileRoleManager ProfileRole = "manager"
	ProfileRoleAdmin   ProfileRole = "admin"
)

// Profile 用户资料，ID 与认证系统的用户 ID 一致
type Profile struct {
	ID          string      `json:"id" gorm:"type:uuid;primaryKey"`
	Email       string      `json:"email" gorm:"type:varchar(255);uniqueIndex"`
	FullName    string      `json:"full_name,omitempty" gorm:"type:varchar(255)"`
	CompanyName string      `json:"company_name,omitempty" gorm:"type:varchar(255)"`
	Role        ProfileRole `json:"role" gorm:"type:varchar(50);default:'member'"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}
