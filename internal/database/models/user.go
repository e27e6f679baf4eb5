package models

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	Role         string `gorm:"default:'inspector'" json:"role"` // admin, inspector
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Schedules []InspectionSchedule `gorm:"foreignKey:AssigneeID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Contactable reports whether reminders can reach this user.
func (u *User) Contactable() bool {
	return u.IsActive && u.Email != ""
}
