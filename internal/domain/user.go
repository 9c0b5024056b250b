package domain

import "time"

// User is the credential record created by the signup flow
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id" csv:"id"`
	Name      string    `gorm:"index" json:"name" csv:"name"`
	Email     string    `gorm:"index;size:255" json:"email" csv:"email"`
	Phone     string    `gorm:"size:32" json:"phone" csv:"phone"`
	Gender    string    `gorm:"size:16" json:"gender" csv:"gender"`
	Password  string    `json:"password,omitempty" csv:"-"`
	CreatedAt time.Time `json:"created_at,omitempty" csv:"-"`
}

// TableName Specify table name
func (User) TableName() string {
	return "sf_user"
}

// Public returns a copy without the password
func (u User) Public() User {
	u.Password = ""
	return u
}
