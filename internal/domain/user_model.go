package domain

import "time"

// User is an API account. Username and Token are unique; Password holds an
// encoded PBKDF2 hash, never the plain text.
type User struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	Username  string  `gorm:"uniqueIndex;not null;size:50" json:"username"`
	Token     string  `gorm:"uniqueIndex;not null;size:128" json:"-"`
	Password  *string `gorm:"size:255" json:"-"`
	IsActive  bool    `gorm:"not null" json:"is_active"`
	IsAdmin   bool    `gorm:"not null;index" json:"is_admin"`
	IsManager bool    `gorm:"not null" json:"is_manager"`

	CreatedOn  time.Time `gorm:"autoCreateTime" json:"created_on"`
	ModifiedOn time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u User) String() string {
	return u.Username
}
