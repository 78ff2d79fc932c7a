package models

import (
	"database/sql"
	"time"
)

const (
	UserStatusActive = "active"
	UserStatusLocked = "locked"
)

type User struct {
	ID             string       `db:"id"`
	FirstName      string       `db:"first_name"`
	LastName       string       `db:"last_name"`
	PhoneNumber    string       `db:"phone_number"`
	Email          string       `db:"email"`
	Status         string       `db:"status"`
	HashedPassword string       `db:"hashed_password"`
	CreatedAt      time.Time    `db:"created_at"`
	DeletedAt      sql.NullTime `db:"deleted_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
