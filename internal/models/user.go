// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
)

// UserKind distinguishes personal accounts from club accounts.
type UserKind string

const (
	// UserKindUser is a regular student account.
	UserKindUser UserKind = "user"
	// UserKindClub is an account operated on behalf of a campus club.
	UserKindClub UserKind = "club"
)

// Valid reports whether k is a known account kind.
func (k UserKind) Valid() bool {
	return k == UserKindUser || k == UserKindClub
}

// User represents an account in the campus network.
// Followers and Following are projections of the follow edges; the relational
// store derives both from the follows table, the document store keeps them as arrays.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Name      string    `gorm:"not null" json:"name" bson:"name"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username" bson:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	Password  string    `gorm:"not null" json:"-" bson:"password,omitempty"`
	Kind      UserKind  `gorm:"type:varchar(10);not null;default:'user'" json:"user_type" bson:"user_type"`
	ClubName  string    `json:"club_name,omitempty" bson:"club_name,omitempty"`
	Followers []string  `gorm:"-" json:"followers" bson:"followers"`
	Following []string  `gorm:"-" json:"following" bson:"following"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Author returns the minimal projection embedded in post responses.
func (u *User) Author() *PostAuthor {
	return &PostAuthor{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Kind:     u.Kind,
		ClubName: u.ClubName,
	}
}

// Follow is a directed edge: FollowerID follows FolloweeID.
type Follow struct {
	FollowerID string    `gorm:"primaryKey;type:varchar(36)" json:"follower_id"`
	FolloweeID string    `gorm:"primaryKey;type:varchar(36);index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}
