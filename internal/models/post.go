package models

import "time"

// PostAuthor is the author projection embedded in post responses.
type PostAuthor struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Kind     UserKind `json:"user_type"`
	ClubName string   `json:"club_name,omitempty"`
}

// Post represents a text or image post. UserID is set at creation and never changes.
type Post struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	Description string      `gorm:"type:text;not null" json:"description" bson:"description"`
	Media       []string    `gorm:"serializer:json;type:text" json:"media" bson:"media"`
	UserID      string      `gorm:"type:varchar(36);not null;index" json:"user_id" bson:"user_id"`
	Author      *PostAuthor `gorm:"-" json:"author,omitempty" bson:"-"`
	Likes       []string    `gorm:"-" json:"likes" bson:"likes"`
	Bookmarks   []string    `gorm:"-" json:"bookmarks" bson:"bookmarks"`
	Comments    []Comment   `gorm:"-" json:"comments" bson:"comments"`
	SharedFrom  *string     `gorm:"type:varchar(36);index" json:"shared_from,omitempty" bson:"shared_from,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" bson:"updated_at"`
}

// Normalize replaces nil collections with empty ones so responses always carry arrays.
func (p *Post) Normalize() {
	if p.Media == nil {
		p.Media = []string{}
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Bookmarks == nil {
		p.Bookmarks = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// Comment is an append-only remark on a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id" bson:"_id"`
	PostID    string    `gorm:"type:varchar(36);not null;index" json:"-" bson:"-"`
	UserID    string    `gorm:"type:varchar(36);not null" json:"user_id" bson:"user_id"`
	Text      string    `gorm:"type:text;not null" json:"text" bson:"text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// PostLike is one member of a post's liker set.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt time.Time
}

// PostBookmark is one member of a post's bookmarker set.
type PostBookmark struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt time.Time
}
