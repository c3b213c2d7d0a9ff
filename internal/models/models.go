package models

import "time"

// Visibility controls whether joining a group needs admin approval.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

type Account struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Fullname string    `json:"fullname,omitempty"`
	Bio      string    `json:"bio,omitempty"`
	Avatar   string    `json:"avatar,omitempty"`
	IsAdmin  bool      `json:"is_admin,omitempty"`
	Created  time.Time `json:"created"`
}

type Group struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	Image       string     `json:"image,omitempty"`
	Visibility  Visibility `json:"visibility"`
	AdminID     string     `json:"admin_id"`
	Created     time.Time  `json:"created"`
}

type Post struct {
	ID       string    `json:"id"`
	AuthorID string    `json:"author_id"`
	GroupID  string    `json:"group_id,omitempty"`
	Content  string    `json:"content"`
	Image    string    `json:"image,omitempty"`
	Video    string    `json:"video,omitempty"`
	Created  time.Time `json:"created"`
}

type Comment struct {
	ID       string    `json:"id"`
	PostID   string    `json:"post_id"`
	AuthorID string    `json:"author_id"`
	Text     string    `json:"text"`
	Created  time.Time `json:"created"`
}

// Event kinds consumed by the stats worker.
const (
	EventAccountRegistered = "account_registered"
	EventAccountDeleted    = "account_deleted"
	EventGroupCreated      = "group_created"
	EventGroupDeleted      = "group_deleted"
	EventPostCreated       = "post_created"
	EventPostDeleted       = "post_deleted"
)

// Event is the payload of every domain event written to Kafka.
type Event struct {
	Kind      string    `json:"kind"`
	AccountID string    `json:"account_id,omitempty"`
	GroupID   string    `json:"group_id,omitempty"`
	PostID    string    `json:"post_id,omitempty"`
	AuthorID  string    `json:"author_id,omitempty"`
	Occurred  time.Time `json:"occurred"`
}
