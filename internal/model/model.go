package model

import (
	"regexp"
	"time"
)

type User struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Avatar       string `json:"avatar,omitempty"`
	Posts        int    `json:"posts"`
}

type Post struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	CreatorID   string    `json:"creator"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const DefaultCategory = "Uncategorized"

// Categories lists every category a post may carry, in display order.
var Categories = []string{
	"Agriculture",
	"Business",
	"Education",
	"Entertainment",
	"Art",
	"Investment",
	DefaultCategory,
	"Weather",
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// NormalizeCategory maps the empty category to DefaultCategory.
func NormalizeCategory(c string) string {
	if c == "" {
		return DefaultCategory
	}
	return c
}

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
