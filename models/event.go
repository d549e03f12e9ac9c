package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
)

// EventCategories are the categories accepted by the event catalog.
var EventCategories = []string{
	"music", "theater", "sports", "comedy", "conference", "festival", "exhibition", "other",
}

type Event struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Place       string         `db:"place" json:"place"`
	Date        types.DateTime `db:"date" json:"date"`
	Category    string         `db:"category" json:"category"`
	Created     types.DateTime `db:"created" json:"created"`
	Updated     types.DateTime `db:"updated" json:"updated"`
}

func ValidEventCategory(category string) bool {
	for _, c := range EventCategories {
		if c == category {
			return true
		}
	}
	return false
}
