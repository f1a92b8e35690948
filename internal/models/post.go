// Package models holds the persisted content types shared across the engine.
package models

// DefaultCategory is used when the generated draft omits a category.
const DefaultCategory = "Daily"

// Post is the persisted unit of daily content. Posts are created once per
// calendar day and never mutated afterwards; the retention cap is the only
// thing that removes them.
type Post struct {
	ID       string `bson:"_id" json:"id"`
	Title    string `bson:"title" json:"title"`
	Excerpt  string `bson:"excerpt" json:"excerpt"`
	Content  string `bson:"content" json:"content"`
	Date     string `bson:"date" json:"date"`
	Category string `bson:"category" json:"category"`
}

// DailyPostID returns the identifier for the post of the given ISO date.
func DailyPostID(isoDate string) string {
	return "daily-" + isoDate
}
