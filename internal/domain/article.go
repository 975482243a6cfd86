package domain

import "time"

// Category enumerates the news sections an article can belong to.
type Category string

const (
	CategoryWeather  Category = "weather"
	CategoryHealth   Category = "health"
	CategoryDisaster Category = "disaster"
)

// Article is a news item owned by the external article store.
type Article struct {
	ID        int64
	Category  Category
	Title     string
	Content   string
	CreatedAt time.Time
}

// AnnouncementArticleID marks delivery records that belong to a custom announcement.
const AnnouncementArticleID int64 = 0

// Translation is the SMS-ready rendering of a summary.
type Translation struct {
	Text    string
	Raw     string
	Trimmed bool
}

// Stage enumerates milestones of a single message lifecycle.
type Stage string

const (
	StageDrafted         Stage = "drafted"
	StageTranslated      Stage = "translated"
	StageLengthValidated Stage = "length_validated"
	StageDispatching     Stage = "dispatching"
	StageLogged          Stage = "logged"
	StageAborted         Stage = "aborted"
)
