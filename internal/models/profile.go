package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Weekdays are the seven fixed keys of the goals map, in display order.
var Weekdays = []string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// IsWeekday reports whether day is one of the seven goals keys.
func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Goal is a single user-authored item attached to a weekday.
type Goal struct {
	ID        string    `json:"id" bson:"id"`
	Text      string    `json:"text" bson:"text"`
	Completed bool      `json:"completed" bson:"completed"`
	// Rewarded marks that this goal has already paid into the lifetime
	// completed counter, so toggling it off and on cannot double-count.
	Rewarded  bool      `json:"rewarded" bson:"rewarded"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// GoalHistory is the lifetime ledger: counters only ever go up, and
// deleting a goal never touches them.
type GoalHistory struct {
	TotalCreated   int `json:"total_created" bson:"total_created"`
	TotalCompleted int `json:"total_completed" bson:"total_completed"`
}

type Pet struct {
	Name string `json:"name" bson:"name"`
	// Level is the last level shown to the user; the authoritative value is
	// derived from GoalHistory.TotalCompleted via LevelForPoints.
	Level  int `json:"level" bson:"level"`
	Points int `json:"points" bson:"points"`
}

type Settings struct {
	Theme                string `json:"theme" bson:"theme"`
	NotificationsEnabled bool   `json:"notifications_enabled" bson:"notifications_enabled"`
}

// Profile is the per-user document stored in Mongo, keyed by the identity
// provider's UID.
type Profile struct {
	UID         string            `json:"uid" bson:"_id"`
	DisplayName string            `json:"display_name" bson:"display_name"`
	Email       string            `json:"email" bson:"email,omitempty"`
	PhotoURL    string            `json:"photo_url" bson:"photo_url,omitempty"`
	Provider    string            `json:"provider,omitempty" bson:"provider,omitempty"`
	Goals       map[string][]Goal `json:"goals" bson:"goals"`
	GoalHistory *GoalHistory      `json:"goal_history" bson:"goal_history,omitempty"`
	Pet         *Pet              `json:"pet" bson:"pet,omitempty"`
	Settings    *Settings         `json:"settings" bson:"settings,omitempty"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`
}

// NewGoalID generates a goal ID unique within the account: millisecond
// timestamp plus a random suffix.
func NewGoalID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// DefaultGoals returns the empty weekday structure.
func DefaultGoals() map[string][]Goal {
	goals := make(map[string][]Goal, len(Weekdays))
	for _, day := range Weekdays {
		goals[day] = []Goal{}
	}
	return goals
}

func DefaultPet() *Pet {
	return &Pet{Name: "", Level: 1, Points: 0}
}

func DefaultSettings() *Settings {
	return &Settings{Theme: "light", NotificationsEnabled: true}
}

// DefaultProfile builds a fresh profile for a newly authenticated identity.
func DefaultProfile(uid, displayName, email, photoURL string) *Profile {
	return &Profile{
		UID:         uid,
		DisplayName: displayName,
		Email:       email,
		PhotoURL:    photoURL,
		Goals:       DefaultGoals(),
		GoalHistory: &GoalHistory{},
		Pet:         DefaultPet(),
		Settings:    DefaultSettings(),
		CreatedAt:   time.Now().UTC(),
	}
}

// Normalize is the migrate-on-read step for documents written by older
// clients. It fills in missing weekday keys, pet, settings, and rebuilds a
// missing goal_history by counting the current goal lists (a one-time
// backfill that under-counts if goals were deleted before the ledger
// existed). Returns true if the document was changed and needs persisting.
func (p *Profile) Normalize() bool {
	changed := false

	if p.Goals == nil {
		p.Goals = DefaultGoals()
		changed = true
	} else {
		for _, day := range Weekdays {
			if _, ok := p.Goals[day]; !ok {
				p.Goals[day] = []Goal{}
				changed = true
			}
		}
	}

	if p.Pet == nil {
		p.Pet = DefaultPet()
		changed = true
	}
	if p.Settings == nil {
		p.Settings = DefaultSettings()
		changed = true
	}

	if p.GoalHistory == nil {
		created, completed := p.CountGoals()
		p.GoalHistory = &GoalHistory{
			TotalCreated:   created,
			TotalCompleted: completed,
		}
		p.Pet.Points = completed
		changed = true
	}

	return changed
}

// CountGoals returns a point-in-time tally of the current goal lists. This
// is display data only; leveling reads from GoalHistory.
func (p *Profile) CountGoals() (total, completed int) {
	for _, goals := range p.Goals {
		total += len(goals)
		for _, g := range goals {
			if g.Completed {
				completed++
			}
		}
	}
	return total, completed
}

// Clone returns a deep copy, so observers and writes never share goal
// slices with the cache's live document.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Goals != nil {
		cp.Goals = make(map[string][]Goal, len(p.Goals))
		for day, goals := range p.Goals {
			cp.Goals[day] = append([]Goal(nil), goals...)
		}
	}
	if p.GoalHistory != nil {
		h := *p.GoalHistory
		cp.GoalHistory = &h
	}
	if p.Pet != nil {
		pet := *p.Pet
		cp.Pet = &pet
	}
	if p.Settings != nil {
		s := *p.Settings
		cp.Settings = &s
	}
	return &cp
}
