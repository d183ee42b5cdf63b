package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRating seeds a team's rating at first encounter in a competition.
const DefaultRating = 1500.0

// TeamRating is the running skill record for one (team, competition) pair.
// It is mutated exactly once per verified match involving the team.
type TeamRating struct {
	ID           uuid.UUID `db:"id" json:"id" validate:"required,uuid4"`
	Team         string    `db:"team" json:"team" validate:"required"`
	Competition  string    `db:"competition" json:"competition" validate:"required"`
	Rating       float64   `db:"rating" json:"rating"`
	Matches      int       `db:"matches" json:"matches"`
	Wins         int       `db:"wins" json:"wins"`
	Draws        int       `db:"draws" json:"draws"`
	Losses       int       `db:"losses" json:"losses"`
	GoalsFor     int       `db:"goals_for" json:"goals_for"`
	GoalsAgainst int       `db:"goals_against" json:"goals_against"`
	Streak       int       `db:"streak" json:"streak"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NewTeamRating creates a rating row seeded at the neutral default.
func NewTeamRating(team, competition string) *TeamRating {
	return &TeamRating{
		ID:          uuid.New(),
		Team:        team,
		Competition: competition,
		Rating:      DefaultRating,
	}
}

// WinRate returns the fraction of matches won, or 0 with no history.
func (r *TeamRating) WinRate() float64 {
	if r.Matches == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Matches)
}
