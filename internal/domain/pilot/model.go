package pilot

import "time"

type Pilot struct {
	ID        string
	Name      string
	Acronym   string
	Number    string
	Team      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
