package domain

import "time"

// Region is an operating region; tickets default their assignment group from it.
type Region struct {
	ID                     string
	Name                   string
	DefaultAssignmentGroup *string
	Active                 bool
	CreatedAt              time.Time
}

// Application is an impacted system a ticket can be associated with.
type Application struct {
	ID        string
	Name      string
	RegionID  *string
	Active    bool
	CreatedAt time.Time
}
