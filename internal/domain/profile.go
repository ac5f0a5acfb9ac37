package domain

import "time"

// Profile holds the contact details a registrant fills in on the portal.
type Profile struct {
	UserID      string
	FullName    string
	Address     string
	City        string
	PhoneNumber string
	UpdatedAt   time.Time
}
