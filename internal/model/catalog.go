package model

import (
	"fmt"
	"time"
)

// Services is the fixed catalog of the office. Single office, no tenants.
var Services = []string{
	"ID Card Issuance",
	"Residence Certificate",
	"Business License",
	"Land Registration",
}

// Slots are the bookable times of day, in the office's display format.
var Slots = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"01:00 PM",
	"02:00 PM",
	"03:00 PM",
}

func ValidService(name string) bool {
	for _, s := range Services {
		if s == name {
			return true
		}
	}
	return false
}

func ValidSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// BookingTime combines a 2006-01-02 date with a catalog slot into the
// appointment's point in time.
func BookingTime(date, slot string) (time.Time, error) {
	if !ValidSlot(slot) {
		return time.Time{}, fmt.Errorf("unknown slot %q", slot)
	}
	t, err := time.Parse("2006-01-02 03:04 PM", date+" "+slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid booking date: %w", err)
	}
	return t, nil
}
