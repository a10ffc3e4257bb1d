package service

import (
	"time"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

// ProposedSlot is the candidate day-set and time interval checked
// against a course's existing schedules.
type ProposedSlot struct {
	Days      []string
	StartTime string
	EndTime   string
}

// ValidateSlot rejects malformed slots before any conflict checking.
// A rejection here is a validation failure, never a conflict.
func ValidateSlot(slot ProposedSlot) error {
	if len(slot.Days) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "se requiere al menos un día")
	}
	seen := make(map[string]struct{}, len(slot.Days))
	for _, day := range slot.Days {
		if !models.Weekday(day).Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "día inválido: "+day)
		}
		if _, dup := seen[day]; dup {
			return appErrors.Clone(appErrors.ErrValidation, "día repetido: "+day)
		}
		seen[day] = struct{}{}
	}
	if !validClock(slot.StartTime) || !validClock(slot.EndTime) {
		return appErrors.Clone(appErrors.ErrValidation, "hora inválida, se espera HH:MM")
	}
	if slot.StartTime >= slot.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "inicio_hora debe ser anterior a fin_hora")
	}
	return nil
}

// HasConflict reports whether the proposed slot collides with any of
// the existing schedules. Two slots conflict when their day-sets
// intersect and their intervals overlap half-open: touching endpoints
// do not conflict. The schedule identified by excludeID is skipped so
// updates do not collide with themselves. The first match wins; no
// ordering is guaranteed over which conflict is found.
func HasConflict(slot ProposedSlot, existing []models.Schedule, excludeID string) bool {
	for i := range existing {
		other := &existing[i]
		if excludeID != "" && other.ID == excludeID {
			continue
		}
		if daysIntersect(slot.Days, other.Days) && intervalsOverlap(slot.StartTime, slot.EndTime, other.StartTime, other.EndTime) {
			return true
		}
	}
	return false
}

func daysIntersect(a []string, b []string) bool {
	for _, day := range a {
		for _, otherDay := range b {
			if day == otherDay {
				return true
			}
		}
	}
	return false
}

// Times are zero-padded "HH:MM", so string comparison is
// chronological.
func intervalsOverlap(start1, end1, start2, end2 string) bool {
	return start1 < end2 && end1 > start2
}

func validClock(value string) bool {
	_, err := time.Parse("15:04", value)
	return err == nil && len(value) == 5
}
