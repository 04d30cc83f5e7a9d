package validation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/models"
	"github.com/roulendz/timebank/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictMissingName       ConflictType = "missing_name"
	ConflictMissingDefault    ConflictType = "missing_default_user"
	ConflictDuplicateUserID   ConflictType = "duplicate_user_id"
	ConflictInvalidSchedule   ConflictType = "invalid_schedule"
	ConflictDuplicateDay      ConflictType = "duplicate_schedule_day"
	ConflictInvalidPercentage ConflictType = "invalid_percentage"
	ConflictActivity          ConflictType = "activity_invariant"
	ConflictDeposit           ConflictType = "deposit_invariant"
	ConflictTrackingState     ConflictType = "tracking_state"
)

// Conflict represents a detected problem in a user or the stored state
type Conflict struct {
	Type        ConflictType
	Description string
	UserID      string
	ItemID      string // activity or deposit id (if applicable)
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// FixAction represents an action taken during auto-fix
type FixAction struct {
	Action         string
	SourceConflict Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

func (vr *ValidationResult) add(c Conflict) {
	vr.Conflicts = append(vr.Conflicts, c)
}

// Validator validates users and the persisted state
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidatePercentage checks a bonus rate is within [0, MaxBonusPercentage].
func ValidatePercentage(name string, pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct > constants.MaxBonusPercentage {
		return fmt.Errorf("%s must be between 0 and %d, got %v", name, constants.MaxBonusPercentage, pct)
	}
	return nil
}

// ValidateSettings checks both bonus rates.
func ValidateSettings(s models.UserSettings) error {
	if err := ValidatePercentage(constants.SettingHolidayBonusPercentage, s.HolidayBonusPercentage); err != nil {
		return err
	}
	return ValidatePercentage(constants.SettingWeeklyBonusPercentage, s.WeeklyBonusPercentage)
}

// ParseWeekday accepts a full or three-letter English weekday name in any case.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || (len(n) == 3 && strings.HasPrefix(full, n)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// ValidateSchedule checks each day has a known weekday, HH:MM times with
// start before end, and appears once.
func (v *Validator) ValidateSchedule(schedule []models.ScheduleDay) []Conflict {
	var conflicts []Conflict
	seen := make(map[time.Weekday]bool)

	for _, day := range schedule {
		wd, err := ParseWeekday(day.Day)
		if err != nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictInvalidSchedule,
				Description: fmt.Sprintf("Schedule has unknown day: %q", day.Day),
			})
			continue
		}
		if seen[wd] {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDuplicateDay,
				Description: fmt.Sprintf("Schedule lists %s more than once", wd),
			})
		}
		seen[wd] = true

		start, err1 := utils.ParseTimeToMinutes(day.StartTime)
		end, err2 := utils.ParseTimeToMinutes(day.EndTime)
		if err1 != nil || err2 != nil {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictInvalidSchedule,
				Description: fmt.Sprintf("%s: invalid time range %s-%s (expected HH:MM)", wd, day.StartTime, day.EndTime),
			})
			continue
		}
		if start >= end {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictInvalidSchedule,
				Description: fmt.Sprintf("%s: start time (%s) must be before end time (%s)", wd, day.StartTime, day.EndTime),
			})
		}
	}
	return conflicts
}

// ValidateUser checks a user's profile, schedule, settings, activities and
// deposits.
func (v *Validator) ValidateUser(u models.User) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	if strings.TrimSpace(u.Name) == "" {
		result.add(Conflict{
			Type:        ConflictMissingName,
			Description: fmt.Sprintf("User %s has no name", u.ID),
			UserID:      u.ID,
		})
	}

	for _, c := range v.ValidateSchedule(u.Schedule) {
		c.UserID = u.ID
		c.Description = fmt.Sprintf("User %s: %s", u.DisplayName(), c.Description)
		result.add(c)
	}

	if u.Settings != nil {
		if err := ValidateSettings(*u.Settings); err != nil {
			result.add(Conflict{
				Type:        ConflictInvalidPercentage,
				Description: fmt.Sprintf("User %s: %v", u.DisplayName(), err),
				UserID:      u.ID,
			})
		}
	}

	for _, a := range u.ActivityLog {
		if err := a.Validate(); err != nil {
			result.add(Conflict{
				Type:        ConflictActivity,
				Description: fmt.Sprintf("User %s: %v", u.DisplayName(), err),
				UserID:      u.ID,
				ItemID:      a.ID,
			})
			continue
		}
		if a.UserID != u.ID {
			result.add(Conflict{
				Type:        ConflictActivity,
				Description: fmt.Sprintf("User %s: activity %s belongs to %s", u.DisplayName(), a.ID, a.UserID),
				UserID:      u.ID,
				ItemID:      a.ID,
			})
		}
	}

	for _, d := range u.Deposits {
		if err := d.Validate(); err != nil {
			result.add(Conflict{
				Type:        ConflictDeposit,
				Description: fmt.Sprintf("User %s: %v", u.DisplayName(), err),
				UserID:      u.ID,
				ItemID:      d.ID,
			})
		}
	}

	return result
}

// ValidateState checks every user plus the state-wide invariants: the
// default user exists, ids are unique and the tracking session is
// consistent and owned by a known user.
func (v *Validator) ValidateState(s *models.State) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	if s == nil {
		return result
	}

	if s.FindUser(constants.DefaultUserID) < 0 {
		result.add(Conflict{
			Type:        ConflictMissingDefault,
			Description: fmt.Sprintf("Default user %s is missing", constants.DefaultUserID),
		})
	}

	ids := make(map[string]int)
	for _, u := range s.Users {
		ids[u.ID]++
		if ids[u.ID] == 2 {
			result.add(Conflict{
				Type:        ConflictDuplicateUserID,
				Description: fmt.Sprintf("User id %s is used more than once", u.ID),
				UserID:      u.ID,
			})
		}
		result.Conflicts = append(result.Conflicts, v.ValidateUser(u).Conflicts...)
	}

	if ts := s.TrackingState; ts != nil {
		if !ts.Consistent() {
			result.add(Conflict{
				Type:        ConflictTrackingState,
				Description: "Tracking state is inconsistent (both modes set or start time missing)",
			})
		}
		if ts.Mode() != constants.ModeIdle && ts.UserID != "" && ids[ts.UserID] == 0 {
			result.add(Conflict{
				Type:        ConflictTrackingState,
				Description: fmt.Sprintf("Running session belongs to unknown user %s", ts.UserID),
				UserID:      ts.UserID,
			})
		}
	}

	return result
}

// WithinSchedule reports whether now falls inside the enabled schedule
// window for now's weekday. hasWindow is false when the schedule has no
// enabled, well-formed entry for that day.
func WithinSchedule(schedule []models.ScheduleDay, now time.Time) (inside, hasWindow bool) {
	minute := now.Hour()*60 + now.Minute()
	for _, day := range schedule {
		wd, err := ParseWeekday(day.Day)
		if err != nil || wd != now.Weekday() || !day.Enabled {
			continue
		}
		start, err1 := utils.ParseTimeToMinutes(day.StartTime)
		end, err2 := utils.ParseTimeToMinutes(day.EndTime)
		if err1 != nil || err2 != nil || start >= end {
			continue
		}
		hasWindow = true
		if minute >= start && minute < end {
			return true, true
		}
	}
	return false, hasWindow
}

// AutoFixActivities repairs activity invariant conflicts by clamping used
// time into [0, duration] and clearing availability once nothing remains.
// update is called once per user with the repaired activities.
func AutoFixActivities(conflicts []Conflict, users []models.User, update func(userID string, acts []models.Activity) error) []FixAction {
	actions := []FixAction{}

	byUser := make(map[string][]Conflict)
	for _, c := range conflicts {
		if c.Type == ConflictActivity && c.ItemID != "" {
			byUser[c.UserID] = append(byUser[c.UserID], c)
		}
	}

	for _, u := range users {
		cs := byUser[u.ID]
		if len(cs) == 0 {
			continue
		}
		wanted := make(map[string]Conflict, len(cs))
		for _, c := range cs {
			wanted[c.ItemID] = c
		}

		var fixed []models.Activity
		var sources []Conflict
		for _, a := range u.ActivityLog {
			c, ok := wanted[a.ID]
			if !ok {
				continue
			}
			a.UserID = u.ID
			a.Duration = max(0, a.Duration)
			a.UsedDuration = min(max(0, a.UsedDuration), a.Duration)
			if a.UsedDuration == a.Duration {
				a.IsAvailableForDeposit = false
			}
			if a.Validate() != nil {
				continue
			}
			fixed = append(fixed, a)
			sources = append(sources, c)
		}
		if len(fixed) == 0 {
			continue
		}

		if err := update(u.ID, fixed); err != nil {
			actions = append(actions, FixAction{
				Action:         fmt.Sprintf("Failed to repair %d activities for %s: %v", len(fixed), u.DisplayName(), err),
				SourceConflict: sources[0],
			})
			continue
		}
		for i, a := range fixed {
			actions = append(actions, FixAction{
				Action:         fmt.Sprintf("Repaired activity %s for %s (used %d of %d ms)", a.ID, u.DisplayName(), a.UsedDuration, a.Duration),
				SourceConflict: sources[i],
			})
		}
	}

	return actions
}
