package ledger

import (
	"github.com/roulendz/timebank/internal/constants"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/events"
	"github.com/roulendz/timebank/internal/models"
)

// GetUsers returns copies of all users in stored order.
func (l *Ledger) GetUsers() []models.User {
	l.mu.Lock()
	defer l.mu.Unlock()

	users := make([]models.User, 0, len(l.state.Users))
	for _, u := range l.state.Users {
		users = append(users, u.Clone())
	}
	return users
}

// GetUser returns a copy of the user with the given id.
func (l *Ledger) GetUser(id string) (models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, err := l.user("get user", id)
	if err != nil {
		return models.User{}, err
	}
	return u.Clone(), nil
}

// AddUser creates a user with empty logs and default settings and returns
// its id.
func (l *Ledger) AddUser(name, nickname string, schedule []models.ScheduleDay) (string, error) {
	id := l.newID()
	settings := models.DefaultUserSettings()
	user := models.User{
		ID:          id,
		Name:        name,
		Nickname:    nickname,
		Schedule:    append([]models.ScheduleDay{}, schedule...),
		ActivityLog: []models.Activity{},
		Deposits:    []models.TimeDeposit{},
		Settings:    &settings,
	}

	err := l.mutate("add user", func(s *models.State) ([]events.Event, error) {
		s.Users = append(s.Users, user)
		return nil, nil
	})
	return id, err
}

// UpdateUser replaces the profile fields of an existing user. The time
// balance, activity log, deposits and settings are kept.
func (l *Ledger) UpdateUser(user models.User) error {
	return l.mutate("update user", func(s *models.State) ([]events.Event, error) {
		existing, err := l.user("update user", user.ID)
		if err != nil {
			return nil, err
		}
		existing.Name = user.Name
		existing.Nickname = user.Nickname
		existing.Schedule = append([]models.ScheduleDay{}, user.Schedule...)
		return nil, nil
	})
}

// DeleteUser removes a user with everything it owns. It reports false
// without error for the default user or an unknown id.
func (l *Ledger) DeleteUser(id string) (bool, error) {
	if id == constants.DefaultUserID {
		return false, nil
	}

	deleted := false
	err := l.mutate("delete user", func(s *models.State) ([]events.Event, error) {
		i := s.FindUser(id)
		if i < 0 {
			return nil, errNoop
		}
		s.Users = append(s.Users[:i], s.Users[i+1:]...)
		if s.CurrentUserID != nil && *s.CurrentUserID == id {
			s.CurrentUserID = nil
		}
		if s.TrackingState != nil && s.TrackingState.UserID == id {
			s.TrackingState = nil
		}
		deleted = true
		return []events.Event{listChanged(id)}, nil
	})
	return deleted, err
}

// SetCurrentUserID selects the user the application acts for.
func (l *Ledger) SetCurrentUserID(id string) error {
	return l.mutate("select user", func(s *models.State) ([]events.Event, error) {
		if s.FindUser(id) < 0 {
			return nil, errs.NotFound("select user", "user %s not found", id)
		}
		s.CurrentUserID = &id
		return nil, nil
	})
}

// GetCurrentUserID returns the selected user, falling back to the default
// user when none is selected or the selection no longer exists.
func (l *Ledger) GetCurrentUserID() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id := l.state.CurrentUserID; id != nil && l.state.FindUser(*id) >= 0 {
		return *id
	}
	return constants.DefaultUserID
}

// GetUserSettings returns the user's settings, storing the defaults first
// if the user has none yet.
func (l *Ledger) GetUserSettings(userID string) (models.UserSettings, error) {
	var settings models.UserSettings
	err := l.mutate("get settings", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("get settings", userID)
		if err != nil {
			return nil, err
		}
		if u.Settings != nil {
			settings = *u.Settings
			return nil, errNoop
		}
		settings = models.DefaultUserSettings()
		stored := settings
		u.Settings = &stored
		return nil, nil
	})
	return settings, err
}

// SaveUserSettings replaces the user's settings.
func (l *Ledger) SaveUserSettings(userID string, settings models.UserSettings) error {
	return l.mutate("save settings", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("save settings", userID)
		if err != nil {
			return nil, err
		}
		stored := settings
		u.Settings = &stored
		return nil, nil
	})
}

// SaveTrackingState stores the session state.
func (l *Ledger) SaveTrackingState(ts models.TrackingState) error {
	return l.mutate("save tracking state", func(s *models.State) ([]events.Event, error) {
		stored := ts.Clone()
		s.TrackingState = &stored
		return nil, nil
	})
}

// GetTrackingState returns the session state, the zero value when none is stored.
func (l *Ledger) GetTrackingState() models.TrackingState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.TrackingState == nil {
		return models.TrackingState{}
	}
	return l.state.TrackingState.Clone()
}
