package ledger

import (
	"github.com/roulendz/timebank/internal/constants"
	errs "github.com/roulendz/timebank/internal/errors"
	"github.com/roulendz/timebank/internal/events"
	"github.com/roulendz/timebank/internal/models"
)

func findActivity(acts []models.Activity, id string) int {
	for i := range acts {
		if acts[i].ID == id {
			return i
		}
	}
	return -1
}

func findDeposit(deposits []models.TimeDeposit, id string) int {
	for i := range deposits {
		if deposits[i].ID == id {
			return i
		}
	}
	return -1
}

// GetActivities returns a copy of the user's activity log. Unknown users
// yield an empty slice.
func (l *Ledger) GetActivities(userID string) []models.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.state.FindUser(userID); i >= 0 {
		return append([]models.Activity{}, l.state.Users[i].ActivityLog...)
	}
	return []models.Activity{}
}

// GetActivity returns one activity of the user.
func (l *Ledger) GetActivity(userID, id string) (models.Activity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, err := l.user("get activity", userID)
	if err != nil {
		return models.Activity{}, err
	}
	i := findActivity(u.ActivityLog, id)
	if i < 0 {
		return models.Activity{}, errs.NotFound("get activity", "activity %s not found", id)
	}
	return u.ActivityLog[i], nil
}

// AddActivity appends a to its owner's log.
func (l *Ledger) AddActivity(a models.Activity) error {
	if err := a.Validate(); err != nil {
		return errs.InvalidTransition("add activity", "%v", err)
	}
	return l.mutate("add activity", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("add activity", a.UserID)
		if err != nil {
			return nil, err
		}
		u.ActivityLog = append(u.ActivityLog, a)
		return []events.Event{listChanged(a.UserID)}, nil
	})
}

// UpdateActivity replaces the activity with a's id in its owner's log. It
// does nothing when the owner or activity is missing.
func (l *Ledger) UpdateActivity(a models.Activity) error {
	if err := a.Validate(); err != nil {
		return errs.InvalidTransition("update activity", "%v", err)
	}
	return l.mutate("update activity", func(s *models.State) ([]events.Event, error) {
		ui := s.FindUser(a.UserID)
		if ui < 0 {
			return nil, errNoop
		}
		u := &s.Users[ui]
		i := findActivity(u.ActivityLog, a.ID)
		if i < 0 {
			return nil, errNoop
		}
		u.ActivityLog[i] = a
		return []events.Event{listChanged(a.UserID)}, nil
	})
}

// UpdateActivities replaces several activities of one user with a single
// write. Activities that are not in the log are ignored.
func (l *Ledger) UpdateActivities(userID string, acts []models.Activity) error {
	for _, a := range acts {
		if err := a.Validate(); err != nil {
			return errs.InvalidTransition("update activities", "%v", err)
		}
	}
	return l.mutate("update activities", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("update activities", userID)
		if err != nil {
			return nil, err
		}
		changed := false
		for _, a := range acts {
			if i := findActivity(u.ActivityLog, a.ID); i >= 0 {
				u.ActivityLog[i] = a
				changed = true
			}
		}
		if !changed {
			return nil, errNoop
		}
		return []events.Event{listChanged(userID)}, nil
	})
}

// RemoveActivity deletes an activity from the user's log and returns it.
func (l *Ledger) RemoveActivity(userID, id string) (models.Activity, error) {
	var removed models.Activity
	err := l.mutate("remove activity", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("remove activity", userID)
		if err != nil {
			return nil, err
		}
		i := findActivity(u.ActivityLog, id)
		if i < 0 {
			return nil, errs.NotFound("remove activity", "activity %s not found", id)
		}
		removed = u.ActivityLog[i]
		u.ActivityLog = append(u.ActivityLog[:i], u.ActivityLog[i+1:]...)
		return []events.Event{listChanged(userID)}, nil
	})
	return removed, err
}

// GetDeposits returns a copy of the user's holiday deposits. Unknown users
// yield an empty slice.
func (l *Ledger) GetDeposits(userID string) []models.TimeDeposit {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.state.FindUser(userID); i >= 0 {
		return append([]models.TimeDeposit{}, l.state.Users[i].Deposits...)
	}
	return []models.TimeDeposit{}
}

// GetDeposit returns one deposit of the user.
func (l *Ledger) GetDeposit(userID, id string) (models.TimeDeposit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, err := l.user("get deposit", userID)
	if err != nil {
		return models.TimeDeposit{}, err
	}
	i := findDeposit(u.Deposits, id)
	if i < 0 {
		return models.TimeDeposit{}, errs.NotFound("get deposit", "deposit %s not found", id)
	}
	return u.Deposits[i], nil
}

// AddDeposit appends d to its owner's holiday wallet.
func (l *Ledger) AddDeposit(d models.TimeDeposit) error {
	if err := d.Validate(); err != nil {
		return errs.InvalidTransition("add deposit", "%v", err)
	}
	return l.mutate("add deposit", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("add deposit", d.UserID)
		if err != nil {
			return nil, err
		}
		u.Deposits = append(u.Deposits, d)
		return []events.Event{{Name: constants.EventDepositAdded, UserID: d.UserID, DepositID: d.ID}}, nil
	})
}

// RemoveDeposit deletes a deposit from the user's wallet and returns it.
func (l *Ledger) RemoveDeposit(userID, id string) (models.TimeDeposit, error) {
	var removed models.TimeDeposit
	err := l.mutate("remove deposit", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("remove deposit", userID)
		if err != nil {
			return nil, err
		}
		i := findDeposit(u.Deposits, id)
		if i < 0 {
			return nil, errs.NotFound("remove deposit", "deposit %s not found", id)
		}
		removed = u.Deposits[i]
		u.Deposits = append(u.Deposits[:i], u.Deposits[i+1:]...)
		return nil, nil
	})
	return removed, err
}

// MoveActivityToDeposit removes an activity and appends deposit in one
// write, so the time is never in both wallets. build receives the activity
// being moved.
func (l *Ledger) MoveActivityToDeposit(userID, activityID string, build func(models.Activity) (models.TimeDeposit, error)) (models.TimeDeposit, error) {
	var deposit models.TimeDeposit
	err := l.mutate("deposit activity", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("deposit activity", userID)
		if err != nil {
			return nil, err
		}
		i := findActivity(u.ActivityLog, activityID)
		if i < 0 {
			return nil, errs.NotFound("deposit activity", "activity %s not found", activityID)
		}
		d, err := build(u.ActivityLog[i])
		if err != nil {
			return nil, err
		}
		if err := d.Validate(); err != nil {
			return nil, errs.InvalidTransition("deposit activity", "%v", err)
		}

		deposit = d
		u.ActivityLog = append(u.ActivityLog[:i], u.ActivityLog[i+1:]...)
		u.Deposits = append(u.Deposits, d)
		return []events.Event{
			{Name: constants.EventDepositAdded, UserID: userID, ActivityID: activityID, DepositID: d.ID},
			listChanged(userID),
		}, nil
	})
	return deposit, err
}

// MoveDepositToActivity removes a deposit and appends the activity build
// returns for it, in one write.
func (l *Ledger) MoveDepositToActivity(userID, depositID string, build func(models.TimeDeposit) (models.Activity, error)) (models.Activity, error) {
	var activity models.Activity
	err := l.mutate("cancel deposit", func(s *models.State) ([]events.Event, error) {
		u, err := l.user("cancel deposit", userID)
		if err != nil {
			return nil, err
		}
		i := findDeposit(u.Deposits, depositID)
		if i < 0 {
			return nil, errs.NotFound("cancel deposit", "deposit %s not found", depositID)
		}
		a, err := build(u.Deposits[i])
		if err != nil {
			return nil, err
		}
		if err := a.Validate(); err != nil {
			return nil, errs.InvalidTransition("cancel deposit", "%v", err)
		}

		activity = a
		u.Deposits = append(u.Deposits[:i], u.Deposits[i+1:]...)
		u.ActivityLog = append(u.ActivityLog, a)
		return []events.Event{
			{Name: constants.EventDepositCanceled, UserID: userID, ActivityID: a.ID, DepositID: depositID},
			listChanged(userID),
		}, nil
	})
	return activity, err
}
