/*
config.go - Per-project attendance configuration

PURPOSE:
  One configuration row per project, created lazily with defaults on first
  access. Enabling attendance mode requires a schedule complete enough to
  resolve expected windows; that is the only validation gate.

SEE ALSO:
  - types.go: Config fields and DefaultConfig
  - schedule: Config.Validate used by Activate
*/
package attendance

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/schedule"
)

// getOrCreateConfig is the lazy-creation path every service shares.
func getOrCreateConfig(ctx context.Context, store Store, clock schedule.Clock, projectID string) (*Config, error) {
	cfg, err := store.FindConfig(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	created := DefaultConfig(projectID, clock.Now())
	if err := store.SaveConfig(ctx, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ConfigService manages per-project attendance configuration.
type ConfigService struct {
	store Store
	clock schedule.Clock
}

func NewConfigService(store Store, clock schedule.Clock) *ConfigService {
	return &ConfigService{store: store, clock: clock}
}

// Get returns the project's configuration, creating defaults on first access.
func (s *ConfigService) Get(ctx context.Context, projectID string) (*Config, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return getOrCreateConfig(ctx, s.store, s.clock, projectID)
}

// ConfigUpdate carries the fields an admin may change. Nil means unchanged.
type ConfigUpdate struct {
	OvertimePolicy                *OvertimePolicy
	LateToleranceMinutes          *int
	AutoCloseExit                 *bool
	JustificationsAllowed         *bool
	JustificationsRequireApproval *bool
	JustifiableHoursLimit         *decimal.Decimal
	ClearJustifiableHoursLimit    bool
	LimitPeriod                   *LimitPeriod
	NotifyMarkReminders           *bool
	NotifyDebtAlerts              *bool
	EntryReminderAt               *schedule.TimeOfDay
	ExitReminderAt                *schedule.TimeOfDay
	DefaultAbsenceHours           *decimal.Decimal
}

// Update applies the changed fields and persists the configuration.
func (s *ConfigService) Update(ctx context.Context, projectID string, in ConfigUpdate) (*Config, error) {
	cfg, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if in.OvertimePolicy != nil && in.OvertimePolicy.Valid() {
		cfg.OvertimePolicy = *in.OvertimePolicy
	}
	if in.LateToleranceMinutes != nil {
		cfg.LateToleranceMinutes = *in.LateToleranceMinutes
	}
	if in.AutoCloseExit != nil {
		cfg.AutoCloseExit = *in.AutoCloseExit
	}
	if in.JustificationsAllowed != nil {
		cfg.JustificationsAllowed = *in.JustificationsAllowed
	}
	if in.JustificationsRequireApproval != nil {
		cfg.JustificationsRequireApproval = *in.JustificationsRequireApproval
	}
	if in.ClearJustifiableHoursLimit {
		cfg.JustifiableHoursLimit = nil
	} else if in.JustifiableHoursLimit != nil {
		limit := *in.JustifiableHoursLimit
		cfg.JustifiableHoursLimit = &limit
	}
	if in.LimitPeriod != nil && in.LimitPeriod.Valid() {
		cfg.LimitPeriod = *in.LimitPeriod
	}
	if in.NotifyMarkReminders != nil {
		cfg.NotifyMarkReminders = *in.NotifyMarkReminders
	}
	if in.NotifyDebtAlerts != nil {
		cfg.NotifyDebtAlerts = *in.NotifyDebtAlerts
	}
	if in.EntryReminderAt != nil {
		cfg.EntryReminderAt = *in.EntryReminderAt
	}
	if in.ExitReminderAt != nil {
		cfg.ExitReminderAt = *in.ExitReminderAt
	}
	if in.DefaultAbsenceHours != nil && !in.DefaultAbsenceHours.IsNegative() {
		cfg.DefaultAbsenceHours = *in.DefaultAbsenceHours
	}

	cfg.UpdatedAt = s.clock.Now()
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Activate turns attendance mode on. Fails with ErrInvalidSchedule when the
// project's schedule cannot resolve any expected window.
func (s *ConfigService) Activate(ctx context.Context, projectID string) (*Config, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Schedule == nil || project.Schedule.Validate() != nil {
		return nil, ErrInvalidSchedule
	}

	cfg, err := getOrCreateConfig(ctx, s.store, s.clock, projectID)
	if err != nil {
		return nil, err
	}
	cfg.Enabled = true
	cfg.UpdatedAt = s.clock.Now()
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Deactivate turns attendance mode off. Existing marks and debts remain.
func (s *ConfigService) Deactivate(ctx context.Context, projectID string) (*Config, error) {
	cfg, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cfg.Enabled = false
	cfg.UpdatedAt = s.clock.Now()
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
