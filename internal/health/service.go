package health

import (
	"context"
	"fmt"

	"calorie-cam/internal/storage"
)

const (
	profileKey   = "user_profile"
	goalKey      = "daily_calorie_goal"
	setupDoneKey = "profile_setup_complete"
)

// Service persists the user profile and daily goal and keeps the two
// consistent: saving a profile always recomputes the goal, while SetGoal
// overrides it until the next profile save.
type Service struct {
	kv storage.KeyValueStore
}

func NewService(kv storage.KeyValueStore) *Service {
	return &Service{kv: kv}
}

// Profile returns the stored profile, or nil when none has been saved yet.
func (s *Service) Profile(ctx context.Context) (*UserProfile, error) {
	var p UserProfile
	ok, err := storage.Read(ctx, s.kv, profileKey, &p)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SaveProfile validates and stores the profile, then recomputes and stores
// the daily goal from it. The recomputed goal is returned.
func (s *Service) SaveProfile(ctx context.Context, p UserProfile) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if err := storage.Write(ctx, s.kv, profileKey, p); err != nil {
		return 0, fmt.Errorf("failed to save profile: %w", err)
	}
	goal := DailyGoal(p)
	if err := storage.Write(ctx, s.kv, goalKey, goal); err != nil {
		return 0, fmt.Errorf("failed to save daily goal: %w", err)
	}
	if err := storage.Write(ctx, s.kv, setupDoneKey, true); err != nil {
		return 0, fmt.Errorf("failed to save setup flag: %w", err)
	}
	return goal, nil
}

// SetupComplete reports whether a profile has ever been saved.
func (s *Service) SetupComplete(ctx context.Context) (bool, error) {
	var done bool
	if _, err := storage.Read(ctx, s.kv, setupDoneKey, &done); err != nil {
		return false, fmt.Errorf("failed to load setup flag: %w", err)
	}
	return done, nil
}

// Goal returns the stored daily calorie goal, falling back to the default
// when none has been set.
func (s *Service) Goal(ctx context.Context) (int, error) {
	var goal int
	ok, err := storage.Read(ctx, s.kv, goalKey, &goal)
	if err != nil {
		return 0, fmt.Errorf("failed to load daily goal: %w", err)
	}
	if !ok || goal <= 0 {
		return DefaultDailyGoal, nil
	}
	return goal, nil
}

// SetGoal stores a manual daily goal.
func (s *Service) SetGoal(ctx context.Context, goal int) error {
	if goal <= 0 {
		return fmt.Errorf("daily goal must be positive, got %d", goal)
	}
	if err := storage.Write(ctx, s.kv, goalKey, goal); err != nil {
		return fmt.Errorf("failed to save daily goal: %w", err)
	}
	return nil
}

// MacroGoals derives macro targets from the current profile and goal.
func (s *Service) MacroGoals(ctx context.Context) (MacroTargets, error) {
	p, err := s.Profile(ctx)
	if err != nil {
		return MacroTargets{}, err
	}
	goal, err := s.Goal(ctx)
	if err != nil {
		return MacroTargets{}, err
	}
	return Macros(p, goal), nil
}
