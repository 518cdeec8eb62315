package health

import (
	"context"
	"testing"

	"calorie-cam/internal/storage"
)

func validProfile() UserProfile {
	return UserProfile{
		Age:           30,
		Gender:        GenderMale,
		WeightKg:      80,
		HeightCm:      180,
		ActivityLevel: ActivityModeratelyActive,
	}
}

func TestDailyGoal(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		p := validProfile()
		first := DailyGoal(p)
		for i := 0; i < 5; i++ {
			if got := DailyGoal(p); got != first {
				t.Errorf("expected stable goal %d, got %d", first, got)
			}
		}
	})

	t.Run("KnownValue", func(t *testing.T) {
		// BMR = 10*80 + 6.25*180 - 5*30 + 5 = 1780; * 1.55 = 2759
		if got := DailyGoal(validProfile()); got != 2759 {
			t.Errorf("expected goal 2759, got %d", got)
		}
	})

	t.Run("ActivityStrictlyIncreases", func(t *testing.T) {
		p := validProfile()
		levels := []ActivityLevel{
			ActivitySedentary,
			ActivityLightlyActive,
			ActivityModeratelyActive,
			ActivityVeryActive,
		}
		prev := 0
		for _, level := range levels {
			p.ActivityLevel = level
			got := DailyGoal(p)
			if got <= prev {
				t.Errorf("goal for %s (%d) not greater than previous (%d)", level, got, prev)
			}
			prev = got
		}
	})

	t.Run("GenderUnsaidBetweenMaleAndFemale", func(t *testing.T) {
		p := validProfile()
		p.Gender = GenderMale
		male := DailyGoal(p)
		p.Gender = GenderFemale
		female := DailyGoal(p)
		p.Gender = GenderNotSaid
		mid := DailyGoal(p)
		if mid <= female || mid >= male {
			t.Errorf("expected %d < %d < %d", female, mid, male)
		}
	})

	t.Run("ImplausiblyLowFallsBackToDefault", func(t *testing.T) {
		p := UserProfile{
			Age:           90,
			Gender:        GenderFemale,
			WeightKg:      30,
			HeightCm:      120,
			ActivityLevel: ActivitySedentary,
		}
		if got := DailyGoal(p); got != DefaultDailyGoal {
			t.Errorf("expected default goal %d, got %d", DefaultDailyGoal, got)
		}
	})
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UserProfile)
	}{
		{"ZeroAge", func(p *UserProfile) { p.Age = 0 }},
		{"NegativeWeight", func(p *UserProfile) { p.WeightKg = -1 }},
		{"ZeroHeight", func(p *UserProfile) { p.HeightCm = 0 }},
		{"UnknownGender", func(p *UserProfile) { p.Gender = "other" }},
		{"UnknownActivity", func(p *UserProfile) { p.ActivityLevel = "athlete" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}

	if err := validProfile().Validate(); err != nil {
		t.Errorf("expected valid profile, got %v", err)
	}
}

func TestMacros(t *testing.T) {
	t.Run("NoProfileDefaults", func(t *testing.T) {
		got := Macros(nil, 2000)
		want := MacroTargets{ProteinG: 100, FatG: 50, CarbsG: 250}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("DerivedFromGoal", func(t *testing.T) {
		p := validProfile()
		got := Macros(&p, 2000)
		// protein 80*1.6=128, fat 2000*0.25/9=55.6→56, carbs 2000*0.5/4=250
		want := MacroTargets{ProteinG: 128, FatG: 56, CarbsG: 250}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})
}

func TestBMI(t *testing.T) {
	bmi, err := BMI(180, 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bmi < 24.6 || bmi > 24.8 {
		t.Errorf("expected BMI near 24.7, got %.2f", bmi)
	}
	if got := BMICategory(bmi); got != "Normal weight" {
		t.Errorf("expected Normal weight, got %s", got)
	}
	if _, err := BMI(180, 500); err == nil {
		t.Error("expected error for implausible weight")
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("NoProfileYet", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore())
		p, err := svc.Profile(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil {
			t.Errorf("expected nil profile, got %+v", p)
		}
		goal, err := svc.Goal(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if goal != DefaultDailyGoal {
			t.Errorf("expected default goal %d, got %d", DefaultDailyGoal, goal)
		}
	})

	t.Run("SetupFlagFollowsProfile", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore())
		done, err := svc.SetupComplete(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if done {
			t.Error("expected setup incomplete before any profile save")
		}
		if _, err := svc.SaveProfile(ctx, validProfile()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		done, err = svc.SetupComplete(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !done {
			t.Error("expected setup complete after profile save")
		}
	})

	t.Run("SaveProfileRecomputesGoal", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore())
		if err := svc.SetGoal(ctx, 1500); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		goal, err := svc.SaveProfile(ctx, validProfile())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if goal != 2759 {
			t.Errorf("expected recomputed goal 2759, got %d", goal)
		}
		stored, err := svc.Goal(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored != goal {
			t.Errorf("expected stored goal %d, got %d", goal, stored)
		}
	})

	t.Run("ManualGoalOverrides", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore())
		if _, err := svc.SaveProfile(ctx, validProfile()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := svc.SetGoal(ctx, 1800); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		goal, err := svc.Goal(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if goal != 1800 {
			t.Errorf("expected manual goal 1800, got %d", goal)
		}
	})

	t.Run("InvalidProfileRejected", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore())
		p := validProfile()
		p.Age = -1
		if _, err := svc.SaveProfile(ctx, p); err == nil {
			t.Error("expected validation error, got nil")
		}
	})

	t.Run("RejectsNonPositiveGoal", func(t *testing.T) {
		svc := NewService(storage.NewMemoryStore())
		if err := svc.SetGoal(ctx, 0); err == nil {
			t.Error("expected error for zero goal")
		}
	})
}
