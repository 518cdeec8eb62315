package health

import (
	"errors"
	"fmt"
	"math"
)

// Gender of a user profile. "prefer_not_to_say" is a first-class value, not
// an absence marker.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderNotSaid Gender = "prefer_not_to_say"
)

// ActivityLevel scales the basal metabolic rate to a daily expenditure.
type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "sedentary"
	ActivityLightlyActive    ActivityLevel = "lightly_active"
	ActivityModeratelyActive ActivityLevel = "moderately_active"
	ActivityVeryActive       ActivityLevel = "very_active"
)

var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary:        1.2,
	ActivityLightlyActive:    1.375,
	ActivityModeratelyActive: 1.55,
	ActivityVeryActive:       1.725,
}

// DefaultDailyGoal is used when no profile exists or the computed
// expenditure is implausibly low.
const DefaultDailyGoal = 2000

// UserProfile is the singleton set of user attributes behind goal derivation.
type UserProfile struct {
	Age           int           `json:"age"`
	Gender        Gender        `json:"gender"`
	WeightKg      float64       `json:"weightKg"`
	HeightCm      int           `json:"heightCm"`
	ActivityLevel ActivityLevel `json:"activityLevel"`
}

// Validate checks the profile for plausible, complete values.
func (p UserProfile) Validate() error {
	if p.Age <= 0 {
		return errors.New("age must be positive")
	}
	if p.WeightKg <= 0 {
		return errors.New("weight must be positive")
	}
	if p.HeightCm <= 0 {
		return errors.New("height must be positive")
	}
	switch p.Gender {
	case GenderMale, GenderFemale, GenderNotSaid:
	default:
		return fmt.Errorf("unknown gender %q", p.Gender)
	}
	if _, ok := activityMultipliers[p.ActivityLevel]; !ok {
		return fmt.Errorf("unknown activity level %q", p.ActivityLevel)
	}
	return nil
}

// bmr computes the Mifflin-St Jeor basal metabolic rate. For
// prefer_not_to_say the male and female formulas are averaged.
func bmr(p UserProfile) float64 {
	base := 10*p.WeightKg + 6.25*float64(p.HeightCm) - 5*float64(p.Age)
	switch p.Gender {
	case GenderMale:
		return base + 5
	case GenderFemale:
		return base - 161
	default:
		return ((base + 5) + (base - 161)) / 2
	}
}

// DailyGoal derives a daily calorie goal from the profile: BMR scaled by the
// activity multiplier, rounded, floored to the default when implausibly low.
func DailyGoal(p UserProfile) int {
	mult, ok := activityMultipliers[p.ActivityLevel]
	if !ok {
		mult = 1.2
	}
	tdee := bmr(p) * mult
	if tdee <= 1000 {
		return DefaultDailyGoal
	}
	return int(math.Round(tdee))
}

// MacroTargets are daily gram targets for the three macronutrients, derived
// from the calorie goal and body weight.
type MacroTargets struct {
	ProteinG int `json:"proteinG"`
	FatG     int `json:"fatG"`
	CarbsG   int `json:"carbsG"`
}

// Macros derives gram targets: 1.6 g protein per kg body weight, 25% of
// calories from fat (9 kcal/g), 50% from carbohydrates (4 kcal/g). Without a
// profile, fixed defaults are returned.
func Macros(p *UserProfile, goalCalories int) MacroTargets {
	if p == nil {
		return MacroTargets{ProteinG: 100, FatG: 50, CarbsG: 250}
	}
	return MacroTargets{
		ProteinG: int(math.Round(p.WeightKg * 1.6)),
		FatG:     int(math.Round(float64(goalCalories) * 0.25 / 9)),
		CarbsG:   int(math.Round(float64(goalCalories) * 0.50 / 4)),
	}
}

// BMI computes the body mass index from height in centimeters and weight in
// kilograms, with sanity bounds on the inputs.
func BMI(heightCm, weightKg float64) (float64, error) {
	if heightCm < 50 || heightCm > 250 || weightKg < 10 || weightKg > 400 {
		return 0, errors.New("height/weight out of plausible range")
	}
	h := heightCm / 100.0
	return weightKg / (h * h), nil
}

// BMICategory names the standard BMI band.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25.0:
		return "Normal weight"
	case bmi < 30.0:
		return "Overweight"
	default:
		return "Obese"
	}
}
