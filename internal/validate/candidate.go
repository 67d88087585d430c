package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Candidate field limits.
const (
	MaxNameLength  = 100
	MaxYears       = 60
	MaxSkills      = 20
	MaxSkillLength = 64
)

var (
	ErrYearsOutOfRange = errors.New("years of experience out of range")
	ErrNoSkills        = errors.New("at least one skill is required")
	ErrTooManySkills   = errors.New("too many skills")
	ErrDuplicateSkill  = errors.New("duplicate skill")
)

var (
	// Letters (any script), spaces, apostrophe, hyphen, period.
	namePattern = regexp.MustCompile(`^[\p{L}\p{M} '\-\.]+$`)
	// Skill labels also allow digits and a few separators ("ISO 14001", "C/C++").
	skillPattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N} '&/\+\-\.\(\)]+$`)
)

// CandidateName validates a candidate's display name:
// - 1-100 characters after trimming
// - letters, spaces, apostrophes, hyphens and periods only
func CandidateName(name string) (string, error) {
	return String(name, StringConstraints{
		MinLength:      1,
		MaxLength:      MaxNameLength,
		AllowedPattern: namePattern,
		TrimSpace:      true,
	})
}

// YearsExperience checks that years is within 0-60.
func YearsExperience(years int) error {
	if years < 0 || years > MaxYears {
		return fmt.Errorf("%w: got %d, expected 0-%d", ErrYearsOutOfRange, years, MaxYears)
	}
	return nil
}

// SkillLabel validates a single skill label (1-64 characters).
func SkillLabel(skill string) (string, error) {
	return String(skill, StringConstraints{
		MinLength:      1,
		MaxLength:      MaxSkillLength,
		AllowedPattern: skillPattern,
		TrimSpace:      true,
	})
}

// Skills validates an ordered skill list and returns the trimmed labels in
// their original order. Duplicates (case-insensitive) are rejected.
func Skills(skills []string) ([]string, error) {
	if len(skills) == 0 {
		return nil, ErrNoSkills
	}
	if len(skills) > MaxSkills {
		return nil, fmt.Errorf("%w: got %d, maximum is %d", ErrTooManySkills, len(skills), MaxSkills)
	}

	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for i, s := range skills {
		label, err := SkillLabel(s)
		if err != nil {
			return nil, fmt.Errorf("skill %d: %w", i, err)
		}
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSkill, label)
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return out, nil
}
