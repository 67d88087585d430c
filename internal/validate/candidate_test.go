package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestCandidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "simple", input: "Jordan Miller", want: "Jordan Miller"},
		{name: "trimmed", input: "  Casey Rivers ", want: "Casey Rivers"},
		{name: "apostrophe and hyphen", input: "Siobhan O'Neil-Park", want: "Siobhan O'Neil-Park"},
		{name: "accented", input: "Zoë Ramírez", want: "Zoë Ramírez"},
		{name: "empty", input: "   ", wantErr: ErrEmpty},
		{name: "too long", input: strings.Repeat("a", MaxNameLength+1), wantErr: ErrStringTooLong},
		{name: "digits rejected", input: "Agent 47", wantErr: ErrInvalidCharacters},
		{name: "markup rejected", input: "<script>", wantErr: ErrInvalidCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CandidateName(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CandidateName(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CandidateName(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("CandidateName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestYearsExperience(t *testing.T) {
	for _, years := range []int{0, 1, 12, MaxYears} {
		if err := YearsExperience(years); err != nil {
			t.Errorf("YearsExperience(%d) unexpected error: %v", years, err)
		}
	}
	for _, years := range []int{-1, MaxYears + 1} {
		if err := YearsExperience(years); !errors.Is(err, ErrYearsOutOfRange) {
			t.Errorf("YearsExperience(%d) error = %v, want ErrYearsOutOfRange", years, err)
		}
	}
}

func TestSkills(t *testing.T) {
	got, err := Skills([]string{" ISO 14001", "Lean Manufacturing", "OSHA Standards "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ISO 14001", "Lean Manufacturing", "OSHA Standards"}
	if len(got) != len(want) {
		t.Fatalf("got %d skills, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("skill %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSkills_Errors(t *testing.T) {
	tooMany := make([]string, MaxSkills+1)
	for i := range tooMany {
		tooMany[i] = "Skill " + string(rune('A'+i))
	}

	tests := []struct {
		name    string
		input   []string
		wantErr error
	}{
		{name: "empty", input: nil, wantErr: ErrNoSkills},
		{name: "too many", input: tooMany, wantErr: ErrTooManySkills},
		{name: "blank label", input: []string{"Quality Control", " "}, wantErr: ErrEmpty},
		{name: "long label", input: []string{strings.Repeat("x", MaxSkillLength+1)}, wantErr: ErrStringTooLong},
		{name: "duplicate", input: []string{"Data Analysis", "data analysis"}, wantErr: ErrDuplicateSkill},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Skills(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Skills() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
