package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := strings.Join([]string{
		"1#12#THE EARLY REPUBLICS",
		"",
		"13#40#BUILDING THE UNION",
		"13#20#Founding documents",
		"21#40#Ratification debates ## annotated",
	}, "\n")

	sections, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, sections, 4)

	require.Equal(t, Section{Start: 1, End: 12, Name: "THE EARLY REPUBLICS"}, sections[0])
	require.Equal(t, Section{Start: 13, End: 40, Name: "BUILDING THE UNION"}, sections[1])
	// the name keeps embedded '#' characters
	require.Equal(t, "Ratification debates ## annotated", sections[3].Name)
}

func TestParseSkipsInvalidLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "1#12"},
		{"non-integer start", "one#12#Intro"},
		{"non-integer end", "1#twelve#Intro"},
		{"start after end", "12#1#Backwards"},
		{"zero start", "0#4#Zero"},
		{"negative start", "-3#4#Negative"},
		{"empty name", "1#4#   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, err := Parse(strings.NewReader(tt.line + "\n5#6#Valid\n"))
			require.NoError(t, err)
			require.Len(t, sections, 1)
			require.Equal(t, "Valid", sections[0].Name)
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	sections, err := Parse(strings.NewReader("\n\n  \n"))
	require.NoError(t, err)
	require.Empty(t, sections)
}

func TestSectionPages(t *testing.T) {
	tests := []struct {
		name string
		sec  Section
		want []int
	}{
		{"single page", Section{Start: 7, End: 7}, []int{7}},
		{"small range", Section{Start: 3, End: 6}, []int{3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sec.Pages()
			require.Equal(t, tt.want, got)
			require.Equal(t, len(tt.want), tt.sec.PageCount())
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("testdata/does_not_exist.txt")
	require.Error(t, err)
}
