package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture mirrors a typical manifest: two mains, the second with nested subs.
func fixtureResolver() *Resolver {
	return NewResolver([]Section{
		{Start: 1, End: 12, Name: "Part I"},
		{Start: 13, End: 40, Name: "Part II"},
		{Start: 13, End: 20, Name: "Chapter 1"},
		{Start: 21, End: 40, Name: "Chapter 2"},
	})
}

func TestMainSections(t *testing.T) {
	r := fixtureResolver()
	mains := r.MainSections()
	require.Len(t, mains, 2)
	require.Equal(t, "Part I", mains[0].Name)
	require.Equal(t, "Part II", mains[1].Name)
}

func TestSubSections(t *testing.T) {
	r := fixtureResolver()

	partII, ok := r.Lookup("Part II")
	require.True(t, ok)
	subs := r.SubSections(partII)
	require.Len(t, subs, 2)
	require.Equal(t, "Chapter 1", subs[0].Name)
	require.Equal(t, "Chapter 2", subs[1].Name)

	partI, ok := r.Lookup("Part I")
	require.True(t, ok)
	require.Empty(t, r.SubSections(partI))
}

func TestResolve(t *testing.T) {
	r := fixtureResolver()

	tests := []struct {
		name    string
		main    string
		sub     string
		want    []int
		wantErr bool
	}{
		{name: "main only", main: "Part I", want: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
		{name: "sub selection", main: "Part II", sub: "Chapter 1", want: []int{13, 14, 15, 16, 17, 18, 19, 20}},
		{name: "unknown main", main: "Part III", wantErr: true},
		{name: "unknown sub", main: "Part II", sub: "Chapter 9", wantErr: true},
		{name: "sub outside main", main: "Part I", sub: "Chapter 2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.main, tt.sub)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMainSectionsIdenticalRanges(t *testing.T) {
	// Two sections covering the same range contain each other non-strictly;
	// both stay top-level.
	r := NewResolver([]Section{
		{Start: 1, End: 5, Name: "A"},
		{Start: 1, End: 5, Name: "B"},
	})
	require.Len(t, r.MainSections(), 2)
}
