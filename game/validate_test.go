package game

import "testing"

func TestMissingSettings(t *testing.T) {
	cases := []struct {
		name     string
		settings *Settings
		want     []string
	}{
		{
			name:     "nil record",
			settings: nil,
			want:     []string{FieldRange, FieldTime, FieldAttempts},
		},
		{
			name:     "all unset",
			settings: &Settings{},
			want:     []string{FieldRange, FieldTime, FieldAttempts},
		},
		{
			name: "half open range counts as missing",
			settings: &Settings{
				RangeStart: i64(1),
				TimeLimit:  iptr(30),
				Attempts:   iptr(5),
			},
			want: []string{FieldRange},
		},
		{
			name: "only attempts missing",
			settings: &Settings{
				RangeStart: i64(1),
				RangeEnd:   i64(10),
				TimeLimit:  iptr(30),
			},
			want: []string{FieldAttempts},
		},
		{
			name:     "complete",
			settings: fullSettings(1, 10, 30, 5),
			want:     nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MissingSettings(tc.settings)
			if len(got) != len(tc.want) {
				t.Fatalf("missing = %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("missing = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestIncompleteSettingsErrorMessage(t *testing.T) {
	err := &IncompleteSettingsError{Missing: []string{FieldRange, FieldAttempts}}
	want := "game: settings incomplete: number range, attempt count"
	if err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}
