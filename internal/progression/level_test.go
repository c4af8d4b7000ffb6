package progression

import "testing"

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{xp: 0, want: 1},
		{xp: -20, want: 1},
		{xp: 99, want: 1},
		{xp: 100, want: 2},
		{xp: 249, want: 2},
		{xp: 250, want: 3},
		{xp: 1000, want: 5},
		{xp: 2750, want: 7},
		{xp: 5999, want: 8},
		{xp: 10000, want: 10},
		{xp: 1_000_000, want: 10},
	}

	for _, tt := range tests {
		if got := CalculateLevel(tt.xp); got != tt.want {
			t.Errorf("CalculateLevel(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestCalculateLevelIsMonotonic(t *testing.T) {
	prev := CalculateLevel(0)
	for xp := 1; xp <= 12000; xp++ {
		got := CalculateLevel(xp)
		if got < prev {
			t.Fatalf("CalculateLevel(%d) = %d, below CalculateLevel(%d) = %d", xp, got, xp-1, prev)
		}
		prev = got
	}
}

func TestLevelTableShape(t *testing.T) {
	if LevelTable[0].Level != 1 || LevelTable[0].XPRequired != 0 {
		t.Fatalf("first row = %+v, want level 1 at 0 XP", LevelTable[0])
	}
	for i := 1; i < len(LevelTable); i++ {
		if LevelTable[i].XPRequired <= LevelTable[i-1].XPRequired {
			t.Errorf("threshold of level %d not above level %d", LevelTable[i].Level, LevelTable[i-1].Level)
		}
		if LevelTable[i].Level != LevelTable[i-1].Level+1 {
			t.Errorf("level %d follows level %d", LevelTable[i].Level, LevelTable[i-1].Level)
		}
	}
}

func TestXPForNextLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{level: 1, want: 100},
		{level: 6, want: 2750},
		{level: 9, want: 10000},
		{level: 10, want: 10000},
		{level: 42, want: 10000},
	}

	for _, tt := range tests {
		if got := XPForNextLevel(tt.level); got != tt.want {
			t.Errorf("XPForNextLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestLevelTitle(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{level: 1, want: "Apprenti Conteur"},
		{level: 7, want: "Créateur de Mondes"},
		{level: 10, want: "Maître du Multivers"},
		{level: 0, want: UnknownLevelTitle},
		{level: 11, want: UnknownLevelTitle},
	}

	for _, tt := range tests {
		if got := LevelTitle(tt.level); got != tt.want {
			t.Errorf("LevelTitle(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name string
		xp   int
		want LevelProgress
	}{
		{
			name: "fresh user",
			xp:   0,
			want: LevelProgress{Level: 1, Title: "Apprenti Conteur", XP: 0, LevelXP: 0, NextLevelXP: 100, Percent: 0},
		},
		{
			name: "halfway through level 3",
			xp:   375,
			want: LevelProgress{Level: 3, Title: "Écrivain Prometteur", XP: 375, LevelXP: 250, NextLevelXP: 500, Percent: 50},
		},
		{
			name: "max level",
			xp:   12000,
			want: LevelProgress{Level: 10, Title: "Maître du Multivers", XP: 12000, LevelXP: 10000, NextLevelXP: 10000, Percent: 100, MaxLevel: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.xp); got != tt.want {
				t.Errorf("Progress(%d) = %+v, want %+v", tt.xp, got, tt.want)
			}
		})
	}
}
