// Package progression maps experience points to levels, prices actions in
// XP and decides which badges a user has newly earned.
//
// Everything here is a pure function. Applying the results to a user (adding
// XP, appending badges) is the caller's job; see the service package.
package progression

// LevelRequirement is one row of the level table.
type LevelRequirement struct {
	Level      int
	XPRequired int
	Title      string
}

// UnknownLevelTitle is returned by LevelTitle for levels outside the table.
const UnknownLevelTitle = "Conteur Mystérieux"

// LevelTable is ordered by Level with strictly increasing thresholds.
// Level 1 must require 0 XP so that CalculateLevel always has an answer.
var LevelTable = []LevelRequirement{
	{Level: 1, XPRequired: 0, Title: "Apprenti Conteur"},
	{Level: 2, XPRequired: 100, Title: "Narrateur Novice"},
	{Level: 3, XPRequired: 250, Title: "Écrivain Prometteur"},
	{Level: 4, XPRequired: 500, Title: "Conteur Confirmé"},
	{Level: 5, XPRequired: 1000, Title: "Maître des Mots"},
	{Level: 6, XPRequired: 1750, Title: "Architecte d'Histoires"},
	{Level: 7, XPRequired: 2750, Title: "Créateur de Mondes"},
	{Level: 8, XPRequired: 4000, Title: "Légende Vivante"},
	{Level: 9, XPRequired: 6000, Title: "Gardien des Récits"},
	{Level: 10, XPRequired: 10000, Title: "Maître du Multivers"},
}

// MaxLevel is the highest level in the table.
func MaxLevel() int {
	return LevelTable[len(LevelTable)-1].Level
}

// CalculateLevel returns the highest level whose threshold is <= xp.
// Negative xp is treated as 0.
func CalculateLevel(xp int) int {
	for i := len(LevelTable) - 1; i >= 0; i-- {
		if xp >= LevelTable[i].XPRequired {
			return LevelTable[i].Level
		}
	}
	return 1
}

// XPForNextLevel returns the XP threshold of level+1. At or above the top of
// the table it returns the top threshold, meaning there is nothing further
// to reach.
func XPForNextLevel(level int) int {
	if req, ok := lookup(level + 1); ok {
		return req.XPRequired
	}
	return LevelTable[len(LevelTable)-1].XPRequired
}

// LevelTitle returns the title for level, or UnknownLevelTitle.
func LevelTitle(level int) string {
	if req, ok := lookup(level); ok {
		return req.Title
	}
	return UnknownLevelTitle
}

func lookup(level int) (LevelRequirement, bool) {
	for _, req := range LevelTable {
		if req.Level == level {
			return req, true
		}
	}
	return LevelRequirement{}, false
}

// LevelProgress is what a profile screen needs to draw the XP bar.
type LevelProgress struct {
	Level       int     `json:"level"`
	Title       string  `json:"title"`
	XP          int     `json:"xp"`
	LevelXP     int     `json:"level_xp"`
	NextLevelXP int     `json:"next_level_xp"`
	Percent     float64 `json:"percent"`
	MaxLevel    bool    `json:"max_level"`
}

// Progress describes where xp sits between the current and next level.
// Percent is 0..100 and is 100 at the max level.
func Progress(xp int) LevelProgress {
	if xp < 0 {
		xp = 0
	}
	level := CalculateLevel(xp)
	current, _ := lookup(level)
	p := LevelProgress{
		Level:       level,
		Title:       LevelTitle(level),
		XP:          xp,
		LevelXP:     current.XPRequired,
		NextLevelXP: XPForNextLevel(level),
		MaxLevel:    level >= MaxLevel(),
	}
	if p.MaxLevel {
		p.Percent = 100
		return p
	}
	span := p.NextLevelXP - p.LevelXP
	p.Percent = float64(xp-p.LevelXP) * 100 / float64(span)
	return p
}
