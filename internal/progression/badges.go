package progression

import "github.com/lalith-99/storyverse/internal/models"

const defaultBadgeIcon = "award"

// BadgeRule pairs a badge definition with the condition that earns it.
type BadgeRule struct {
	Badge  models.Badge
	Earned func(user models.User, stats models.UserStats) bool
}

func badge(id, name, description string, rarity models.BadgeRarity) models.Badge {
	return models.Badge{
		ID:           id,
		Name:         name,
		Description:  description,
		Icon:         defaultBadgeIcon,
		Rarity:       rarity,
		Requirements: description,
	}
}

// BadgeRules is evaluated in order; CheckBadgeEligibility returns badges in
// this order. Adding a badge means adding a row here.
var BadgeRules = []BadgeRule{
	{
		Badge: badge("first_segment", "Premier Segment", "Créer votre premier segment", models.RarityCommon),
		Earned: func(_ models.User, s models.UserStats) bool {
			return s.TotalSegments >= 1
		},
	},
	{
		Badge: badge("prolific_writer", "Conteur Prolifique", "Créer 10 segments", models.RarityRare),
		Earned: func(_ models.User, s models.UserStats) bool {
			return s.TotalSegments >= 10
		},
	},
	{
		Badge: badge("multiverse_master", "Maître du Multivers", "Participer à 5 trames différentes", models.RarityEpic),
		Earned: func(_ models.User, s models.UserStats) bool {
			return s.TotalThreads >= 5
		},
	},
	{
		Badge: badge("inspirator", "Inspirateur", "Recevoir 100 likes", models.RarityRare),
		Earned: func(_ models.User, s models.UserStats) bool {
			return s.TotalLikes >= 100
		},
	},
	{
		Badge: badge("legendary_creator", "Créateur Légendaire", "Atteindre le niveau 10", models.RarityLegendary),
		Earned: func(u models.User, _ models.UserStats) bool {
			return u.Level >= 10
		},
	},
}

// CheckBadgeEligibility returns the badges whose rule holds and which the
// user doesn't hold yet. The user is not modified.
func CheckBadgeEligibility(user models.User, stats models.UserStats) []models.Badge {
	earned := make([]models.Badge, 0)
	for _, rule := range BadgeRules {
		if user.HasBadge(rule.Badge.ID) {
			continue
		}
		if rule.Earned(user, stats) {
			earned = append(earned, rule.Badge)
		}
	}
	return earned
}

// CatalogEntry is a badge definition annotated for display.
type CatalogEntry struct {
	models.Badge
	Earned bool `json:"earned"`
}

// BadgeCatalog lists every badge definition with whether user holds it.
func BadgeCatalog(user models.User) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(BadgeRules))
	for _, rule := range BadgeRules {
		out = append(out, CatalogEntry{Badge: rule.Badge, Earned: user.HasBadge(rule.Badge.ID)})
	}
	return out
}
