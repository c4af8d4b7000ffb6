package catalog

import "github.com/lalith-99/storyverse/internal/models"

// genres is the seeded genre list. It is never modified after package init;
// every accessor hands out copies.
var genres = []models.Genre{
	{
		ID:          "fantasy",
		Name:        "Fantasy",
		Description: "Mondes magiques, créatures mystiques et aventures épiques",
		Color:       "#8B5CF6",
		Icon:        "sparkles",
	},
	{
		ID:          "scifi",
		Name:        "Sci-Fi",
		Description: "Technologie avancée, voyages spatiaux et futurs alternatifs",
		Color:       "#06B6D4",
		Icon:        "zap",
	},
	{
		ID:          "comedy",
		Name:        "Comédie",
		Description: "Histoires drôles et situations loufoques",
		Color:       "#F59E0B",
		Icon:        "smile",
	},
	{
		ID:          "horror",
		Name:        "Horreur",
		Description: "Suspense, terreur et mystères sombres",
		Color:       "#EF4444",
		Icon:        "ghost",
	},
	{
		ID:          "romance",
		Name:        "Romance",
		Description: "Histoires d'amour et relations touchantes",
		Color:       "#EC4899",
		Icon:        "heart",
	},
	{
		ID:          "multiverse",
		Name:        "Multivers",
		Description: "Réalités parallèles et dimensions alternatives",
		Color:       "#10B981",
		Icon:        "globe",
	},
}

// Genres returns every genre in catalog order. The slice is a fresh copy.
func Genres() []models.Genre {
	out := make([]models.Genre, len(genres))
	copy(out, genres)
	return out
}

// GenreByID looks a genre up by id.
func GenreByID(id string) (models.Genre, bool) {
	for _, g := range genres {
		if g.ID == id {
			return g, true
		}
	}
	return models.Genre{}, false
}

// Default is the genre a thread gets when none is chosen.
func Default() models.Genre {
	return genres[0]
}
