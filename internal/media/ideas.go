package media

const defaultIdeaCount = 3

var storyIdeas = []string{
	"Un mystérieux artefact découvert dans une bibliothèque ancienne",
	"Une rencontre inattendue dans un café interdimensionnel",
	"L'éveil d'un pouvoir oublié dans un monde post-apocalyptique",
}

// StoryIdeas returns up to count opening ideas for a genre. The list is
// canned for now and the same for every genre; count <= 0 means the
// default of three.
// TODO: route through Generator once the provider exposes a text endpoint.
func StoryIdeas(genreID string, count int) []string {
	if count <= 0 {
		count = defaultIdeaCount
	}
	if count > len(storyIdeas) {
		count = len(storyIdeas)
	}
	out := make([]string, count)
	copy(out, storyIdeas[:count])
	return out
}
