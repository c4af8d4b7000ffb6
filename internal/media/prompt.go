package media

import (
	"strings"

	"github.com/lalith-99/storyverse/internal/models"
)

const (
	imageEnhancement = "High quality, detailed illustration, cinematic lighting, 4K resolution"
	videoEnhancement = "Cinematic video, smooth animation, high quality, dramatic lighting"
)

// EnhancePrompt appends the fixed quality suffix for the media type and,
// when given, the requested style.
func EnhancePrompt(prompt string, kind models.MediaType, style string) string {
	enhancement := imageEnhancement
	if kind == models.MediaVideo {
		enhancement = videoEnhancement
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString(". ")
	b.WriteString(enhancement)
	if style = strings.TrimSpace(style); style != "" {
		b.WriteString(". Style: ")
		b.WriteString(style)
	}
	return b.String()
}
