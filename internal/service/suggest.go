package service

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"bollywoodle/internal/models"
)

// DefaultSuggestionLimit caps the suggestion dropdown
const DefaultSuggestionLimit = 10

// SuggestTitles returns the titles containing query, ignoring case, with
// the closest Jaro-Winkler matches first. An empty query suggests nothing.
func SuggestTitles(titles []models.SongTitle, query string, limit int) []models.SongTitle {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []models.SongTitle{}
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	type scored struct {
		title models.SongTitle
		score float64
	}

	jw := metrics.NewJaroWinkler()
	jw.CaseSensitive = false

	var matches []scored
	for _, t := range titles {
		lower := strings.ToLower(t.Title)
		if !strings.Contains(lower, query) {
			continue
		}
		score := strutil.Similarity(query, lower, jw)
		if strings.HasPrefix(lower, query) {
			score += 1
		}
		matches = append(matches, scored{title: t, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].title.Title < matches[j].title.Title
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]models.SongTitle, len(matches))
	for i, m := range matches {
		out[i] = m.title
	}
	return out
}
