package publisher

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// resolveTags matches requested tag names against the forum channel's
// available tags. Matching is case-insensitive and exact; names with no
// counterpart are dropped and duplicate requests collapse to one tag.
func resolveTags(available []discordgo.ForumTag, requested []string) []string {
	if len(requested) == 0 {
		return nil
	}

	tagsByName := make(map[string]string, len(available))
	for _, t := range available {
		tagsByName[strings.ToLower(t.Name)] = t.ID
	}

	var resolved []string
	seen := make(map[string]bool)
	for _, name := range requested {
		id, ok := tagsByName[strings.ToLower(name)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		resolved = append(resolved, id)
	}
	return resolved
}
