package domain

import (
	"fmt"
	"strings"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/errors"
)

// tracks is the complete Mario Kart World track catalog. Challenge rows
// store the canonical name, so ordering and spelling here are load-bearing.
var tracks = []string{
	"Mario Bros. Circuit",
	"Crown City",
	"Whistlestop Summit",
	"DK Spaceport",
	"Desert Hills",
	"Shy Guy Bazaar",
	"Wario Stadium",
	"Airship Fortress",
	"DK Pass",
	"Starview Peak",
	"Sky-High Sundae",
	"Wario Shipyard",
	"Koopa Troopa Beach",
	"Faraway Oasis",
	"Peach Stadium",
	"Peach Beach",
	"Salty Salty Speedway",
	"Dino Dino Jungle",
	"Great ? Block Ruins",
	"Cheep Cheep Falls",
	"Dandelion Depths",
	"Boo Cinema",
	"Dry Bones Burnout",
	"Moo Moo Meadows",
	"Choco Mountain",
	"Toad's Factory",
	"Bowser's Castle",
	"Acorn Heights",
	"Mario Circuit",
	"Rainbow Road",
}

var trackIndex = func() map[string]string {
	m := make(map[string]string, len(tracks))
	for _, track := range tracks {
		m[strings.ToLower(track)] = track
	}
	return m
}()

// Tracks returns the full catalog in display order.
func Tracks() []string {
	out := make([]string, len(tracks))
	copy(out, tracks)
	return out
}

// CanonicalTrack resolves a user-supplied track name to its canonical
// catalog spelling, matching case-insensitively.
func CanonicalTrack(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if canonical, ok := trackIndex[strings.ToLower(trimmed)]; ok {
		return canonical, nil
	}
	return "", errors.WithMetadata(errors.CodeChallengeUnknownTrack,
		fmt.Sprintf("unknown track %q", name),
		map[string]string{"Track": trimmed})
}

// SearchTracks returns catalog tracks matching the query, exact matches
// first, then prefix matches, then substring matches. An empty query
// returns the whole catalog. Results are capped at limit when positive.
func SearchTracks(query string, limit int) []string {
	if limit <= 0 || limit > len(tracks) {
		limit = len(tracks)
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Tracks()[:limit]
	}

	var matches []string
	seen := make(map[string]bool)
	add := func(track string) {
		if !seen[track] {
			seen[track] = true
			matches = append(matches, track)
		}
	}

	for _, track := range tracks {
		if strings.ToLower(track) == q {
			add(track)
		}
	}
	for _, track := range tracks {
		if strings.HasPrefix(strings.ToLower(track), q) {
			add(track)
		}
	}
	for _, track := range tracks {
		if strings.Contains(strings.ToLower(track), q) {
			add(track)
		}
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
