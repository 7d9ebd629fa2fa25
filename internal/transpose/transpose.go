// Package transpose shifts chord symbols between musical keys. It is pure
// computation with no external dependencies: the only server-side music
// theory in the application.
package transpose

import (
	"regexp"
	"strings"
)

// pitchClass maps note names to semitone offsets from C. Flat spellings are
// accepted on input as synonyms of their sharp equivalents.
var pitchClass = map[string]int{
	"C": 0, "C#": 1, "Db": 1,
	"D": 2, "D#": 3, "Eb": 3,
	"E": 4,
	"F": 5, "F#": 6, "Gb": 6,
	"G": 7, "G#": 8, "Ab": 8,
	"A": 9, "A#": 10, "Bb": 10,
	"B": 11,
}

// sharpNames is the canonical output spelling for each pitch class. Output
// is always sharp-based; flats never appear in transposed text.
var sharpNames = [12]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// tokenPattern picks out whitespace-delimited tokens; chord text keeps its
// exact spacing because only the tokens themselves are rewritten.
var tokenPattern = regexp.MustCompile(`\S+`)

// chordPattern matches a complete chord token: a root note with an optional
// accidental, followed by any run of quality and extension markers. Anchored
// so that lyric words never half-match. A word-boundary variant would miss
// bare sharp roots like "F#", where '#' never sits on a boundary.
var chordPattern = regexp.MustCompile(`^([A-G][#b]?)((?:maj|min|m|M|sus|aug|dim|add|\d)*)$`)

// Interval returns the semitone distance from one key to another, in the
// range 0-11. Either key being unrecognized yields ok=false.
func Interval(fromKey, toKey string) (semitones int, ok bool) {
	from, okFrom := pitchClass[normalizeKey(fromKey)]
	to, okTo := pitchClass[normalizeKey(toKey)]
	if !okFrom || !okTo {
		return 0, false
	}
	return ((to-from)%12 + 12) % 12, true
}

// Text rewrites every chord token in text by the interval between fromKey
// and toKey. Unknown keys make the whole call a no-op; tokens that are not
// chords pass through untouched, as do spacing and section markers.
func Text(text, fromKey, toKey string) string {
	semitones, ok := Interval(fromKey, toKey)
	if !ok || semitones == 0 {
		return text
	}

	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		return transposeChord(token, semitones)
	})
}

// Key transposes a bare key name, returning it unchanged when unrecognized.
func Key(key string, semitones int) string {
	pc, ok := pitchClass[normalizeKey(key)]
	if !ok {
		return key
	}
	return sharpNames[((pc+semitones)%12+12)%12]
}

// transposeChord shifts a single chord token, preserving its suffix
func transposeChord(token string, semitones int) string {
	parts := chordPattern.FindStringSubmatch(token)
	if parts == nil {
		return token
	}

	pc, ok := pitchClass[parts[1]]
	if !ok {
		return token
	}
	return sharpNames[((pc+semitones)%12+12)%12] + parts[2]
}

// normalizeKey strips minor-key suffixes and whitespace so "Am", "a minor",
// and "A" all resolve to the same pitch class
func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return key
	}

	root := strings.ToUpper(key[:1])
	if len(key) > 1 && (key[1] == '#' || key[1] == 'b') {
		root += string(key[1])
	}
	return root
}
