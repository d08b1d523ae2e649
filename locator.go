package tweets

import (
	"strings"
	"unicode"
)

// addEntriesInstruction is the instruction type whose entries carry tweets.
const addEntriesInstruction = "TimelineAddEntries"

// locateEntry returns the entry describing id, or nil when none matches.
func locateEntry(instructions []timelineInstruction, id string) *timelineEntry {
	if id == "" {
		return nil
	}
	for i := range instructions {
		ins := &instructions[i]
		if ins.Type != addEntriesInstruction {
			continue
		}
		for j := range ins.Entries {
			if entryTweetID(ins.Entries[j].EntryID) == id {
				return &ins.Entries[j]
			}
		}
	}
	return nil
}

// entryTweetID returns the numeric suffix of an entry id such as
// "tweet-1460323737035677698", or "" if the id has no "<word>-<digits>" shape.
func entryTweetID(entryID string) string {
	idx := strings.LastIndexByte(entryID, '-')
	if idx <= 0 || idx == len(entryID)-1 {
		return ""
	}
	prefix, suffix := entryID[:idx], entryID[idx+1:]
	if r := rune(prefix[0]); !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
		return ""
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return suffix
}

// Locates reports whether body is a TweetDetail payload with an entry for id.
// Sources that observe several responses use it to pick the one to return.
func Locates(body []byte, id string) bool {
	instructions, err := decodeInstructions(body)
	if err != nil {
		return false
	}
	return locateEntry(instructions, id) != nil
}
