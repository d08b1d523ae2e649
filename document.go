package tweets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// The types below are a narrow view of the TweetDetail payload. Only the
// paths the extractors read are declared. Optional values are pointers:
// nil means the path was absent (or null) upstream.

type tweetDetailResponse struct {
	Data struct {
		Conversation struct {
			Instructions []json.RawMessage `json:"instructions"`
		} `json:"threaded_conversation_with_injections_v2"`
	} `json:"data"`
}

type timelineInstruction struct {
	Type    string
	Entries []timelineEntry
}

type timelineEntry struct {
	EntryID string `json:"entryId"`
	Content struct {
		ItemContent json.RawMessage `json:"itemContent"`
	} `json:"content"`
}

// result decodes the entry's tweet result. It returns nil, nil when the entry
// carries no tweet result at all.
func (e *timelineEntry) result() (*tweetResult, error) {
	if len(e.Content.ItemContent) == 0 {
		return nil, nil
	}
	var item struct {
		TweetResults *struct {
			Result *tweetResult `json:"result"`
		} `json:"tweet_results"`
	}
	if err := json.Unmarshal(e.Content.ItemContent, &item); err != nil {
		return nil, fmt.Errorf("unmarshal itemContent of %s: %w", e.EntryID, err)
	}
	if item.TweetResults == nil {
		return nil, nil
	}
	return item.TweetResults.Result, nil
}

// tweetResult is one tweet_results.result object. The paths every build
// reads (type, id, text, edit history, terminal markers) are decoded up
// front and must be well formed. The other branches stay raw until the
// extractor of the field that reads them decodes its own slice.
type tweetResult struct {
	TypeName string
	RestID   *string

	// TweetWithVisibilityResults wraps the real tweet here.
	Tweet *tweetResult

	Tombstone *tombstoneView // TweetTombstone
	Reason    *string        // TweetUnavailable

	FullText     *string // legacy.full_text
	NoteText     *string // note_tweet.note_tweet_results.result.text
	EditTweetIDs []string

	branches resultBranches
}

type resultBranches struct {
	Source             json.RawMessage `json:"source"`
	Core               json.RawMessage `json:"core"`
	EditControl        json.RawMessage `json:"edit_control"`
	QuotedStatusResult json.RawMessage `json:"quoted_status_result"`
	Card               json.RawMessage `json:"card"`
	Views              json.RawMessage `json:"views"`
	Legacy             json.RawMessage `json:"legacy"`
}

type tombstoneView struct {
	Text *struct {
		Text *string `json:"text"`
	} `json:"text"`
}

// editHistory is the part of edit_control the base record needs.
type editHistory struct {
	EditTweetIDs []string     `json:"edit_tweet_ids"`
	Initial      *editHistory `json:"edit_control_initial"`
}

func (r *tweetResult) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var base struct {
		TypeName    string         `json:"__typename"`
		RestID      *string        `json:"rest_id"`
		Tweet       *tweetResult   `json:"tweet"`
		Tombstone   *tombstoneView `json:"tombstone"`
		Reason      *string        `json:"reason"`
		EditControl *editHistory   `json:"edit_control"`
		NoteTweet   *struct {
			NoteTweetResults *struct {
				Result *struct {
					Text *string `json:"text"`
				} `json:"result"`
			} `json:"note_tweet_results"`
		} `json:"note_tweet"`
		Legacy *struct {
			FullText *string `json:"full_text"`
		} `json:"legacy"`
	}
	if err := json.Unmarshal(b, &base); err != nil {
		return err
	}
	if err := json.Unmarshal(b, &r.branches); err != nil {
		return err
	}

	r.TypeName = base.TypeName
	r.RestID = base.RestID
	r.Tweet = base.Tweet
	r.Tombstone = base.Tombstone
	r.Reason = base.Reason
	if ec := base.EditControl; ec != nil {
		// Edited tweets nest the history under edit_control_initial.
		if ec.EditTweetIDs == nil && ec.Initial != nil {
			ec = ec.Initial
		}
		r.EditTweetIDs = ec.EditTweetIDs
	}
	if nt := base.NoteTweet; nt != nil && nt.NoteTweetResults != nil && nt.NoteTweetResults.Result != nil {
		r.NoteText = nt.NoteTweetResults.Result.Text
	}
	if base.Legacy != nil {
		r.FullText = base.Legacy.FullText
	}
	return nil
}

// legacy decodes the legacy branch into v. Absent, null and malformed
// branches report false.
func (r *tweetResult) legacy(v any) bool {
	return optional(r.branches.Legacy, v)
}

// decodeBranch decodes raw into v. It reports false when raw is absent or null.
func decodeBranch(raw json.RawMessage, v any) (bool, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

// optional decodes a branch whose field is omitted when the data is unusable.
func optional(raw json.RawMessage, v any) bool {
	ok, err := decodeBranch(raw, v)
	return ok && err == nil
}

// required decodes a branch the field f cannot do without.
func required(f Field, path string, raw json.RawMessage, v any) error {
	ok, err := decodeBranch(raw, v)
	if err != nil {
		return &fieldError{Field: f, Detail: path + " is malformed"}
	}
	if !ok {
		return missing(f, path)
	}
	return nil
}

type resultRef struct {
	Result *struct {
		RestID *string `json:"rest_id"`
	} `json:"result"`
}

// restID returns the referenced rest_id, or nil when any hop is absent.
func (r *resultRef) restID() *string {
	if r == nil || r.Result == nil {
		return nil
	}
	return r.Result.RestID
}

type editControl struct {
	EditTweetIDs       []string     `json:"edit_tweet_ids"`
	EditableUntilMsecs *flexNumber  `json:"editable_until_msecs"`
	IsEditEligible     *bool        `json:"is_edit_eligible"`
	EditsRemaining     *flexNumber  `json:"edits_remaining"`
	Initial            *editControl `json:"edit_control_initial"`
}

// effective returns the edit control carrying the edit history.
func (ec *editControl) effective() *editControl {
	if ec == nil {
		return nil
	}
	if ec.EditTweetIDs == nil && ec.Initial != nil {
		return ec.Initial
	}
	return ec
}

// flexNumber accepts an integer encoded either as a JSON number or as a
// decimal string; upstream uses both for the same fields.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = flexNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("flexNumber: %w", err)
	}
	*n = flexNumber(num.String())
	return nil
}

func (n flexNumber) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// decodeInstructions extracts the instruction list from a TweetDetail body.
// Instructions and entries that do not decode are skipped; only the shape
// of the envelope itself is an error.
func decodeInstructions(body []byte) ([]timelineInstruction, error) {
	var raw tweetDetailResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal TweetDetail: %w", err)
	}
	instructions := make([]timelineInstruction, 0, len(raw.Data.Conversation.Instructions))
	for _, ri := range raw.Data.Conversation.Instructions {
		var in struct {
			Type    string            `json:"type"`
			Entries []json.RawMessage `json:"entries"`
		}
		if err := json.Unmarshal(ri, &in); err != nil {
			continue
		}
		ins := timelineInstruction{Type: in.Type}
		for _, re := range in.Entries {
			var e timelineEntry
			if err := json.Unmarshal(re, &e); err != nil {
				continue
			}
			ins.Entries = append(ins.Entries, e)
		}
		instructions = append(instructions, ins)
	}
	return instructions, nil
}
