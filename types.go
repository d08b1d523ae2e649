package tweets

import (
	"encoding/json"
	"time"
)

// isoMillis is the ISO-8601 layout used for every timestamp in a Tweet.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Tweet is the assembled record. ID, Text and EditHistoryTweetIDs are always set
// on a successful build; every other field is either fully populated or absent.
type Tweet struct {
	ID                  string   `json:"id"`
	Text                string   `json:"text"`
	EditHistoryTweetIDs []string `json:"edit_history_tweet_ids"`

	Attachments       *Attachments      `json:"attachments,omitempty"`
	AuthorID          string            `json:"author_id,omitempty"`
	ConversationID    string            `json:"conversation_id,omitempty"`
	CreatedAt         *Timestamp        `json:"created_at,omitempty"`
	EditControls      *EditControls     `json:"edit_controls,omitempty"`
	Entities          *Entities         `json:"entities,omitempty"`
	InReplyToUserID   string            `json:"in_reply_to_user_id,omitempty"`
	Lang              string            `json:"lang,omitempty"`
	PossiblySensitive *bool             `json:"possibly_sensitive,omitempty"`
	PublicMetrics     *PublicMetrics    `json:"public_metrics,omitempty"`
	ReferencedTweets  []ReferencedTweet `json:"referenced_tweets,omitempty"`
	ReplySettings     ReplySettings     `json:"reply_settings,omitempty"`
	Source            string            `json:"source,omitempty"`
}

// Timestamp is a UTC instant rendered as ISO-8601 with millisecond precision.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// String returns the ISO-8601 form, e.g. 2021-11-15T19:08:05.000Z.
func (ts Timestamp) String() string {
	return ts.UTC().Format(isoMillis)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	ts.Time = t.UTC()
	return nil
}

type EditControls struct {
	EditableUntil  Timestamp `json:"editable_until"`
	IsEditEligible bool      `json:"is_edit_eligible"`
	EditsRemaining int       `json:"edits_remaining"`
}

type Attachments struct {
	MediaKeys []string `json:"media_keys,omitempty"`
	PollIDs   []string `json:"poll_ids,omitempty"`
}

type Entities struct {
	Hashtags []Hashtag `json:"hashtags,omitempty"`
	Mentions []Mention `json:"mentions,omitempty"`
	URLs     []URL     `json:"urls,omitempty"`
}

type Hashtag struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Tag   string `json:"tag"`
}

// Mention carries End == Start; downstream consumers rely on that convention.
type Mention struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Username string `json:"username"`
}

type URL struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
	DisplayURL  string `json:"display_url"`
}

// PublicMetrics holds engagement counters. ImpressionCount is nil when the
// upstream view count is not published.
type PublicMetrics struct {
	LikeCount       int  `json:"like_count"`
	RetweetCount    int  `json:"retweet_count"`
	ReplyCount      int  `json:"reply_count"`
	QuoteCount      int  `json:"quote_count"`
	ImpressionCount *int `json:"impression_count,omitempty"`
}

// ReferenceType is the relation between a tweet and a tweet it references.
type ReferenceType string

const (
	ReferenceQuoted    ReferenceType = "quoted"
	ReferenceRepliedTo ReferenceType = "replied_to"
	ReferenceRetweeted ReferenceType = "retweeted"
)

type ReferencedTweet struct {
	Type ReferenceType `json:"type"`
	ID   string        `json:"id"`
}

// ReplySettings describes who may reply to a tweet.
type ReplySettings string

const (
	ReplyEveryone       ReplySettings = "everyone"
	ReplyFollowers      ReplySettings = "following"
	ReplyMentionedUsers ReplySettings = "mentionedUsers"
)
