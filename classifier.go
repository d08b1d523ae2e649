package tweets

import "strings"

const (
	typeTombstone         = "TweetTombstone"
	typeUnavailable       = "TweetUnavailable"
	typeVisibilityWrapped = "TweetWithVisibilityResults"
)

// Tombstone is what a terminal marker tells us about a missing tweet.
type Tombstone struct {
	TypeName string // TweetTombstone or TweetUnavailable
	Text     string // human-readable explanation, may be empty
	Reason   string // upstream reason code of TweetUnavailable, may be empty
}

// Classifier decides why a tombstoned tweet cannot be served.
type Classifier interface {
	Classify(t Tombstone) Reason
}

// TombstoneRule maps an explanation substring to a reason.
type TombstoneRule struct {
	Contains string
	Reason   Reason
}

// RuleClassifier checks reason codes first, then text rules in order.
// Anything unmatched is ReasonUnavailable.
type RuleClassifier struct {
	Rules []TombstoneRule
	Codes map[string]Reason
}

func (c *RuleClassifier) Classify(t Tombstone) Reason {
	if r, ok := c.Codes[t.Reason]; ok && t.Reason != "" {
		return r
	}
	if t.Text != "" {
		for _, rule := range c.Rules {
			if strings.Contains(t.Text, rule.Contains) {
				return rule.Reason
			}
		}
	}
	return ReasonUnavailable
}

// DefaultClassifier returns the rules matching upstream's current wording.
func DefaultClassifier() *RuleClassifier {
	return &RuleClassifier{
		Rules: []TombstoneRule{
			{Contains: "appropriate for people under 18", Reason: ReasonAgeRestricted},
			{Contains: "Age-restricted", Reason: ReasonAgeRestricted},
			{Contains: "limits who can view", Reason: ReasonPrivateAccount},
			{Contains: "restricting who can view", Reason: ReasonPrivateAccount},
			{Contains: "restricts who can view", Reason: ReasonPrivateAccount},
		},
		Codes: map[string]Reason{
			"NsfwLoggedOut": ReasonAgeRestricted,
			"Protected":     ReasonPrivateAccount,
		},
	}
}

// unwrap strips the visibility wrapper some tweets come in.
func unwrap(r *tweetResult) *tweetResult {
	for r != nil && r.TypeName == typeVisibilityWrapped && r.Tweet != nil {
		r = r.Tweet
	}
	return r
}

// tombstoneOf reports whether r is a terminal marker and what it says.
func tombstoneOf(r *tweetResult) (Tombstone, bool) {
	if r == nil {
		return Tombstone{}, false
	}
	switch r.TypeName {
	case typeTombstone, typeUnavailable:
	default:
		return Tombstone{}, false
	}
	t := Tombstone{TypeName: r.TypeName}
	if r.Tombstone != nil && r.Tombstone.Text != nil && r.Tombstone.Text.Text != nil {
		t.Text = *r.Tombstone.Text.Text
	}
	if r.Reason != nil {
		t.Reason = *r.Reason
	}
	return t, true
}

var tombstoneDetails = map[Reason]string{
	ReasonAgeRestricted:  "Tweet is age restricted. Unauthorized to serve this tweet.",
	ReasonPrivateAccount: "Tweet belongs to an account that restricts who can view it.",
	ReasonUnavailable:    "Tweet is unavailable for an unknown reason.",
}

// tombstoneError builds the error for a classified terminal marker.
func tombstoneError(id string, t Tombstone, reason Reason) *Error {
	detail, ok := tombstoneDetails[reason]
	if !ok {
		detail = "Tweet cannot be served."
	}
	data := map[string]any{"id": id}
	if t.Text != "" {
		data["tombstone_text"] = t.Text
	}
	if t.Reason != "" {
		data["unavailable_reason"] = t.Reason
	}
	return NewError(reason, detail, data)
}
