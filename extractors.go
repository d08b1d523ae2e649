package tweets

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// createdAtLayout is the upstream legacy.created_at format.
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

var (
	pollIDRe     = regexp.MustCompile(`^card://(\d+)$`)
	sourceAnchor = regexp.MustCompile(`(?s)^\s*<a\b[^>]*>(.*?)</a>\s*$`)
)

// extractFunc reads r and writes one field of t. It returns a *fieldError
// when a field that must exist on a real tweet is missing or malformed; it
// never writes to t in that case.
type extractFunc func(r *tweetResult, t *Tweet) error

// fieldError reports an extraction failure for a single field.
type fieldError struct {
	Field  Field
	Detail string
	Value  any
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

func missing(f Field, path string) *fieldError {
	return &fieldError{Field: f, Detail: path + " is missing"}
}

// extractors maps every supported field to its extraction routine.
var extractors = map[Field]extractFunc{
	FieldAttachments:       extractAttachments,
	FieldAuthorID:          extractAuthorID,
	FieldConversationID:    extractConversationID,
	FieldCreatedAt:         extractCreatedAt,
	FieldEditControls:      extractEditControls,
	FieldEntities:          extractEntities,
	FieldInReplyToUserID:   extractInReplyToUserID,
	FieldLang:              extractLang,
	FieldPublicMetrics:     extractPublicMetrics,
	FieldPossiblySensitive: extractPossiblySensitive,
	FieldReferencedTweets:  extractReferencedTweets,
	FieldReplySettings:     extractReplySettings,
	FieldSource:            extractSource,
}

func extractAuthorID(r *tweetResult, t *Tweet) error {
	var core struct {
		UserResults *struct {
			Result *struct {
				RestID *string `json:"rest_id"`
			} `json:"result"`
		} `json:"user_results"`
	}
	if !optional(r.branches.Core, &core) {
		return nil
	}
	if u := core.UserResults; u != nil && u.Result != nil && u.Result.RestID != nil {
		t.AuthorID = *u.Result.RestID
	}
	return nil
}

func extractConversationID(r *tweetResult, t *Tweet) error {
	var l struct {
		ConversationIDStr *string `json:"conversation_id_str"`
	}
	if r.legacy(&l) && l.ConversationIDStr != nil {
		t.ConversationID = *l.ConversationIDStr
	}
	return nil
}

func extractInReplyToUserID(r *tweetResult, t *Tweet) error {
	var l struct {
		InReplyToUserIDStr *string `json:"in_reply_to_user_id_str"`
	}
	if r.legacy(&l) && l.InReplyToUserIDStr != nil {
		t.InReplyToUserID = *l.InReplyToUserIDStr
	}
	return nil
}

func extractLang(r *tweetResult, t *Tweet) error {
	var l struct {
		Lang json.RawMessage `json:"lang"`
	}
	if err := required(FieldLang, "legacy", r.branches.Legacy, &l); err != nil {
		return err
	}
	var lang string
	if err := required(FieldLang, "legacy.lang", l.Lang, &lang); err != nil {
		return err
	}
	t.Lang = lang
	return nil
}

func extractPossiblySensitive(r *tweetResult, t *Tweet) error {
	var l struct {
		PossiblySensitive json.RawMessage `json:"possibly_sensitive"`
	}
	if err := required(FieldPossiblySensitive, "legacy", r.branches.Legacy, &l); err != nil {
		return err
	}
	var v bool
	if err := required(FieldPossiblySensitive, "legacy.possibly_sensitive", l.PossiblySensitive, &v); err != nil {
		return err
	}
	t.PossiblySensitive = &v
	return nil
}

func extractSource(r *tweetResult, t *Tweet) error {
	var src string
	if err := required(FieldSource, "source", r.branches.Source, &src); err != nil {
		return err
	}
	if m := sourceAnchor.FindStringSubmatch(src); m != nil {
		src = strings.TrimSpace(m[1])
	}
	t.Source = src
	return nil
}

func extractCreatedAt(r *tweetResult, t *Tweet) error {
	var l struct {
		CreatedAt json.RawMessage `json:"created_at"`
	}
	if err := required(FieldCreatedAt, "legacy", r.branches.Legacy, &l); err != nil {
		return err
	}
	var createdAt string
	if err := required(FieldCreatedAt, "legacy.created_at", l.CreatedAt, &createdAt); err != nil {
		return err
	}
	parsed, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return &fieldError{Field: FieldCreatedAt, Detail: "legacy.created_at is not a valid timestamp", Value: createdAt}
	}
	ts := NewTimestamp(parsed)
	t.CreatedAt = &ts
	return nil
}

func extractEditControls(r *tweetResult, t *Tweet) error {
	var raw editControl
	if err := required(FieldEditControls, "edit_control", r.branches.EditControl, &raw); err != nil {
		return err
	}
	ec := raw.effective()
	if ec.EditableUntilMsecs == nil {
		return missing(FieldEditControls, "edit_control.editable_until_msecs")
	}
	if ec.IsEditEligible == nil {
		return missing(FieldEditControls, "edit_control.is_edit_eligible")
	}
	if ec.EditsRemaining == nil {
		return missing(FieldEditControls, "edit_control.edits_remaining")
	}
	msecs, err := ec.EditableUntilMsecs.Int64()
	if err != nil {
		return &fieldError{Field: FieldEditControls, Detail: "edit_control.editable_until_msecs is not an integer", Value: string(*ec.EditableUntilMsecs)}
	}
	remaining, err := ec.EditsRemaining.Int64()
	if err != nil || remaining < 0 {
		return &fieldError{Field: FieldEditControls, Detail: "edit_control.edits_remaining is not a non-negative integer", Value: string(*ec.EditsRemaining)}
	}
	t.EditControls = &EditControls{
		EditableUntil:  NewTimestamp(time.UnixMilli(msecs)),
		IsEditEligible: *ec.IsEditEligible,
		EditsRemaining: int(remaining),
	}
	return nil
}

// extractReferencedTweets emits quoted, replied_to, retweeted in that order.
// Each pointer is read on its own; one that does not decode is skipped.
func extractReferencedTweets(r *tweetResult, t *Tweet) error {
	var refs []ReferencedTweet
	var quoted resultRef
	if optional(r.branches.QuotedStatusResult, &quoted) {
		if id := quoted.restID(); id != nil {
			refs = append(refs, ReferencedTweet{Type: ReferenceQuoted, ID: *id})
		}
	}
	var l struct {
		InReplyToStatusIDStr json.RawMessage `json:"in_reply_to_status_id_str"`
		RetweetedStatus      json.RawMessage `json:"retweeted_status_result"`
	}
	if r.legacy(&l) {
		var parent string
		if optional(l.InReplyToStatusIDStr, &parent) {
			refs = append(refs, ReferencedTweet{Type: ReferenceRepliedTo, ID: parent})
		}
		var retweeted resultRef
		if optional(l.RetweetedStatus, &retweeted) {
			if id := retweeted.restID(); id != nil {
				refs = append(refs, ReferencedTweet{Type: ReferenceRetweeted, ID: *id})
			}
		}
	}
	if len(refs) > 0 {
		t.ReferencedTweets = refs
	}
	return nil
}

func extractAttachments(r *tweetResult, t *Tweet) error {
	var a Attachments
	var l struct {
		ExtendedEntities *struct {
			Media []json.RawMessage `json:"media"`
		} `json:"extended_entities"`
	}
	if r.legacy(&l) && l.ExtendedEntities != nil {
		for _, raw := range l.ExtendedEntities.Media {
			var m struct {
				MediaKey *string `json:"media_key"`
			}
			if optional(raw, &m) && m.MediaKey != nil {
				a.MediaKeys = append(a.MediaKeys, *m.MediaKey)
			}
		}
	}
	var card struct {
		RestID *string `json:"rest_id"`
		Legacy *struct {
			Name *string `json:"name"`
		} `json:"legacy"`
	}
	if optional(r.branches.Card, &card) && card.Legacy != nil && card.Legacy.Name != nil && card.RestID != nil &&
		strings.HasPrefix(*card.Legacy.Name, "poll") {
		if m := pollIDRe.FindStringSubmatch(*card.RestID); m != nil {
			a.PollIDs = []string{m[1]}
		}
	}
	if a.MediaKeys == nil && a.PollIDs == nil {
		return nil
	}
	t.Attachments = &a
	return nil
}

// spans decodes each element of an entity list on its own, dropping the
// ones that do not decode.
func spans[T any](raw json.RawMessage) []T {
	var elems []json.RawMessage
	if !optional(raw, &elems) {
		return nil
	}
	out := make([]T, 0, len(elems))
	for _, e := range elems {
		var v T
		if optional(e, &v) {
			out = append(out, v)
		}
	}
	return out
}

// extractEntities maps hashtag, mention and url spans. Hashtags and urls
// need a [start, end] pair; mentions only read the start. Elements without
// them are skipped.
func extractEntities(r *tweetResult, t *Tweet) error {
	var l struct {
		Entities *struct {
			Hashtags     json.RawMessage `json:"hashtags"`
			UserMentions json.RawMessage `json:"user_mentions"`
			URLs         json.RawMessage `json:"urls"`
		} `json:"entities"`
	}
	if !r.legacy(&l) || l.Entities == nil {
		return nil
	}
	src := l.Entities
	var e Entities
	type hashtag struct {
		Indices []int  `json:"indices"`
		Text    string `json:"text"`
	}
	for _, h := range spans[hashtag](src.Hashtags) {
		if len(h.Indices) < 2 {
			continue
		}
		e.Hashtags = append(e.Hashtags, Hashtag{Start: h.Indices[0], End: h.Indices[1], Tag: h.Text})
	}
	type mention struct {
		Indices    []int  `json:"indices"`
		ScreenName string `json:"screen_name"`
	}
	for _, m := range spans[mention](src.UserMentions) {
		if len(m.Indices) == 0 {
			continue
		}
		e.Mentions = append(e.Mentions, Mention{Start: m.Indices[0], End: m.Indices[0], Username: m.ScreenName})
	}
	type link struct {
		Indices     []int  `json:"indices"`
		URL         string `json:"url"`
		ExpandedURL string `json:"expanded_url"`
		DisplayURL  string `json:"display_url"`
	}
	for _, u := range spans[link](src.URLs) {
		if len(u.Indices) < 2 {
			continue
		}
		e.URLs = append(e.URLs, URL{
			Start:       u.Indices[0],
			End:         u.Indices[1],
			URL:         u.URL,
			ExpandedURL: u.ExpandedURL,
			DisplayURL:  u.DisplayURL,
		})
	}
	if e.Hashtags == nil && e.Mentions == nil && e.URLs == nil {
		return nil
	}
	t.Entities = &e
	return nil
}

func extractPublicMetrics(r *tweetResult, t *Tweet) error {
	var l struct {
		FavoriteCount json.RawMessage `json:"favorite_count"`
		RetweetCount  json.RawMessage `json:"retweet_count"`
		ReplyCount    json.RawMessage `json:"reply_count"`
		QuoteCount    json.RawMessage `json:"quote_count"`
	}
	if err := required(FieldPublicMetrics, "legacy", r.branches.Legacy, &l); err != nil {
		return err
	}
	pm := &PublicMetrics{}
	counts := []struct {
		path string
		raw  json.RawMessage
		dst  *int
	}{
		{"legacy.favorite_count", l.FavoriteCount, &pm.LikeCount},
		{"legacy.retweet_count", l.RetweetCount, &pm.RetweetCount},
		{"legacy.reply_count", l.ReplyCount, &pm.ReplyCount},
		{"legacy.quote_count", l.QuoteCount, &pm.QuoteCount},
	}
	for _, c := range counts {
		if err := required(FieldPublicMetrics, c.path, c.raw, c.dst); err != nil {
			return err
		}
	}

	var views struct {
		Count *flexNumber `json:"count"`
	}
	if _, err := decodeBranch(r.branches.Views, &views); err != nil {
		return &fieldError{Field: FieldPublicMetrics, Detail: "views.count is malformed"}
	}
	if views.Count != nil {
		n, err := views.Count.Int64()
		if err != nil {
			return &fieldError{Field: FieldPublicMetrics, Detail: "views.count is not an integer", Value: string(*views.Count)}
		}
		impressions := int(n)
		pm.ImpressionCount = &impressions
	}
	t.PublicMetrics = pm
	return nil
}

// extractReplySettings maps the conversation control policy. An unknown
// or unreadable policy leaves the field unset.
func extractReplySettings(r *tweetResult, t *Tweet) error {
	var l struct {
		ConversationControl *struct {
			Policy *string `json:"policy"`
		} `json:"conversation_control"`
	}
	if _, err := decodeBranch(r.branches.Legacy, &l); err != nil {
		return nil
	}
	if l.ConversationControl == nil || l.ConversationControl.Policy == nil {
		t.ReplySettings = ReplyEveryone
		return nil
	}
	policy := *l.ConversationControl.Policy
	switch policy {
	case "Community":
		t.ReplySettings = ReplyFollowers
	case "ByInvitation":
		t.ReplySettings = ReplyMentionedUsers
	}
	return nil
}
