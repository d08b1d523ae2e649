package tweets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, f Field, js string) (*Tweet, error) {
	t.Helper()
	tw := &Tweet{}
	err := extractors[f](decodeResult(t, js), tw)
	return tw, err
}

func TestExtractorsFullTweet(t *testing.T) {
	r := decodeResult(t, devPlatformTweet)
	tw := &Tweet{}
	for _, f := range AllFields {
		require.NoError(t, extractors[f](r, tw), f)
	}

	require.Equal(t, "2244994945", tw.AuthorID)
	require.Equal(t, devPlatformID, tw.ConversationID)
	require.Equal(t, "2021-11-15T19:08:05.000Z", tw.CreatedAt.String())
	require.Equal(t, "en", tw.Lang)
	require.NotNil(t, tw.PossiblySensitive)
	require.False(t, *tw.PossiblySensitive)
	require.Equal(t, "Twitter Web App", tw.Source)
	require.Equal(t, ReplyEveryone, tw.ReplySettings)
	require.Empty(t, tw.InReplyToUserID)
	require.Nil(t, tw.ReferencedTweets)

	require.NotNil(t, tw.EditControls)
	require.Equal(t, "2021-11-15T19:38:05.069Z", tw.EditControls.EditableUntil.String())
	require.True(t, tw.EditControls.IsEditEligible)
	require.Equal(t, 5, tw.EditControls.EditsRemaining)

	require.Equal(t, &Attachments{MediaKeys: []string{"3_1460323731"}}, tw.Attachments)

	require.Equal(t, []Hashtag{{Start: 58, End: 69, Tag: "TwitterAPI"}}, tw.Entities.Hashtags)
	require.Equal(t, []Mention{{Start: 94, End: 94, Username: "TwitterDev"}}, tw.Entities.Mentions)
	require.Equal(t, []URL{{Start: 70, End: 93, URL: "https://t.co/abc", ExpandedURL: "https://developer.twitter.com", DisplayURL: "developer.twitter.com"}}, tw.Entities.URLs)

	impressions := 1234
	require.Equal(t, &PublicMetrics{LikeCount: 10, RetweetCount: 2, ReplyCount: 3, QuoteCount: 1, ImpressionCount: &impressions}, tw.PublicMetrics)
}

func TestExtractReferencedTweets(t *testing.T) {
	tests := []struct {
		name string
		js   string
		want []ReferencedTweet
	}{
		{
			"quoted and retweeted",
			`{"quoted_status_result":{"result":{"rest_id":"Q1"}},"legacy":{"retweeted_status_result":{"result":{"rest_id":"R1"}}}}`,
			[]ReferencedTweet{{Type: ReferenceQuoted, ID: "Q1"}, {Type: ReferenceRetweeted, ID: "R1"}},
		},
		{
			"all three in fixed order",
			`{"quoted_status_result":{"result":{"rest_id":"Q1"}},"legacy":{"retweeted_status_result":{"result":{"rest_id":"R1"}},"in_reply_to_status_id_str":"P1"}}`,
			[]ReferencedTweet{{Type: ReferenceQuoted, ID: "Q1"}, {Type: ReferenceRepliedTo, ID: "P1"}, {Type: ReferenceRetweeted, ID: "R1"}},
		},
		{
			"quoted result without id",
			`{"quoted_status_result":{"result":{"__typename":"TweetTombstone"}},"legacy":{}}`,
			nil,
		},
		{"none", `{"legacy":{}}`, nil},
		{"no legacy", `{}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw, err := extract(t, FieldReferencedTweets, tt.js)
			require.NoError(t, err)
			require.Equal(t, tt.want, tw.ReferencedTweets)
		})
	}
}

func TestExtractReplySettings(t *testing.T) {
	tests := []struct {
		js   string
		want ReplySettings
	}{
		{`{"legacy":{}}`, ReplyEveryone},
		{`{}`, ReplyEveryone},
		{`{"legacy":{"conversation_control":{"policy":"Community"}}}`, ReplyFollowers},
		{`{"legacy":{"conversation_control":{"policy":"ByInvitation"}}}`, ReplyMentionedUsers},
		{`{"legacy":{"conversation_control":{"policy":"Subscribers"}}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.js, func(t *testing.T) {
			tw, err := extract(t, FieldReplySettings, tt.js)
			require.NoError(t, err)
			require.Equal(t, tt.want, tw.ReplySettings)
		})
	}
}

func TestExtractOmittedWhenAbsent(t *testing.T) {
	for _, f := range []Field{FieldAuthorID, FieldConversationID, FieldInReplyToUserID, FieldAttachments, FieldEntities} {
		t.Run(string(f), func(t *testing.T) {
			tw, err := extract(t, f, `{"legacy":{"entities":{"hashtags":[],"user_mentions":[],"urls":[]}}}`)
			require.NoError(t, err)
			require.Equal(t, &Tweet{}, tw)
		})
	}
}

func TestExtractRequiredFieldsFail(t *testing.T) {
	for _, f := range []Field{FieldLang, FieldPossiblySensitive, FieldSource, FieldCreatedAt, FieldEditControls, FieldPublicMetrics} {
		t.Run(string(f), func(t *testing.T) {
			tw, err := extract(t, f, `{"legacy":{}}`)
			require.Error(t, err)
			var fe *fieldError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, f, fe.Field)
			require.Equal(t, &Tweet{}, tw, "a failing extractor must not write")
		})
	}
}

func TestExtractEditControls(t *testing.T) {
	t.Run("numeric values", func(t *testing.T) {
		tw, err := extract(t, FieldEditControls, `{"edit_control":{"edit_tweet_ids":["1"],"editable_until_msecs":1637005085069,"is_edit_eligible":false,"edits_remaining":0}}`)
		require.NoError(t, err)
		require.False(t, tw.EditControls.IsEditEligible)
		require.Zero(t, tw.EditControls.EditsRemaining)
		require.Equal(t, "2021-11-15T19:38:05.069Z", tw.EditControls.EditableUntil.String())
	})
	t.Run("edited tweet uses initial control", func(t *testing.T) {
		tw, err := extract(t, FieldEditControls, `{"edit_control":{"edit_control_initial":{"edit_tweet_ids":["1","2"],"editable_until_msecs":"1637005085069","is_edit_eligible":true,"edits_remaining":"4"}}}`)
		require.NoError(t, err)
		require.Equal(t, 4, tw.EditControls.EditsRemaining)
	})
	for name, js := range map[string]string{
		"missing eligibility": `{"edit_control":{"editable_until_msecs":"1","edits_remaining":"5"}}`,
		"missing remaining":   `{"edit_control":{"editable_until_msecs":"1","is_edit_eligible":true}}`,
		"bad msecs":           `{"edit_control":{"editable_until_msecs":"soon","is_edit_eligible":true,"edits_remaining":"5"}}`,
		"negative remaining":  `{"edit_control":{"editable_until_msecs":"1","is_edit_eligible":true,"edits_remaining":"-1"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			tw, err := extract(t, FieldEditControls, js)
			require.Error(t, err)
			require.Nil(t, tw.EditControls)
		})
	}
}

func TestExtractCreatedAtInvalid(t *testing.T) {
	_, err := extract(t, FieldCreatedAt, `{"legacy":{"created_at":"yesterday"}}`)
	var fe *fieldError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, "yesterday", fe.Value)
}

func TestExtractAttachmentsPoll(t *testing.T) {
	tw, err := extract(t, FieldAttachments, `{"card":{"rest_id":"card://1460323730000000000","legacy":{"name":"poll2choice_text_only"}},"legacy":{}}`)
	require.NoError(t, err)
	require.Equal(t, &Attachments{PollIDs: []string{"1460323730000000000"}}, tw.Attachments)

	tw, err = extract(t, FieldAttachments, `{"card":{"rest_id":"card://1460323730000000000","legacy":{"name":"summary_large_image"}},"legacy":{}}`)
	require.NoError(t, err)
	require.Nil(t, tw.Attachments)
}

func TestExtractEntitiesSkipsMalformed(t *testing.T) {
	tw, err := extract(t, FieldEntities, `{"legacy":{"entities":{
		"hashtags":[{"text":"noindices"},{"indices":"0,4","text":"stringindices"},{"indices":[0,4],"text":"ok"}],
		"user_mentions":[{"indices":[5],"screen_name":"short"},{"indices":[],"screen_name":"none"},7],
		"urls":{"not":"a list"}
	}}}`)
	require.NoError(t, err)
	require.Equal(t, &Entities{
		Hashtags: []Hashtag{{Start: 0, End: 4, Tag: "ok"}},
		Mentions: []Mention{{Start: 5, End: 5, Username: "short"}},
	}, tw.Entities)
}

func TestExtractMalformedBranch(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		js    string
		fails bool
	}{
		{"author core not an object", FieldAuthorID, `{"core":"x"}`, false},
		{"author rest_id number", FieldAuthorID, `{"core":{"user_results":{"result":{"rest_id":7}}}}`, false},
		{"conversation id number", FieldConversationID, `{"legacy":{"conversation_id_str":7}}`, false},
		{"reply user id object", FieldInReplyToUserID, `{"legacy":{"in_reply_to_user_id_str":{}}}`, false},
		{"card name number", FieldAttachments, `{"card":{"rest_id":"card://1","legacy":{"name":5}}}`, false},
		{"media list object", FieldAttachments, `{"legacy":{"extended_entities":{"media":{}}}}`, false},
		{"entities string", FieldEntities, `{"legacy":{"entities":"none"}}`, false},
		{"quoted result list", FieldReferencedTweets, `{"quoted_status_result":[]}`, false},
		{"policy number", FieldReplySettings, `{"legacy":{"conversation_control":{"policy":3}}}`, false},
		{"lang number", FieldLang, `{"legacy":{"lang":3}}`, true},
		{"sensitive string", FieldPossiblySensitive, `{"legacy":{"possibly_sensitive":"no"}}`, true},
		{"source number", FieldSource, `{"source":1}`, true},
		{"created_at number", FieldCreatedAt, `{"legacy":{"created_at":1637005085}}`, true},
		{"edit eligibility string", FieldEditControls, `{"edit_control":{"edit_tweet_ids":["1"],"editable_until_msecs":"1","is_edit_eligible":"yes","edits_remaining":"1"}}`, true},
		{"favorite count string", FieldPublicMetrics, `{"legacy":{"favorite_count":"1","retweet_count":0,"reply_count":0,"quote_count":0}}`, true},
		{"views count object", FieldPublicMetrics, `{"views":{"count":{}},"legacy":{"favorite_count":1,"retweet_count":0,"reply_count":0,"quote_count":0}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw, err := extract(t, tt.field, tt.js)
			if !tt.fails {
				require.NoError(t, err)
				require.Equal(t, &Tweet{}, tw)
				return
			}
			var fe *fieldError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tt.field, fe.Field)
			require.Contains(t, fe.Detail, "malformed")
			require.Equal(t, &Tweet{}, tw)
		})
	}
}

func TestExtractReferencedTweetsPartlyMalformed(t *testing.T) {
	tw, err := extract(t, FieldReferencedTweets, `{"quoted_status_result":"gone","legacy":{"in_reply_to_status_id_str":9,"retweeted_status_result":{"result":{"rest_id":"R1"}}}}`)
	require.NoError(t, err)
	require.Equal(t, []ReferencedTweet{{Type: ReferenceRetweeted, ID: "R1"}}, tw.ReferencedTweets)
}

func TestExtractPublicMetrics(t *testing.T) {
	tw, err := extract(t, FieldPublicMetrics, `{"legacy":{"favorite_count":1,"retweet_count":0,"reply_count":0,"quote_count":0}}`)
	require.NoError(t, err)
	require.Nil(t, tw.PublicMetrics.ImpressionCount, "views are optional")

	_, err = extract(t, FieldPublicMetrics, `{"views":{"count":"lots"},"legacy":{"favorite_count":1,"retweet_count":0,"reply_count":0,"quote_count":0}}`)
	require.Error(t, err)

	_, err = extract(t, FieldPublicMetrics, `{"legacy":{"favorite_count":1,"retweet_count":0,"reply_count":0}}`)
	require.ErrorContains(t, err, "quote_count")
}

func TestExtractSource(t *testing.T) {
	tw, err := extract(t, FieldSource, `{"source":"Twitter for iPhone"}`)
	require.NoError(t, err)
	require.Equal(t, "Twitter for iPhone", tw.Source)
}

func TestExtractorsIdempotent(t *testing.T) {
	r := decodeResult(t, devPlatformTweet)
	first, second := &Tweet{}, &Tweet{}
	for _, f := range AllFields {
		require.NoError(t, extractors[f](r, first))
		require.NoError(t, extractors[f](r, second))
		require.NoError(t, extractors[f](r, second))
	}
	require.Equal(t, first, second)
}
