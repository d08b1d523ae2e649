package tweets

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// detailBody wraps entries in a TweetDetail response.
func detailBody(entries ...string) []byte {
	return []byte(`{"data":{"threaded_conversation_with_injections_v2":{"instructions":[` +
		`{"type":"TimelineClearCache"},` +
		`{"type":"TimelineAddEntries","entries":[` + strings.Join(entries, ",") + `]},` +
		`{"type":"TimelineTerminateTimeline","direction":"Top"}]}}}`)
}

func tweetEntry(entryID, result string) string {
	return `{"entryId":"` + entryID + `","sortIndex":"7762958299819098109","content":{"entryType":"TimelineTimelineItem","__typename":"TimelineTimelineItem","itemContent":{"itemType":"TimelineTweet","__typename":"TimelineTweet","tweet_results":{"result":` + result + `}}}}`
}

func decodeResult(t *testing.T, js string) *tweetResult {
	t.Helper()
	var r tweetResult
	require.NoError(t, json.Unmarshal([]byte(js), &r), "decode fixture")
	return &r
}

const devPlatformID = "1460323737035677698"

// devPlatformTweet carries every field the extractors read.
const devPlatformTweet = `{
	"__typename": "Tweet",
	"rest_id": "1460323737035677698",
	"source": "<a href=\"https://mobile.twitter.com\" rel=\"nofollow\">Twitter Web App</a>",
	"core": {"user_results": {"result": {"__typename": "User", "rest_id": "2244994945"}}},
	"edit_control": {
		"edit_tweet_ids": ["1460323737035677698"],
		"editable_until_msecs": "1637005085069",
		"is_edit_eligible": true,
		"edits_remaining": "5"
	},
	"views": {"count": "1234", "state": "EnabledWithCount"},
	"legacy": {
		"full_text": "Introducing a new era for the Twitter Developer Platform! #TwitterAPI https://t.co/abc @TwitterDev",
		"created_at": "Mon Nov 15 19:08:05 +0000 2021",
		"conversation_id_str": "1460323737035677698",
		"lang": "en",
		"possibly_sensitive": false,
		"favorite_count": 10,
		"retweet_count": 2,
		"reply_count": 3,
		"quote_count": 1,
		"entities": {
			"hashtags": [{"indices": [58, 69], "text": "TwitterAPI"}],
			"user_mentions": [{"indices": [94, 105], "screen_name": "TwitterDev", "id_str": "2244994945"}],
			"urls": [{"indices": [70, 93], "url": "https://t.co/abc", "expanded_url": "https://developer.twitter.com", "display_url": "developer.twitter.com"}],
			"symbols": []
		},
		"extended_entities": {"media": [{"media_key": "3_1460323731", "type": "photo"}]}
	}
}`

// minimalTweet has only the base fields.
func minimalTweet(id, text string) string {
	return `{"__typename":"Tweet","rest_id":"` + id + `","edit_control":{"edit_tweet_ids":["` + id + `"]},"legacy":{"full_text":"` + text + `"}}`
}
