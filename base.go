package tweets

// extractBase fills the mandatory id, text and edit history from r.
// All three are read before t is touched, so t is either fully set or unchanged.
func extractBase(id string, r *tweetResult, t *Tweet) *Error {
	var (
		restID   *string
		text     *string
		editIDs  []string
		data     = map[string]any{"id": id}
		complete = true
	)
	if r != nil {
		restID = r.RestID
		text = fullText(r)
		editIDs = r.EditTweetIDs
	}
	if restID == nil {
		complete = false
	} else {
		data["rest_id"] = *restID
	}
	if text == nil {
		complete = false
	} else {
		data["full_text"] = *text
	}
	if editIDs == nil {
		complete = false
	} else {
		data["edit_tweet_ids"] = editIDs
	}
	if !complete {
		return NewError(ReasonServerError, "Error retrieving base fields from tweet object.", data)
	}

	t.ID = *restID
	t.Text = *text
	t.EditHistoryTweetIDs = append([]string(nil), editIDs...)
	return nil
}

// fullText prefers the untruncated note text of long posts.
func fullText(r *tweetResult) *string {
	if r.NoteText != nil {
		return r.NoteText
	}
	return r.FullText
}
