package tweets

import "strings"

// Field is an optional tweet field a caller can request via tweet.fields.
type Field string

const (
	FieldAttachments       Field = "attachments"
	FieldAuthorID          Field = "author_id"
	FieldConversationID    Field = "conversation_id"
	FieldCreatedAt         Field = "created_at"
	FieldEditControls      Field = "edit_controls"
	FieldEntities          Field = "entities"
	FieldInReplyToUserID   Field = "in_reply_to_user_id"
	FieldLang              Field = "lang"
	FieldPublicMetrics     Field = "public_metrics"
	FieldPossiblySensitive Field = "possibly_sensitive"
	FieldReferencedTweets  Field = "referenced_tweets"
	FieldReplySettings     Field = "reply_settings"
	FieldSource            Field = "source"
)

// AllFields lists every supported field in the order extractors run.
var AllFields = []Field{
	FieldAttachments,
	FieldAuthorID,
	FieldConversationID,
	FieldCreatedAt,
	FieldEditControls,
	FieldEntities,
	FieldInReplyToUserID,
	FieldLang,
	FieldPublicMetrics,
	FieldPossiblySensitive,
	FieldReferencedTweets,
	FieldReplySettings,
	FieldSource,
}

// Known reports whether f names a supported field.
func (f Field) Known() bool {
	_, ok := extractors[f]
	return ok
}

// FieldSet is a set of requested fields. The zero value requests nothing.
type FieldSet map[Field]struct{}

// NewFieldSet builds a set from fields, dropping unknown ones.
func NewFieldSet(fields ...Field) FieldSet {
	fs := make(FieldSet, len(fields))
	for _, f := range fields {
		if f.Known() {
			fs[f] = struct{}{}
		}
	}
	return fs
}

// ParseFieldSet parses one or more comma-separated field lists, e.g. the
// repeated values of a tweet.fields query parameter. Unknown names are ignored.
func ParseFieldSet(lists ...string) FieldSet {
	fs := make(FieldSet)
	for _, list := range lists {
		for _, name := range strings.Split(list, ",") {
			f := Field(strings.TrimSpace(name))
			if f.Known() {
				fs[f] = struct{}{}
			}
		}
	}
	return fs
}

// Has reports whether f was requested.
func (fs FieldSet) Has(f Field) bool {
	_, ok := fs[f]
	return ok
}

// Fields returns the requested fields in AllFields order.
func (fs FieldSet) Fields() []Field {
	out := make([]Field, 0, len(fs))
	for _, f := range AllFields {
		if fs.Has(f) {
			out = append(out, f)
		}
	}
	return out
}
