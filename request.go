package tweets

import (
	"encoding/json"
	"strings"
)

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// hasResponseData returns true if the JSON body contains a non-null "data" field.
func hasResponseData(body []byte) bool {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	return len(probe.Data) > 0 && string(probe.Data) != "null"
}

// addGraphQLParams builds the full URL with variables, features, and optional fieldToggles.
func addGraphQLParams(url string, variables, features map[string]any, fieldToggles ...map[string]any) string {
	v, _ := json.Marshal(variables)
	f, _ := json.Marshal(features)
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(url)
	b.WriteString(sep)
	b.WriteString("variables=")
	b.WriteString(jsonEscape(v))
	b.WriteString("&features=")
	b.WriteString(jsonEscape(f))
	if len(fieldToggles) > 0 && fieldToggles[0] != nil {
		ft, _ := json.Marshal(fieldToggles[0])
		b.WriteString("&fieldToggles=")
		b.WriteString(jsonEscape(ft))
	}
	return b.String()
}

// queryEscapes are the characters the web app percent-encodes in GraphQL
// query parameters. Everything else is sent verbatim.
var queryEscapes = strings.NewReplacer(
	" ", "%20",
	`"`, "%22",
	"{", "%7B",
	"}", "%7D",
	"[", "%5B",
	"]", "%5D",
	":", "%3A",
	",", "%2C",
	"'", "%27",
	"|", "%7C",
)

func jsonEscape(b []byte) string {
	return queryEscapes.Replace(string(b))
}
