package model

import "strings"

// ResponseSample is a network response body captured while crawling.
type ResponseSample struct {
	// URL is the request URL of the response.
	URL string

	// Body is the raw response body.
	Body []byte

	// ContentType is the Content-Type header, lower-cased. May be empty.
	ContentType string
}

// IsJSON reports whether the sample should be parsed as JSON.
func (s ResponseSample) IsJSON() bool {
	return strings.Contains(strings.ToLower(s.ContentType), "json") ||
		strings.HasSuffix(strings.ToLower(s.URL), ".json")
}

// AttributeBag holds the attributes of one interactive DOM element as
// harvested by the browsing layer. Keys are attribute names ("href",
// "onclick", "data-dai", ...) plus the pseudo attribute "text" for the
// element's visible text.
type AttributeBag map[string]string

// Get returns the value of an attribute, or "" when absent.
func (b AttributeBag) Get(key string) string {
	if b == nil {
		return ""
	}
	return b[key]
}

// Href returns the trimmed href attribute.
func (b AttributeBag) Href() string {
	return strings.TrimSpace(b.Get("href"))
}

// Card is one machine-model item on a listing page.
type Card struct {
	// Index is the position of the card in listing order.
	Index int `json:"index"`

	// Href is the card link, if the card is an anchor.
	Href string `json:"href,omitempty"`

	// Title is the visible card text.
	Title string `json:"title,omitempty"`
}
