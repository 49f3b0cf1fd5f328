package notion

import (
	"encoding/json"
	"strings"
)

// RichText is one span of formatted text.
type RichText struct {
	Type        string          `json:"type"`
	PlainText   string          `json:"plain_text"`
	Href        string          `json:"href,omitempty"`
	Text        *Text           `json:"text,omitempty"`
	Mention     *Mention        `json:"mention,omitempty"`
	Equation    *Equation       `json:"equation,omitempty"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

// Text is the content of a "text" span.
type Text struct {
	Content string `json:"content"`
	Link    *struct {
		URL string `json:"url"`
	} `json:"link,omitempty"`
}

// Equation is the content of an "equation" span or block.
type Equation struct {
	Expression string `json:"expression"`
}

// Mention is an inline reference inside a span.
type Mention struct {
	Type     string          `json:"type"`
	Page     *ObjectRef      `json:"page,omitempty"`
	Database *ObjectRef      `json:"database,omitempty"`
	User     *User           `json:"user,omitempty"`
	Date     json.RawMessage `json:"date,omitempty"`
}

// ObjectRef points at another object by id.
type ObjectRef struct {
	ID string `json:"id"`
}

// PageMention returns the mentioned page id, if the span is a page mention.
func (r RichText) PageMention() (string, bool) {
	if r.Mention == nil || r.Mention.Page == nil || r.Mention.Page.ID == "" {
		return "", false
	}
	return r.Mention.Page.ID, true
}

// DatabaseMention returns the mentioned database id, if the span is a database mention.
func (r RichText) DatabaseMention() (string, bool) {
	if r.Mention == nil || r.Mention.Database == nil || r.Mention.Database.ID == "" {
		return "", false
	}
	return r.Mention.Database.ID, true
}

// PlainText concatenates the plain text of spans.
func PlainText(spans []RichText) string {
	var b strings.Builder
	for _, span := range spans {
		if span.PlainText != "" {
			b.WriteString(span.PlainText)
			continue
		}
		if span.Text != nil {
			b.WriteString(span.Text.Content)
		}
	}
	return b.String()
}
