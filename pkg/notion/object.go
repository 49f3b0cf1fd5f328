package notion

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
)

// FileObject is a hosted or external file reference.
type FileObject struct {
	Type     string        `json:"type"`
	Name     string        `json:"name,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
	External *ExternalFile `json:"external,omitempty"`
}

// HostedFile is a file stored by the service behind a signed URL.
type HostedFile struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// ExternalFile is a link to a file hosted elsewhere.
type ExternalFile struct {
	URL string `json:"url"`
}

// IsHosted reports whether the file is stored by the service and must be downloaded.
func (f FileObject) IsHosted() bool {
	return f.Type == "file" && f.File != nil && f.File.URL != ""
}

// URL returns the hosted URL, falling back to the external one.
func (f FileObject) URL() string {
	if f.File != nil && f.File.URL != "" {
		return f.File.URL
	}
	if f.External != nil {
		return f.External.URL
	}
	return ""
}

// FilenameFromURL returns the decoded last path segment of rawURL.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

// Property types understood by the engine and the renderer.
var KnownPropertyTypes = map[string]bool{
	"title":            true,
	"rich_text":        true,
	"number":           true,
	"select":           true,
	"multi_select":     true,
	"date":             true,
	"files":            true,
	"checkbox":         true,
	"url":              true,
	"email":            true,
	"phone_number":     true,
	"created_time":     true,
	"last_edited_time": true,
	"formula":          true,
	"relation":         true,
	"rollup":           true,
	"status":           true,
	"people":           true,
	"created_by":       true,
	"last_edited_by":   true,
	"unique_id":        true,
}

// Property is one page property value.
type Property struct {
	ID    string          `json:"id"`
	Type  string          `json:"type"`
	Title []RichText      `json:"title,omitempty"`
	Files []FileObject    `json:"files,omitempty"`
	Raw   json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw value alongside the decoded fields.
func (p *Property) UnmarshalJSON(data []byte) error {
	type plain Property
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode property: %w", err)
	}
	*p = Property(v)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the property as received.
func (p Property) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain Property
	return json.Marshal(plain(p))
}

// PageObject is a page as returned by the page endpoint or a database query.
type PageObject struct {
	Object     string              `json:"object"`
	ID         string              `json:"id"`
	Parent     Parent              `json:"parent"`
	Archived   bool                `json:"archived"`
	URL        string              `json:"url"`
	Properties map[string]Property `json:"properties"`
}

// Title returns the plain text of the page's title property.
func (p PageObject) Title() string {
	for _, prop := range p.Properties {
		if prop.Type == "title" {
			return PlainText(prop.Title)
		}
	}
	return ""
}

// DatabaseObject is a database (collection) schema.
type DatabaseObject struct {
	Object     string                     `json:"object"`
	ID         string                     `json:"id"`
	Title      []RichText                 `json:"title"`
	Parent     Parent                     `json:"parent"`
	Properties map[string]json.RawMessage `json:"properties"`
	Raw        json.RawMessage            `json:"-"`
}

// User is a workspace member or bot.
type User struct {
	Object    string `json:"object"`
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Person    *struct {
		Email string `json:"email"`
	} `json:"person,omitempty"`
}

// List is a cursor-paginated result envelope.
type List[T any] struct {
	Object     string  `json:"object"`
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// UnmarshalJSON keeps the raw schema record for the renderer.
func (d *DatabaseObject) UnmarshalJSON(data []byte) error {
	type plain DatabaseObject
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode database: %w", err)
	}
	*d = DatabaseObject(v)
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// TitleText returns the database title as plain text.
func (d DatabaseObject) TitleText() string {
	return PlainText(d.Title)
}
