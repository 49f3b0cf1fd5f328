package notion

import (
	"encoding/json"
	"fmt"
)

// Parent identifies the container of a page, database or block.
type Parent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// ID returns whichever parent id is set.
func (p Parent) ID() string {
	switch {
	case p.PageID != "":
		return p.PageID
	case p.DatabaseID != "":
		return p.DatabaseID
	default:
		return p.BlockID
	}
}

// Block types with special handling.
const (
	TypeChildPage     = "child_page"
	TypeChildDatabase = "child_database"
	TypeTable         = "table"
	TypeTableRow      = "table_row"
	TypeImage         = "image"
	TypeVideo         = "video"
	TypeAudio         = "audio"
	TypeFile          = "file"
	TypePDF           = "pdf"
)

// AttachmentBlockTypes are the block types that may carry a hosted file.
var AttachmentBlockTypes = map[string]bool{
	TypeImage: true,
	TypeVideo: true,
	TypeAudio: true,
	TypeFile:  true,
	TypePDF:   true,
}

var richTextBlockTypes = map[string]bool{
	"paragraph":          true,
	"heading_1":          true,
	"heading_2":          true,
	"heading_3":          true,
	"bulleted_list_item": true,
	"numbered_list_item": true,
	"quote":              true,
	"callout":            true,
	"toggle":             true,
	"to_do":              true,
	"code":               true,
	"template":           true,
}

var linkBlockTypes = map[string]bool{
	"bookmark":     true,
	"embed":        true,
	"link_preview": true,
}

var emptyBlockTypes = map[string]bool{
	"divider":           true,
	"table_of_contents": true,
	"breadcrumb":        true,
	"column_list":       true,
	"column":            true,
	"synced_block":      true,
	"link_to_page":      true,
}

// Payload is the type-specific content of a block. It is a closed set: every
// decoded block carries exactly one of the types below.
type Payload interface {
	isPayload()
}

// RichTextPayload covers paragraph-like blocks.
type RichTextPayload struct {
	RichText []RichText `json:"rich_text"`
	Caption  []RichText `json:"caption,omitempty"`
	Language string     `json:"language,omitempty"`
	Checked  *bool      `json:"checked,omitempty"`
}

// ChildPagePayload is a nested page; the block id is the page id.
type ChildPagePayload struct {
	Title string `json:"title"`
}

// ChildDatabasePayload is an embedded database; the block id is the database id.
type ChildDatabasePayload struct {
	Title string `json:"title"`
}

// TablePayload describes a table; its rows are children of the block.
type TablePayload struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

// TableRowPayload holds one row of cells, each a list of spans.
type TableRowPayload struct {
	Cells [][]RichText `json:"cells"`
}

// FilePayload is an image, video, audio, file or pdf block.
type FilePayload struct {
	FileObject
	Caption []RichText `json:"caption,omitempty"`
}

// LinkPayload is a bookmark, embed or link preview.
type LinkPayload struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

// EquationPayload is a block-level equation.
type EquationPayload struct {
	Expression string `json:"expression"`
}

// EmptyPayload is a structural block with nothing the engine needs to read.
type EmptyPayload struct{}

// UnknownPayload carries a block whose type is not recognized or whose payload
// could not be decoded.
type UnknownPayload struct {
	Type string
	Raw  json.RawMessage
	Err  error
}

func (RichTextPayload) isPayload()      {}
func (ChildPagePayload) isPayload()     {}
func (ChildDatabasePayload) isPayload() {}
func (TablePayload) isPayload()         {}
func (TableRowPayload) isPayload()      {}
func (FilePayload) isPayload()          {}
func (LinkPayload) isPayload()          {}
func (EquationPayload) isPayload()      {}
func (EmptyPayload) isPayload()         {}
func (UnknownPayload) isPayload()       {}

// Block is one content unit. Raw keeps the record exactly as received for the
// renderer; Payload is the decoded variant the engine inspects.
type Block struct {
	Object      string          `json:"object"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Parent      Parent          `json:"parent"`
	HasChildren bool            `json:"has_children"`
	Payload     Payload         `json:"-"`
	Raw         json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the common header and the type-keyed payload.
func (b *Block) UnmarshalJSON(data []byte) error {
	type header Block
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("decode block: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode block fields: %w", err)
	}

	*b = Block(h)
	b.Raw = append(json.RawMessage(nil), data...)
	b.Payload = decodePayload(h.Type, fields[h.Type])
	return nil
}

// MarshalJSON re-emits the block as received.
func (b Block) MarshalJSON() ([]byte, error) {
	if len(b.Raw) > 0 {
		return b.Raw, nil
	}
	type header Block
	return json.Marshal(header(b))
}

func decodePayload(blockType string, raw json.RawMessage) Payload {
	var (
		payload Payload
		err     error
	)

	switch {
	case richTextBlockTypes[blockType]:
		var p RichTextPayload
		err = decodeOptional(raw, &p)
		payload = p
	case blockType == TypeChildPage:
		var p ChildPagePayload
		err = decodeOptional(raw, &p)
		payload = p
	case blockType == TypeChildDatabase:
		var p ChildDatabasePayload
		err = decodeOptional(raw, &p)
		payload = p
	case blockType == TypeTable:
		var p TablePayload
		err = decodeOptional(raw, &p)
		payload = p
	case blockType == TypeTableRow:
		var p TableRowPayload
		err = decodeOptional(raw, &p)
		payload = p
	case AttachmentBlockTypes[blockType]:
		var p FilePayload
		err = decodeOptional(raw, &p)
		payload = p
	case linkBlockTypes[blockType]:
		var p LinkPayload
		err = decodeOptional(raw, &p)
		payload = p
	case blockType == "equation":
		var p EquationPayload
		err = decodeOptional(raw, &p)
		payload = p
	case emptyBlockTypes[blockType]:
		payload = EmptyPayload{}
	default:
		return UnknownPayload{Type: blockType, Raw: raw}
	}

	if err != nil {
		return UnknownPayload{Type: blockType, Raw: raw, Err: err}
	}
	return payload
}

func decodeOptional(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Spans returns every rich-text span carried by the block, including table cells
// and captions.
func (b Block) Spans() []RichText {
	switch p := b.Payload.(type) {
	case RichTextPayload:
		spans := make([]RichText, 0, len(p.RichText)+len(p.Caption))
		spans = append(spans, p.RichText...)
		return append(spans, p.Caption...)
	case TableRowPayload:
		var spans []RichText
		for _, cell := range p.Cells {
			spans = append(spans, cell...)
		}
		return spans
	case FilePayload:
		return p.Caption
	case LinkPayload:
		return p.Caption
	default:
		return nil
	}
}
