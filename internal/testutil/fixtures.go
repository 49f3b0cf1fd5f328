package testutil

// Fixture builders produce records shaped like the API's JSON.

// Page builds a page whose parent is the workspace.
func Page(id, title string) map[string]any {
	return PageWithProperties(id, map[string]any{
		"Name": TitleProperty(title),
	})
}

// PageWithProperties builds a page with explicit properties.
func PageWithProperties(id string, props map[string]any) map[string]any {
	return map[string]any{
		"object":     "page",
		"id":         id,
		"parent":     map[string]any{"type": "workspace", "workspace": true},
		"archived":   false,
		"properties": props,
	}
}

// Item builds a database item page.
func Item(dbID, id, title string) map[string]any {
	page := Page(id, title)
	page["parent"] = map[string]any{"type": "database_id", "database_id": dbID}
	return page
}

// Database builds a database schema with a single title column.
func Database(id, title string) map[string]any {
	return map[string]any{
		"object": "database",
		"id":     id,
		"title":  []any{Text(title)},
		"parent": map[string]any{"type": "workspace", "workspace": true},
		"properties": map[string]any{
			"Name": map[string]any{"id": "title", "type": "title", "title": map[string]any{}},
		},
	}
}

// TitleProperty builds a title property value.
func TitleProperty(title string) map[string]any {
	return map[string]any{"id": "title", "type": "title", "title": []any{Text(title)}}
}

// FilesProperty builds a files property with hosted files.
func FilesProperty(urls ...string) map[string]any {
	files := make([]any, 0, len(urls))
	for _, u := range urls {
		files = append(files, map[string]any{
			"name": u,
			"type": "file",
			"file": map[string]any{"url": u},
		})
	}
	return map[string]any{"id": "files", "type": "files", "files": files}
}

// Property builds a property of an arbitrary type.
func Property(propType string, value any) map[string]any {
	return map[string]any{"id": propType, "type": propType, propType: value}
}

// User builds a person record.
func User(id, name string) map[string]any {
	return map[string]any{"object": "user", "id": id, "type": "person", "name": name}
}

// Text builds a plain text span.
func Text(s string) map[string]any {
	return map[string]any{
		"type":       "text",
		"plain_text": s,
		"text":       map[string]any{"content": s},
	}
}

// PageMention builds a span mentioning a page.
func PageMention(id string) map[string]any {
	return map[string]any{
		"type":       "mention",
		"plain_text": "Untitled",
		"mention":    map[string]any{"type": "page", "page": map[string]any{"id": id}},
	}
}

// DatabaseMention builds a span mentioning a database.
func DatabaseMention(id string) map[string]any {
	return map[string]any{
		"type":       "mention",
		"plain_text": "Untitled",
		"mention":    map[string]any{"type": "database", "database": map[string]any{"id": id}},
	}
}

// Block builds a block of any type with the given payload.
func Block(id, blockType string, payload any, hasChildren bool) map[string]any {
	return map[string]any{
		"object":       "block",
		"id":           id,
		"type":         blockType,
		"has_children": hasChildren,
		blockType:      payload,
	}
}

// Paragraph builds a paragraph from spans.
func Paragraph(id string, spans ...map[string]any) map[string]any {
	return Block(id, "paragraph", map[string]any{"rich_text": spans}, false)
}

// Toggle builds a toggle whose children are fetched separately.
func Toggle(id, text string) map[string]any {
	return Block(id, "toggle", map[string]any{"rich_text": []any{Text(text)}}, true)
}

// ChildPage builds a nested page block; id is the page id.
func ChildPage(id, title string) map[string]any {
	return Block(id, "child_page", map[string]any{"title": title}, true)
}

// ChildDatabase builds an embedded database block; id is the database id.
func ChildDatabase(id, title string) map[string]any {
	return Block(id, "child_database", map[string]any{"title": title}, false)
}

// Table builds a table block whose rows are its children.
func Table(id string, width int) map[string]any {
	return Block(id, "table", map[string]any{"table_width": width}, true)
}

// TableRow builds a row from cells.
func TableRow(id string, cells ...[]map[string]any) map[string]any {
	return Block(id, "table_row", map[string]any{"cells": cells}, false)
}

// HostedFile builds an attachment block (image, pdf, ...) hosted by the service.
func HostedFile(id, blockType, url string) map[string]any {
	return Block(id, blockType, map[string]any{
		"type": "file",
		"file": map[string]any{"url": url},
	}, false)
}

// ExternalFile builds an attachment block pointing elsewhere.
func ExternalFile(id, blockType, url string) map[string]any {
	return Block(id, blockType, map[string]any{
		"type":     "external",
		"external": map[string]any{"url": url},
	}, false)
}
