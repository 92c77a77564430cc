package notify

import (
	"html"
	"strings"
)

// HTMLBody renders the item as an anchor, followed by the excerpt when present.
func HTMLBody(n Notification) string {
	title := n.Title
	if title == "" {
		title = n.Link
	}

	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(n.Link))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(title))
	b.WriteString("</a>")

	if n.Excerpt != "" {
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(n.Excerpt))
	}

	return b.String()
}

// TextBody renders the item as plain text with the link on its own line.
func TextBody(n Notification) string {
	parts := make([]string, 0, 3)
	if n.Title != "" {
		parts = append(parts, n.Title)
	}
	if n.Link != "" {
		parts = append(parts, n.Link)
	}
	if n.Excerpt != "" {
		parts = append(parts, n.Excerpt)
	}
	return strings.Join(parts, "\n")
}
