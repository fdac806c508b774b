package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

const atomNamespace = "http://www.w3.org/2005/Atom"

type Generator struct {
	name   string
	policy *bluemonday.Policy
}

// NewGenerator returns an Atom generator that identifies itself as name in
// the <generator> element.
func NewGenerator(name string) *Generator {
	return &Generator{
		name:   name,
		policy: bluemonday.StrictPolicy(),
	}
}

// Run serializes feed as an Atom 1.0 document. Output depends only on feed
// and the generator name.
func (g *Generator) Run(feed *Feed) ([]byte, error) {
	if feed == nil {
		return nil, fmt.Errorf("feed is nil")
	}
	if feed.ID == "" {
		return nil, fmt.Errorf("feed id is required")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("<feed xmlns=\"%s\">\n", atomNamespace))

	g.writeElement(&buf, "id", feed.ID, 2)
	g.writeElement(&buf, "title", feed.Title, 2)
	g.writeElement(&buf, "updated", formatTime(feed.UpdatedAt), 2)

	buf.WriteString("  <author>\n")
	g.writeElement(&buf, "name", feed.Author.Name, 4)
	g.writeElement(&buf, "uri", feed.Author.URI, 4)
	buf.WriteString("  </author>\n")

	g.writeLink(&buf, feed.SelfLink, "self", "application/atom+xml", 2)
	g.writeLink(&buf, feed.AlternateLink, "alternate", "text/html", 2)
	g.writeElement(&buf, "generator", g.name, 2)

	for _, entry := range feed.Entries {
		g.writeEntry(&buf, entry)
	}

	buf.WriteString("</feed>\n")

	return buf.Bytes(), nil
}

func (g *Generator) writeEntry(buf *bytes.Buffer, entry Entry) {
	buf.WriteString("  <entry>\n")

	g.writeElement(buf, "id", entry.Permalink, 4)
	// Atom requires a title on every entry, even an empty one.
	g.writeText(buf, "title", entry.Title, 4)
	g.writeElement(buf, "updated", formatTime(entry.PublishedAt), 4)

	if entry.Author != "" {
		buf.WriteString("    <author>\n")
		g.writeElement(buf, "name", entry.Author, 6)
		buf.WriteString("    </author>\n")
	}

	g.writeLink(buf, entry.Permalink, "alternate", "text/html", 4)
	g.writeElement(buf, "published", formatTime(entry.PublishedAt), 4)

	buf.WriteString(`    <content type="html">`)
	xml.EscapeText(buf, []byte(g.entryContent(entry)))
	buf.WriteString("</content>\n")

	buf.WriteString("  </entry>\n")
}

// entryContent renders the HTML body of an entry: thumbnail, length and
// description.
func (g *Generator) entryContent(entry Entry) string {
	return fmt.Sprintf("<p><img src=\"%s\"/></p>\n<p>Length: %s</p>\n<p>%s</p>",
		html.EscapeString(entry.ThumbnailURL),
		html.EscapeString(entry.Duration),
		g.policy.Sanitize(entry.Description))
}

func (g *Generator) writeLink(buf *bytes.Buffer, href, rel, mediaType string, indent int) {
	if href == "" {
		return
	}

	g.writeIndent(buf, indent)
	buf.WriteString(fmt.Sprintf("<link href=\"%s\" rel=\"%s\" type=\"%s\"/>\n",
		html.EscapeString(href), rel, mediaType))
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}
	g.writeText(buf, tag, content, indent)
}

func (g *Generator) writeText(buf *bytes.Buffer, tag, content string, indent int) {
	g.writeIndent(buf, indent)

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) writeIndent(buf *bytes.Buffer, indent int) {
	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
