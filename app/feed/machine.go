package feed

import (
	"encoding/xml"
	"strings"
)

// Machine reduces open/text/close events into completed Items. It holds no
// I/O and never blocks; one Machine serves exactly one response body.
type Machine struct {
	vocab Vocabulary
	emit  func(Item)

	depth     int
	itemDepth int // depth the current item opened at, 0 outside items

	active *strings.Builder
	title  strings.Builder
	link   strings.Builder
	href   string
	dates  []strings.Builder
}

var _ Handler = (*Machine)(nil)

func NewMachine(vocab Vocabulary, emit func(Item)) *Machine {
	return &Machine{
		vocab: vocab,
		emit:  emit,
		dates: make([]strings.Builder, len(vocab.Dates)),
	}
}

func (m *Machine) Depth() int {
	return m.depth
}

func (m *Machine) InItem() bool {
	return m.itemDepth > 0
}

func (m *Machine) Open(name string, attrs []xml.Attr) {
	m.depth++

	if !m.InItem() {
		if name == m.vocab.Item {
			m.itemDepth = m.depth
			m.reset()
		}
		return
	}

	m.active = nil

	switch {
	case name == m.vocab.Title:
		m.selectField(&m.title)
	case name == m.vocab.Link:
		if m.vocab.LinkHref {
			m.takeHref(attrs)
			return
		}
		m.selectField(&m.link)
	default:
		for i, dateName := range m.vocab.Dates {
			if name == dateName {
				m.selectField(&m.dates[i])
				return
			}
		}
	}
}

func (m *Machine) Text(chunk string) {
	if m.active == nil {
		return
	}
	m.active.WriteString(chunk)
}

func (m *Machine) Close(name string) {
	m.active = nil

	if m.InItem() && m.depth == m.itemDepth && name == m.vocab.Item {
		m.itemDepth = 0
		m.emit(m.freeze())
	}

	if m.depth > 0 {
		m.depth--
	}
}

func (m *Machine) selectField(b *strings.Builder) {
	b.Reset()
	m.active = b
}

// takeHref keeps the first alternate link of an Atom entry.
func (m *Machine) takeHref(attrs []xml.Attr) {
	if m.href != "" {
		return
	}

	var href, rel string
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "href":
			href = attr.Value
		case "rel":
			rel = attr.Value
		}
	}

	if rel == "" || rel == "alternate" {
		m.href = href
	}
}

func (m *Machine) reset() {
	m.active = nil
	m.title.Reset()
	m.link.Reset()
	m.href = ""
	for i := range m.dates {
		m.dates[i].Reset()
	}
}

func (m *Machine) freeze() Item {
	item := Item{
		Title: m.title.String(),
		Link:  m.link.String(),
	}
	if m.vocab.LinkHref {
		item.Link = m.href
	}

	for i := range m.dates {
		if raw := strings.TrimSpace(m.dates[i].String()); raw != "" {
			item.PubDate = ParseDate(raw)
			break
		}
	}

	return item
}
