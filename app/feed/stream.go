package feed

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"
	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

const sniffSize = 4096

// ParseError reports a malformed document. Items delivered before it remain
// valid; no further items follow.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Stream yields Items lazily while the body is still arriving. XML formats are
// tokenized incrementally and fed through a Machine; JSON feeds are decoded
// whole by gofeed since they have no item-level streaming boundary.
type Stream struct {
	format  Format
	pending []Item
	err     error

	parser  *xpp.XMLPullParser
	machine *Machine
	names   []string
}

func NewStream(r io.Reader) (*Stream, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	prefix, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	s := &Stream{format: detectFormat(prefix)}

	if s.format == FormatJSON {
		s.decodeJSON(br)
		return s, nil
	}

	vocab := RSS
	if s.format == FormatAtom {
		vocab = Atom
	}

	s.parser = xpp.NewXMLPullParser(br, false, charset.NewReaderLabel)
	s.machine = NewMachine(vocab, func(item Item) {
		s.pending = append(s.pending, item)
	})

	return s, nil
}

func (s *Stream) Format() Format {
	return s.format
}

// Next returns the next completed Item in document order. It returns io.EOF
// once the document ends and a *ParseError if the document is malformed.
func (s *Stream) Next() (Item, error) {
	for len(s.pending) == 0 {
		if s.err != nil {
			return Item{}, s.err
		}
		s.step()
	}

	item := s.pending[0]
	s.pending = s.pending[1:]
	return item, nil
}

func (s *Stream) step() {
	event, err := s.parser.Next()
	if err != nil {
		var syntaxErr *xml.SyntaxError
		if errors.As(err, &syntaxErr) {
			s.err = &ParseError{Err: err}
		} else {
			s.err = fmt.Errorf("failed to read feed: %w", err)
		}
		return
	}

	switch event {
	case xpp.StartTag:
		name := s.qualifiedName()
		s.names = append(s.names, name)
		s.machine.Open(name, s.parser.Attrs)
	case xpp.EndTag:
		// Close with the name the element was opened under so the machine
		// sees balanced events even for prefixed elements.
		name := s.parser.Name
		if n := len(s.names); n > 0 {
			name = s.names[n-1]
			s.names = s.names[:n-1]
		}
		s.machine.Close(name)
	case xpp.Text:
		s.machine.Text(s.parser.Text)
	case xpp.EndDocument:
		s.err = io.EOF
	}
}

func (s *Stream) qualifiedName() string {
	if s.parser.Space == "" {
		return s.parser.Name
	}

	prefix, ok := s.parser.Spaces[s.parser.Space]
	if !ok {
		prefix = s.parser.Space
	}
	if prefix == "" {
		return s.parser.Name
	}

	return prefix + ":" + s.parser.Name
}

func (s *Stream) decodeJSON(r io.Reader) {
	parsed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		s.err = &ParseError{Err: err}
		return
	}

	s.pending = make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		item := Item{Title: it.Title, Link: it.Link}

		switch {
		case it.PublishedParsed != nil:
			item.PubDate = time.Unix(it.PublishedParsed.Unix(), 0).UTC()
		case it.UpdatedParsed != nil:
			item.PubDate = time.Unix(it.UpdatedParsed.Unix(), 0).UTC()
		}

		s.pending = append(s.pending, item)
	}
	s.err = io.EOF

	slog.Debug("JSON feed decoded", "items", len(parsed.Items))
}

func detectFormat(prefix []byte) Format {
	trimmed := bytes.TrimLeft(prefix, " \t\r\n\uFEFF")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}

	if gofeed.DetectFeedType(bytes.NewReader(prefix)) == gofeed.FeedTypeAtom {
		return FormatAtom
	}

	return FormatRSS
}
