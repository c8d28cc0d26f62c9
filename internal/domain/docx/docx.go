// Package docx reads the text of WordprocessingML (.docx) documents.
//
// Only the main document part is read. Top-level tables and top-level
// paragraphs are kept in document order; headers, footers, footnotes and
// tables nested inside cells are ignored.
package docx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Separator joins the collected text fragments.
const Separator = ". "

const (
	nsMain       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsMainStrict = "http://purl.oclc.org/ooxml/wordprocessingml/main"

	relOfficeDocument       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relOfficeDocumentStrict = "http://purl.oclc.org/ooxml/officeDocument/relationships/officeDocument"
)

// mainContentTypes are the accepted content types of a main document part.
var mainContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml": true,
	"application/vnd.ms-word.document.macroEnabled.main+xml":                           true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template.main+xml": true,
	"application/vnd.ms-word.template.macroEnabledTemplate.main+xml":                   true,
}

// Document is the text structure of a .docx body.
type Document struct {
	Tables     []Table
	Paragraphs []Paragraph
}

// Table is a top-level table; Rows holds cell text row by row.
type Table struct {
	Rows [][]Cell
}

// Cell is a table cell. Its paragraphs' text is joined with newlines.
type Cell struct {
	Paragraphs []Paragraph
}

// Text returns the cell's paragraphs joined with "\n".
func (c Cell) Text() string {
	parts := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// Empty reports whether no paragraph in the cell carries text.
func (c Cell) Empty() bool {
	for _, p := range c.Paragraphs {
		if p.Text() != "" {
			return false
		}
	}
	return true
}

// Paragraph is a paragraph split into its runs' text.
type Paragraph struct {
	Runs []string
}

// Text returns the concatenated run text.
func (p Paragraph) Text() string {
	return strings.Join(p.Runs, "")
}

// Fragments returns non-empty cell text (tables in order, row-major)
// followed by non-empty run text of every non-empty paragraph.
func (d *Document) Fragments() []string {
	var out []string
	for _, t := range d.Tables {
		for _, row := range t.Rows {
			for _, cell := range row {
				if !cell.Empty() {
					out = append(out, cell.Text())
				}
			}
		}
	}
	for _, p := range d.Paragraphs {
		if p.Text() == "" {
			continue
		}
		for _, r := range p.Runs {
			if r != "" {
				out = append(out, r)
			}
		}
	}
	return out
}

// Text returns Fragments joined with Separator.
func (d *Document) Text() string {
	return strings.Join(d.Fragments(), Separator)
}

// ExtractText opens the file at path and returns its joined text. Files that
// are not Word documents yield an error wrapping ErrNotDocument.
func ExtractText(path string) (string, error) {
	doc, err := Open(path)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// Open parses the .docx at path.
func Open(name string) (*Document, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotDocument, name, err)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer zr.Close()

	doc, err := Read(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return doc, nil
}

// Read parses an already opened OOXML package.
func Read(zr *zip.Reader) (*Document, error) {
	part, err := mainPart(zr)
	if err != nil {
		return nil, err
	}
	if err := checkContentType(zr, part); err != nil {
		return nil, err
	}

	f, err := zr.Open(part)
	if err != nil {
		return nil, fmt.Errorf("%w: missing main part %s", ErrNotDocument, part)
	}
	defer f.Close()

	doc, err := parseDocument(xml.NewDecoder(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocument, err)
	}
	return doc, nil
}

// mainPart resolves the officeDocument relationship from _rels/.rels.
func mainPart(zr *zip.Reader) (string, error) {
	f, err := zr.Open("_rels/.rels")
	if err != nil {
		return "", fmt.Errorf("%w: no package relationships", ErrNotDocument)
	}
	defer f.Close()

	var rels struct {
		Relationships []struct {
			Type   string `xml:"Type,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.NewDecoder(f).Decode(&rels); err != nil {
		return "", fmt.Errorf("%w: package relationships: %v", ErrNotDocument, err)
	}
	for _, r := range rels.Relationships {
		if r.Type == relOfficeDocument || r.Type == relOfficeDocumentStrict {
			return strings.TrimPrefix(path.Clean("/"+r.Target), "/"), nil
		}
	}
	return "", fmt.Errorf("%w: no officeDocument relationship", ErrNotDocument)
}

// checkContentType verifies the main part is declared as a Word document.
func checkContentType(zr *zip.Reader, part string) error {
	f, err := zr.Open("[Content_Types].xml")
	if err != nil {
		return fmt.Errorf("%w: no content types", ErrNotDocument)
	}
	defer f.Close()

	var types struct {
		Overrides []struct {
			PartName    string `xml:"PartName,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Override"`
	}
	if err := xml.NewDecoder(f).Decode(&types); err != nil {
		return fmt.Errorf("%w: content types: %v", ErrNotDocument, err)
	}
	for _, o := range types.Overrides {
		if !strings.EqualFold(strings.TrimPrefix(o.PartName, "/"), part) {
			continue
		}
		if mainContentTypes[o.ContentType] {
			return nil
		}
		return fmt.Errorf("%w: content type is %s", ErrNotDocument, o.ContentType)
	}
	return fmt.Errorf("%w: no content type for %s", ErrNotDocument, part)
}

func isW(name xml.Name, local string) bool {
	return name.Local == local && (name.Space == nsMain || name.Space == nsMainStrict)
}

func parseDocument(dec *xml.Decoder) (*Document, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no document body")
			}
			return nil, err
		}
		if se, ok := tok.(xml.StartElement); ok && isW(se.Name, "body") {
			return parseBody(dec)
		}
	}
}

func parseBody(dec *xml.Decoder) (*Document, error) {
	doc := &Document{}
	err := eachChild(dec, func(se xml.StartElement) error {
		switch {
		case isW(se.Name, "tbl"):
			t, err := parseTable(dec)
			if err != nil {
				return err
			}
			doc.Tables = append(doc.Tables, t)
		case isW(se.Name, "p"):
			p, err := parseParagraph(dec)
			if err != nil {
				return err
			}
			doc.Paragraphs = append(doc.Paragraphs, p)
		default:
			return dec.Skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func parseTable(dec *xml.Decoder) (Table, error) {
	var t Table
	err := eachChild(dec, func(se xml.StartElement) error {
		if !isW(se.Name, "tr") {
			return dec.Skip()
		}
		row, err := parseRow(dec)
		if err != nil {
			return err
		}
		t.Rows = append(t.Rows, row)
		return nil
	})
	return t, err
}

func parseRow(dec *xml.Decoder) ([]Cell, error) {
	var row []Cell
	err := eachChild(dec, func(se xml.StartElement) error {
		if !isW(se.Name, "tc") {
			return dec.Skip()
		}
		var c Cell
		err := eachChild(dec, func(se xml.StartElement) error {
			if !isW(se.Name, "p") {
				return dec.Skip()
			}
			p, err := parseParagraph(dec)
			if err != nil {
				return err
			}
			c.Paragraphs = append(c.Paragraphs, p)
			return nil
		})
		if err != nil {
			return err
		}
		row = append(row, c)
		return nil
	})
	return row, err
}

func parseParagraph(dec *xml.Decoder) (Paragraph, error) {
	var p Paragraph
	err := eachChild(dec, func(se xml.StartElement) error {
		if !isW(se.Name, "r") {
			return dec.Skip()
		}
		text, err := parseRun(dec)
		if err != nil {
			return err
		}
		p.Runs = append(p.Runs, text)
		return nil
	})
	return p, err
}

func parseRun(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	err := eachChild(dec, func(se xml.StartElement) error {
		switch {
		case isW(se.Name, "t"):
			var s string
			if err := dec.DecodeElement(&s, &se); err != nil {
				return err
			}
			b.WriteString(s)
			return nil
		case isW(se.Name, "tab"):
			b.WriteByte('\t')
		case isW(se.Name, "br"), isW(se.Name, "cr"):
			b.WriteByte('\n')
		}
		return dec.Skip()
	})
	return b.String(), err
}

// eachChild calls fn for every direct child element until the enclosing
// element ends. fn must consume the child (parse it or call dec.Skip).
func eachChild(dec *xml.Decoder, fn func(xml.StartElement) error) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}
