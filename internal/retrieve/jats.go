// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/methodscan/pkg/types"
)

// JATS XML structures, limited to the elements the pipeline reads.
type pmcArticleSet struct {
	XMLName  xml.Name      `xml:"pmc-articleset"`
	Articles []jatsArticle `xml:"article"`
	Errors   []string      `xml:"error"`
}

type jatsArticle struct {
	Front jatsFront `xml:"front"`
	Body  *jatsSec  `xml:"body"`
}

type jatsFront struct {
	JournalTitle jatsText        `xml:"journal-meta>journal-title-group>journal-title"`
	ArticleMeta  jatsArticleMeta `xml:"article-meta"`
}

type jatsArticleMeta struct {
	IDs      []jatsArticleID `xml:"article-id"`
	Title    jatsText        `xml:"title-group>article-title"`
	Contribs []jatsContrib   `xml:"contrib-group>contrib"`
	PubDates []jatsPubDate   `xml:"pub-date"`
}

type jatsArticleID struct {
	Type  string `xml:"pub-id-type,attr"`
	Value string `xml:",chardata"`
}

type jatsContrib struct {
	Type    string   `xml:"contrib-type,attr"`
	Surname string   `xml:"name>surname"`
	Given   string   `xml:"name>given-names"`
	Collab  jatsText `xml:"collab"`
}

type jatsPubDate struct {
	Year string `xml:"year"`
}

// jatsSec is a <sec> or the <body> itself. Paragraphs are collected at any
// depth in document order, so text wrapped in <list-item>, <boxed-text>,
// <disp-quote> or <def-list> is kept. Nested <sec> elements become
// subsections and only a direct <title> child is the heading.
type jatsSec struct {
	Title      jatsText
	Paragraphs []jatsText
	Sections   []jatsSec
}

func (s *jatsSec) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tt := tok.(type) {
		case xml.StartElement:
			switch tt.Name.Local {
			case "sec":
				var sub jatsSec
				if err := d.DecodeElement(&sub, &tt); err != nil {
					return err
				}
				s.Sections = append(s.Sections, sub)
			case "title":
				var title jatsText
				if err := d.DecodeElement(&title, &tt); err != nil {
					return err
				}
				if depth == 0 && s.Title == "" {
					s.Title = title
				}
			case "p":
				var p jatsText
				if err := d.DecodeElement(&p, &tt); err != nil {
					return err
				}
				s.Paragraphs = append(s.Paragraphs, p)
			default:
				depth++
			}
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
}

// jatsText flattens an element's character data, including text inside
// inline markup such as <italic> or <xref>, into one whitespace-collapsed
// string.
type jatsText string

func (t *jatsText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tt := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = jatsText(collapseSpace(b.String()))
				return nil
			}
			depth--
		case xml.CharData:
			b.Write(tt)
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseJATS decodes an efetch pmc-articleset payload and normalizes its
// first article. A payload that is not a pmc-articleset is a parse error;
// an empty set or an article without body sections is ErrNoFullText.
func ParseJATS(r io.Reader, id types.ArticleID) (*types.Document, error) {
	var set pmcArticleSet
	if err := newDecoder(r).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}
	if len(set.Articles) == 0 {
		if len(set.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoFullText, collapseSpace(set.Errors[0]))
		}
		return nil, ErrNoFullText
	}

	art := set.Articles[0]
	doc := &types.Document{
		ID:       id,
		Metadata: normalizeMetadata(art.Front, id),
	}
	if art.Body != nil {
		doc.Sections = normalizeBody(*art.Body)
	}
	if len(doc.Sections) == 0 {
		return nil, ErrNoFullText
	}
	return doc, nil
}

func normalizeMetadata(f jatsFront, id types.ArticleID) types.Metadata {
	m := types.Metadata{
		ArticleID: id,
		Title:     string(f.ArticleMeta.Title),
		Journal:   string(f.JournalTitle),
	}
	for _, aid := range f.ArticleMeta.IDs {
		v := strings.TrimSpace(aid.Value)
		switch aid.Type {
		case "pmid":
			m.PMID = v
		case "doi":
			m.DOI = v
		}
	}
	for _, c := range f.ArticleMeta.Contribs {
		if c.Type != "" && c.Type != "author" {
			continue
		}
		if name := contribName(c); name != "" {
			m.Authors = append(m.Authors, name)
		}
	}
	for _, d := range f.ArticleMeta.PubDates {
		if y := strings.TrimSpace(d.Year); y != "" {
			m.Year = y
			break
		}
	}
	return m
}

func contribName(c jatsContrib) string {
	if c.Collab != "" {
		return string(c.Collab)
	}
	return collapseSpace(c.Given + " " + c.Surname)
}

// normalizeBody converts the body tree. Paragraphs in the body outside any
// section become a leading section without a heading.
func normalizeBody(b jatsSec) []types.Section {
	var out []types.Section
	if paras := paragraphs(b.Paragraphs); len(paras) > 0 {
		out = append(out, types.Section{Paragraphs: paras})
	}
	for _, s := range b.Sections {
		out = append(out, normalizeSec(s))
	}
	return out
}

func normalizeSec(s jatsSec) types.Section {
	sec := types.Section{
		Heading:    string(s.Title),
		Paragraphs: paragraphs(s.Paragraphs),
	}
	for _, sub := range s.Sections {
		sec.Subsections = append(sec.Subsections, normalizeSec(sub))
	}
	return sec
}

func paragraphs(ps []jatsText) []string {
	var out []string
	for _, p := range ps {
		if p != "" {
			out = append(out, string(p))
		}
	}
	return out
}
