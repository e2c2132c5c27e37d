package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	DefaultActsURL   = "https://lex.uz/acts/"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	minBlockLength   = 10
)

var ErrNoContent = errors.New("no content extracted")

// Metadata describes a parsed legal document.
type Metadata struct {
	SourceURL      string    `json:"source_url"`
	DocumentID     string    `json:"document_id"`
	Title          string    `json:"title"`
	DocumentNumber string    `json:"document_number"`
	ParsedAt       time.Time `json:"parsed_date"`
}

// Document is a legal document rendered as markdown.
type Document struct {
	Markdown string   `json:"markdown"`
	Metadata Metadata `json:"metadata"`
}

// Parser fetches a legal document and extracts its text.
type Parser interface {
	Parse(ctx context.Context, url string) (*Document, error)
}

// LexParser is a best-effort scraper for lex.uz document pages.
type LexParser struct {
	ActsURL   string
	UserAgent string
	Client    *http.Client
}

var _ Parser = &LexParser{}

func NewLexParser(timeout time.Duration) *LexParser {
	return &LexParser{
		ActsURL:   DefaultActsURL,
		UserAgent: defaultUserAgent,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

var documentIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/docs/(\d+)`),
	regexp.MustCompile(`/acts/(\d+)`),
	regexp.MustCompile(`id[=:](\d+)`),
	regexp.MustCompile(`/(\d+)(?:\?|$)`),
}

// DocumentID extracts the lex.uz document id from a url.
func DocumentID(url string) string {
	for _, p := range documentIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// actsURL rewrites a lex.uz url into the /acts/{id} form, which serves the
// full document text.
func (p *LexParser) actsURL(url string) string {
	if id := DocumentID(url); id != "" {
		base := p.ActsURL
		if base == "" {
			base = DefaultActsURL
		}
		return base + id
	}
	return url
}

func (p *LexParser) Parse(ctx context.Context, url string) (*Document, error) {
	target := p.actsURL(url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch document: status %d", resp.StatusCode)
	}

	return ParseHTML(resp.Body, url)
}

// ParseHTML extracts metadata and markdown text from a document page.
func ParseHTML(r io.Reader, sourceURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	meta := Metadata{
		SourceURL:  sourceURL,
		DocumentID: DocumentID(sourceURL),
		ParsedAt:   time.Now(),
		Title:      extractTitle(root),
	}
	meta.DocumentNumber = extractDocumentNumber(root)

	content := extractContent(root)
	if content == "" {
		return nil, ErrNoContent
	}

	return &Document{Markdown: content, Metadata: meta}, nil
}

var skipped = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true, "footer": true,
}

var headings = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var blocks = map[string]bool{
	"p": true, "li": true,
}

func extractTitle(root *html.Node) string {
	var title string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(textOf(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(root)
	return title
}

func extractDocumentNumber(root *html.Node) string {
	var number string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if number != "" {
			return
		}
		if n.Type == html.ElementNode && (n.Data == "h1" || n.Data == "h2" || n.Data == "h3") {
			text := strings.TrimSpace(textOf(n))
			if strings.Contains(text, "№") || strings.Contains(text, " от ") {
				number = text
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(root)
	return number
}

// contentRoot prefers the document body container when the page has one.
func contentRoot(root *html.Node) *html.Node {
	var found *html.Node
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			for _, a := range n.Attr {
				if (a.Key == "class" && hasClass(a.Val, "document-content")) || (a.Key == "id" && a.Val == "content") {
					found = n
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(root)
	if found == nil {
		return root
	}
	return found
}

func extractContent(root *html.Node) string {
	var paragraphs []string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped[n.Data] {
				return
			}
			if headings[n.Data] || blocks[n.Data] {
				text := collapse(textOf(n))
				if len([]rune(text)) > minBlockLength {
					if headings[n.Data] {
						paragraphs = append(paragraphs, "## "+text)
					} else {
						paragraphs = append(paragraphs, text)
					}
				}
				return
			}
			if n.Data == "div" {
				// direct text of a div, nested blocks are visited below
				if text := collapse(directText(n)); len([]rune(text)) > minBlockLength {
					paragraphs = append(paragraphs, text)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(contentRoot(root))
	return strings.Join(paragraphs, "\n\n")
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.ElementNode && skipped[node.Data] {
			return
		}
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return sb.String()
}

func directText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasClass(attr, class string) bool {
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}
