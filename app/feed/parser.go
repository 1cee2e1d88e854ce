package feed

import (
	"cmp"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

var (
	itemPattern    = regexp.MustCompile(`(?is)<item(?:\s[^>]*)?>(.*?)</item\s*>`)
	channelPattern = regexp.MustCompile(`(?is)<(?:channel|rdf:RDF)(?:\s[^>]*)?>`)
	cdataPattern   = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	feedPattern    = regexp.MustCompile(`(?is)<feed(?:\s[^>]*)?>`)

	tagPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{"title", "description", "link", "pubDate", "guid", "category", "lastBuildDate", "dc:date"} {
		tagPatterns[tag] = regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(tag) + `(?:\s[^>]*)?>(.*?)</` + regexp.QuoteMeta(tag) + `\s*>`)
	}
}

// Parser extracts feed items with tolerant tag matching. Government feeds
// are frequently not well-formed XML, so nothing here validates structure.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Parse returns nil when data is not recognisable as an RSS, RDF or Atom
// document.
func (p *Parser) Parse(data string) *Feed {
	if strings.TrimSpace(data) == "" {
		return nil
	}

	blocks := itemPattern.FindAllStringSubmatch(data, -1)
	if len(blocks) == 0 {
		if channelPattern.MatchString(data) {
			return p.parseChannel(data, nil)
		}
		if feedPattern.MatchString(data) {
			return p.parseAtom(data)
		}
		return nil
	}

	return p.parseChannel(data, blocks)
}

func (p *Parser) parseChannel(data string, blocks [][]string) *Feed {
	head := data
	if idx := strings.Index(strings.ToLower(data), "<item"); idx >= 0 {
		head = data[:idx]
	}

	parsed := &Feed{
		Title:         extractTag(head, "title"),
		Description:   extractTag(head, "description"),
		LastBuildDate: extractTag(head, "lastBuildDate"),
		Items:         make([]Item, 0, len(blocks)),
	}

	for _, block := range blocks {
		body := block[1]
		item := Item{
			Title:       extractTag(body, "title"),
			Description: extractTag(body, "description"),
			Link:        extractTag(body, "link"),
			PublishDate: cmp.Or(extractTag(body, "pubDate"), extractTag(body, "dc:date")),
			GUID:        extractTag(body, "guid"),
		}
		item.GUID = cmp.Or(item.GUID, item.Link)

		if category := extractTag(body, "category"); category != "" {
			item.Category = &category
		}

		if item.Title == "" && item.Description == "" {
			continue
		}
		parsed.Items = append(parsed.Items, item)
	}

	return parsed
}

func (p *Parser) parseAtom(data string) *Feed {
	atom, err := p.gofeedParser.ParseString(data)
	if err != nil {
		return nil
	}

	parsed := &Feed{
		Title:         atom.Title,
		Description:   atom.Description,
		LastBuildDate: atom.Updated,
		Items:         make([]Item, 0, len(atom.Items)),
	}

	for _, entry := range atom.Items {
		if entry == nil {
			continue
		}
		item := Item{
			Title:       strings.TrimSpace(entry.Title),
			Description: strings.TrimSpace(cmp.Or(entry.Description, entry.Content)),
			Link:        entry.Link,
			PublishDate: cmp.Or(entry.Published, entry.Updated),
			GUID:        cmp.Or(entry.GUID, entry.Link),
		}
		if len(entry.Categories) > 0 && entry.Categories[0] != "" {
			category := entry.Categories[0]
			item.Category = &category
		}
		parsed.Items = append(parsed.Items, item)
	}

	return parsed
}

func extractTag(block, tag string) string {
	match := tagPatterns[tag].FindStringSubmatch(block)
	if match == nil {
		return ""
	}
	return cleanValue(match[1])
}

// cleanValue unwraps CDATA sections in place. CDATA content is literal;
// only the text around it is entity-decoded.
func cleanValue(raw string) string {
	var b strings.Builder
	last := 0
	for _, loc := range cdataPattern.FindAllStringSubmatchIndex(raw, -1) {
		b.WriteString(html.UnescapeString(raw[last:loc[0]]))
		b.WriteString(raw[loc[2]:loc[3]])
		last = loc[1]
	}
	b.WriteString(html.UnescapeString(raw[last:]))
	return strings.TrimSpace(b.String())
}

// ParseDate reads a publish date in whatever layout the source used.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := dateparse.ParseIn(value, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
