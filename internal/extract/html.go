package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/hitscan/internal/model"
)

// headingSelectors are elements that usually carry the machine number of
// a detail page. Only the first element of each selector is read.
var headingSelectors = []string{
	"h1", "h2", ".title", ".machine-name", ".dai-number", ".machineNo", ".no", ".tit", ".head", ".header",
}

// skippedElements never contribute visible text.
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// blockElements are separated by line breaks in the visible text.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true, "figcaption": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tbody": true, "thead": true, "tfoot": true, "tr": true, "ul": true,
}

// ParseHTML extracts records and candidates from an HTML document or a
// plain text blob.
//
// Table rows are scanned first; each row's first identifier is attached to
// the row's hits. When no table row yields a hit, the visible text is
// scanned line by line instead. Candidates from the whole text and from
// heading-like elements join the pool, and inline JSON scripts go through
// ParseJSON.
func ParseHTML(content string) Batch {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return parseLines(strings.Split(content, "\n"))
	}

	var b Batch
	text := visibleText(doc)
	if id := FirstIdentifier(Normalize(text)); !id.IsZero() {
		b.Candidates = append(b.Candidates, id)
	}

	table := parseTables(doc)
	b.merge(table)
	if len(table.Records) == 0 {
		b.merge(parseLines(splitLines(text)))
	}

	for _, sel := range headingSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if id := FirstIdentifier(Normalize(el.Text())); !id.IsZero() {
			b.Candidates = append(b.Candidates, id)
		}
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if body, ok := inlineJSON(s); ok {
			b.merge(ParseJSON(body))
		}
	})
	return b
}

func parseTables(doc *goquery.Document) Batch {
	var b Batch
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th,td").Each(func(_ int, td *goquery.Selection) {
			if c := Normalize(td.Text()); c != "" {
				cells = append(cells, c)
			}
		})
		if len(cells) == 0 {
			return
		}
		records, id := scanLine(strings.Join(cells, " "))
		if !id.IsZero() {
			b.Candidates = append(b.Candidates, id)
		}
		b.Records = append(b.Records, records...)
	})
	return b
}

// parseLines normalizes and scans each line on its own.
func parseLines(lines []string) Batch {
	var b Batch
	for _, raw := range lines {
		line := Normalize(raw)
		if line == "" {
			continue
		}
		records, id := scanLine(line)
		if !id.IsZero() {
			b.Candidates = append(b.Candidates, id)
		}
		b.Records = append(b.Records, records...)
	}
	return b
}

// splitLines breaks text into line units: on newlines, and after a
// "<digit>G" token so that "BIG 45G REG 12G" becomes two units.
func splitLines(text string) []string {
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := Normalize(raw)
		if line == "" {
			continue
		}
		// Normalize ends every unit with a single space or end of string,
		// so a boundary match always ends on that space.
		start := 0
		for _, loc := range unitBoundary.FindAllStringIndex(line, -1) {
			out = append(out, line[start:loc[1]])
			start = loc[1]
		}
		if start < len(line) {
			out = append(out, line[start:])
		}
	}
	return out
}

// visibleText returns the document text with script-like elements removed
// and block elements on their own lines.
func visibleText(doc *goquery.Document) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			if blockElements[n.Data] {
				sb.WriteString("\n")
			}
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteString("\n")
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return sb.String()
}

// inlineJSON reports whether a script element holds a JSON payload.
func inlineJSON(s *goquery.Selection) (string, bool) {
	if _, hasSrc := s.Attr("src"); hasSrc {
		return "", false
	}
	body := strings.TrimSpace(s.Text())
	if body == "" {
		return "", false
	}
	typ, _ := s.Attr("type")
	if strings.Contains(strings.ToLower(typ), "json") {
		return body, true
	}
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		return body, true
	}
	return "", false
}

// recordsWithoutIdentifier counts unresolved records. Used by tests and
// the extractor's debug log.
func recordsWithoutIdentifier(records []model.HitRecord) int {
	n := 0
	for _, r := range records {
		if !r.Resolved() {
			n++
		}
	}
	return n
}
