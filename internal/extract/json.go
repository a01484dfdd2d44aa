package extract

import (
	"strconv"
	"strings"

	"github.com/nao1215/hitscan/internal/model"
)

// Alias tables for JSON keys. Keys are compared case-insensitively and the
// first alias in table order that an object carries wins.
var (
	gameAliases       = []string{"g", "game", "spin", "games", "games_count", "total_games"}
	kindAliases       = []string{"k", "kind", "type", "bonus", "label", "name"}
	identifierAliases = []string{
		"dai", "no", "number", "machine", "台番", "台番号",
		"machine_no", "unit_no", "table_no", "unit", "machineno",
	}
)

// ParseJSON extracts records and candidates from a JSON payload.
// Strict JSON is tried first, then JSON5. If neither decodes, the raw
// payload is scanned line by line as text.
func ParseJSON(raw string) Batch {
	data := []byte(raw)
	root, err := DecodeTree(data)
	if err != nil {
		root, err = DecodeLenientTree(data)
	}
	if err != nil {
		return parseLines(strings.Split(raw, "\n"))
	}
	c := &hitCollector{}
	Walk(root, c)
	return c.batch
}

// hitCollector is the Visitor that turns a JSON tree into a Batch.
type hitCollector struct {
	batch Batch
}

func (c *hitCollector) VisitObject(n *Node) {
	game := lookupAlias(n, gameAliases)
	kind := lookupAlias(n, kindAliases)
	dai := lookupAlias(n, identifierAliases)

	var id model.Identifier
	if dai != nil {
		if v, ok := model.NormalizeIdentifier(dai.Scalar()); ok {
			id = v
			c.batch.Candidates = append(c.batch.Candidates, v)
		}
	}
	if game == nil || kind == nil {
		return
	}
	count, ok := jsonGameCount(game)
	if !ok {
		return
	}
	c.batch.Records = append(c.batch.Records, model.HitRecord{
		Identifier: id,
		GameCount:  count,
		Kind:       model.ParseKind(kind.Scalar()),
	})
}

func (c *hitCollector) VisitString(s string) {
	records, id := scanLine(Normalize(s))
	if !id.IsZero() {
		c.batch.Candidates = append(c.batch.Candidates, id)
	}
	c.batch.Records = append(c.batch.Records, records...)
}

func lookupAlias(n *Node, aliases []string) *Node {
	for _, alias := range aliases {
		for _, m := range n.Members {
			if strings.EqualFold(m.Key, alias) {
				return m.Value
			}
		}
	}
	return nil
}

// jsonGameCount accepts integer numbers and strings holding only an
// integer (after normalization). "45G" is not a game count here; the text
// path picks it up instead.
func jsonGameCount(n *Node) (int, bool) {
	s := strings.ReplaceAll(Normalize(n.Scalar()), " ", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
