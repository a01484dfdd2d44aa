package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/titanous/json5"
)

// NodeKind is the type of a JSON tree node.
type NodeKind int

const (
	// NodeNull is a JSON null.
	NodeNull NodeKind = iota
	// NodeBool is true or false.
	NodeBool
	// NodeNumber is a number kept in its literal form.
	NodeNumber
	// NodeString is a string.
	NodeString
	// NodeArray is an array.
	NodeArray
	// NodeObject is an object with members in document order.
	NodeObject
)

// Member is one key/value pair of an object node.
type Member struct {
	Key   string
	Value *Node
}

// Node is a generic JSON value. Unlike map[string]any it keeps object
// members in document order, so "first alias wins" is deterministic.
type Node struct {
	Kind     NodeKind
	Members  []Member
	Elements []*Node
	// Text holds the string value, the number literal or "true"/"false".
	Text string
}

// Scalar returns the node value as text. Containers and null return "".
func (n *Node) Scalar() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeString, NodeNumber, NodeBool:
		return n.Text
	default:
		return ""
	}
}

// Visitor receives the nodes of a tree in document order.
type Visitor interface {
	// VisitObject is called for every object before its members are walked.
	VisitObject(n *Node)
	// VisitString is called for every string leaf.
	VisitString(s string)
}

// Walk traverses n depth first and calls v for objects and string leaves.
func Walk(n *Node, v Visitor) {
	if n == nil {
		return
	}
	switch n.Kind {
	case NodeObject:
		v.VisitObject(n)
		for _, m := range n.Members {
			Walk(m.Value, v)
		}
	case NodeArray:
		for _, e := range n.Elements {
			Walk(e, v)
		}
	case NodeString:
		v.VisitString(n.Text)
	}
}

// ErrTrailingData is returned when a JSON document has content after the
// first value.
var ErrTrailingData = errors.New("trailing data after JSON value")

// DecodeTree decodes strict JSON into an ordered tree.
func DecodeTree(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return &Node{Kind: NodeString, Text: t}, nil
	case json.Number:
		return &Node{Kind: NodeNumber, Text: t.String()}, nil
	case bool:
		return &Node{Kind: NodeBool, Text: strconv.FormatBool(t)}, nil
	case nil:
		return &Node{Kind: NodeNull}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func decodeObject(dec *json.Decoder) (*Node, error) {
	n := &Node{Kind: NodeObject}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, not string", tok)
		}
		v, err := decodeNode(dec)
		if err != nil {
			return nil, err
		}
		n.Members = append(n.Members, Member{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return n, nil
}

func decodeArray(dec *json.Decoder) (*Node, error) {
	n := &Node{Kind: NodeArray}
	for dec.More() {
		v, err := decodeNode(dec)
		if err != nil {
			return nil, err
		}
		n.Elements = append(n.Elements, v)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return nil, err
	}
	return n, nil
}

// DecodeLenientTree decodes JSON5 (comments, single quotes, trailing commas,
// unquoted keys). Object member order is not preserved by the JSON5 decoder,
// so members are sorted by key.
func DecodeLenientTree(data []byte) (*Node, error) {
	var v any
	if err := json5.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return fromValue(v), nil
}

func fromValue(v any) *Node {
	switch t := v.(type) {
	case nil:
		return &Node{Kind: NodeNull}
	case bool:
		return &Node{Kind: NodeBool, Text: strconv.FormatBool(t)}
	case float64:
		return &Node{Kind: NodeNumber, Text: strconv.FormatFloat(t, 'f', -1, 64)}
	case json.Number:
		return &Node{Kind: NodeNumber, Text: t.String()}
	case string:
		return &Node{Kind: NodeString, Text: t}
	case []any:
		n := &Node{Kind: NodeArray, Elements: make([]*Node, 0, len(t))}
		for _, e := range t {
			n.Elements = append(n.Elements, fromValue(e))
		}
		return n
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &Node{Kind: NodeObject, Members: make([]Member, 0, len(t))}
		for _, k := range keys {
			n.Members = append(n.Members, Member{Key: k, Value: fromValue(t[k])})
		}
		return n
	default:
		return &Node{Kind: NodeString, Text: fmt.Sprint(t)}
	}
}
