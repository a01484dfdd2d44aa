package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/hitscan/internal/model"
)

func TestParseJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []model.HitRecord
	}{
		{
			name:     "first alias in table order wins",
			input:    `{"no":"11","dai":"22","g":"5","type":"BIG"}`,
			expected: []model.HitRecord{{Identifier: "22", GameCount: 5, Kind: model.KindBIG}},
		},
		{
			name:     "keys are case insensitive",
			input:    `[{"MachineNo": 345, "Games": 1200, "Bonus": "RB"}]`,
			expected: []model.HitRecord{{Identifier: "345", GameCount: 1200, Kind: model.KindREG}},
		},
		{
			name:     "object without identifier",
			input:    `{"list":[{"game":10,"kind":"BIG"},{"game":20,"kind":"REG"}]}`,
			expected: []model.HitRecord{{GameCount: 10, Kind: model.KindBIG}, {GameCount: 20, Kind: model.KindREG}},
		},
		{
			name:     "lenient json5",
			input:    `{dai: '456', g: 30, kind: 'BIG',}`,
			expected: []model.HitRecord{{Identifier: "456", GameCount: 30, Kind: model.KindBIG}},
		},
		{
			name:     "text fallback",
			input:    "not json at all\n123台 BIG 45G",
			expected: []model.HitRecord{{Identifier: "123", GameCount: 45, Kind: model.KindBIG}},
		},
		{
			name:     "game count must be an integer",
			input:    `{"g":"abc","kind":"BIG"}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseJSON(tt.input)
			if diff := cmp.Diff(tt.expected, got.Records); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeTreeKeepsOrder(t *testing.T) {
	t.Parallel()

	root, err := DecodeTree([]byte(`{"z":1,"a":{"m":"x"},"k":[true,null]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var keys []string
	for _, m := range root.Members {
		keys = append(keys, m.Key)
	}
	if diff := cmp.Diff([]string{"z", "a", "k"}, keys); diff != "" {
		t.Errorf("member order mismatch (-want +got):\n%s", diff)
	}
	if root.Members[0].Value.Scalar() != "1" {
		t.Errorf("expected number literal 1, got %q", root.Members[0].Value.Scalar())
	}
	if root.Members[2].Value.Elements[1].Kind != NodeNull {
		t.Error("expected null element")
	}
}

func TestDecodeTreeErrors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{``, `{"a":`, `{"a":1} trailing`, `[1,]`} {
		if _, err := DecodeTree([]byte(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

type countingVisitor struct {
	objects int
	strings []string
}

func (v *countingVisitor) VisitObject(*Node) { v.objects++ }
func (v *countingVisitor) VisitString(s string) { v.strings = append(v.strings, s) }

func TestWalk(t *testing.T) {
	t.Parallel()

	root, err := DecodeTree([]byte(`[{"a":"x","b":{"c":"y"}},"z",1]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := &countingVisitor{}
	Walk(root, v)
	if v.objects != 2 {
		t.Errorf("expected 2 objects, got %d", v.objects)
	}
	if diff := cmp.Diff([]string{"x", "y", "z"}, v.strings); diff != "" {
		t.Errorf("string order mismatch (-want +got):\n%s", diff)
	}
}
