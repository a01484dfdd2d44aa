package extract

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/hitscan/internal/model"
)

func TestParseHTML(t *testing.T) {
	t.Parallel()

	t.Run("table rows attach their own identifier", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><table>
<tr><td>123台</td><td>BIG</td><td>45G</td></tr>
<tr><td>123台</td><td>REG</td><td>12G</td></tr>
<tr><td>999台</td><td>BIG</td><td>300G</td></tr>
</table></body></html>`

		got := ParseHTML(html)
		expected := []model.HitRecord{
			{Identifier: "123", GameCount: 45, Kind: model.KindBIG},
			{Identifier: "123", GameCount: 12, Kind: model.KindREG},
			{Identifier: "999", GameCount: 300, Kind: model.KindBIG},
		}
		if diff := cmp.Diff(expected, got.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
		if !slices.Contains(got.Candidates, model.Identifier("999")) {
			t.Errorf("expected 999 in candidates, got %v", got.Candidates)
		}
	})

	t.Run("line fallback when no table has hits", func(t *testing.T) {
		t.Parallel()

		html := `<div><p>台番 512</p><ul><li>BIG 120G</li><li>REG 33G</li></ul></div>`

		got := ParseHTML(html)
		expected := []model.HitRecord{
			{GameCount: 120, Kind: model.KindBIG},
			{GameCount: 33, Kind: model.KindREG},
		}
		if diff := cmp.Diff(expected, got.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
		if len(got.Candidates) == 0 || got.Candidates[0] != "512" {
			t.Errorf("expected page candidate 512 first, got %v", got.Candidates)
		}
	})

	t.Run("one line with two hits is split after the unit", func(t *testing.T) {
		t.Parallel()

		got := ParseHTML("123台 BIG 45G REG 12G")
		expected := []model.HitRecord{
			{Identifier: "123", GameCount: 45, Kind: model.KindBIG},
			{GameCount: 12, Kind: model.KindREG},
		}
		if diff := cmp.Diff(expected, got.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("heading candidate", func(t *testing.T) {
		t.Parallel()

		got := ParseHTML(`<h1>No.77 Juggler</h1><p>BIG 100G</p>`)
		if !slices.Contains(got.Candidates, model.Identifier("77")) {
			t.Errorf("expected 77 in candidates, got %v", got.Candidates)
		}
		if len(got.Records) != 1 || got.Records[0].GameCount != 100 {
			t.Errorf("expected one 100G record, got %v", got.Records)
		}
	})

	t.Run("inline json script", func(t *testing.T) {
		t.Parallel()

		html := `<div>data</div><script type="application/json">{"hits":[{"dai":"321","g":88,"kind":"REG"}]}</script>`

		got := ParseHTML(html)
		expected := []model.HitRecord{{Identifier: "321", GameCount: 88, Kind: model.KindREG}}
		if diff := cmp.Diff(expected, got.Records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("script text is not visible", func(t *testing.T) {
		t.Parallel()

		got := ParseHTML(`<script>var s = "BIG 45G";</script><p>nothing</p>`)
		if len(got.Records) != 0 {
			t.Errorf("expected no records, got %v", got.Records)
		}
	})
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	got := splitLines("BIG 45G REG 12G\n\n  123台  \nBIG 300ゲーム REG 7G")
	expected := []string{"BIG 45G ", "REG 12G", "123台", "BIG 300ゲーム ", "REG 7G"}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("splitLines mismatch (-want +got):\n%s", diff)
	}
}
