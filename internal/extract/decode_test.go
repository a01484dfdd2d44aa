package extract

import (
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestDecodeBody(t *testing.T) {
	t.Parallel()

	t.Run("utf8 passes through", func(t *testing.T) {
		t.Parallel()
		if got := DecodeBody([]byte("台番 123")); got != "台番 123" {
			t.Errorf("expected %q, got %q", "台番 123", got)
		}
	})

	t.Run("shift_jis is decoded", func(t *testing.T) {
		t.Parallel()
		const text = "台番 123 ビッグ 45G"
		sjis, _, err := transform.String(japanese.ShiftJIS.NewEncoder(), text)
		if err != nil {
			t.Fatalf("failed to encode: %v", err)
		}
		if got := DecodeBody([]byte(sjis)); got != text {
			t.Errorf("expected %q, got %q", text, got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		if got := DecodeBody(nil); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}
