package blocks

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_TaggedUnion(t *testing.T) {
	acf := json.RawMessage(`{"modules":[
		{"acf_fc_layout":"hero","title":"Welcome","subtitle":"Hi"},
		{"acf_fc_layout":"text","content":"<p>body</p>"},
		{"acf_fc_layout":"image","image":{"url":"https://cms.example.com/a.jpg","alt":"A","width":10}},
		{"acf_fc_layout":"carousel","slides":[1,2]}
	]}`)

	got, err := Decode(acf)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, HeroBlock{Title: "Welcome", Subtitle: "Hi"}, got[0])
	assert.Equal(t, TextBlock{Content: "<p>body</p>"}, got[1])

	img, ok := got[2].(ImageBlock)
	require.True(t, ok)
	require.NotNil(t, img.Image)
	assert.Equal(t, "A", img.Image.Alt)

	unknown, ok := got[3].(UnknownBlock)
	require.True(t, ok)
	assert.Equal(t, "carousel", unknown.Layout())
	assert.Contains(t, unknown.Fields, "slides")
	assert.NotContains(t, unknown.Fields, "acf_fc_layout")
}

func TestDecode_EmptyShapes(t *testing.T) {
	for _, raw := range []string{``, `false`, `[]`, `{}`, `{"modules":false}`, `{"modules":null}`} {
		got, err := Decode(json.RawMessage(raw))
		assert.NoError(t, err, raw)
		assert.Empty(t, got, raw)
	}
}

func TestDecode_ImageWithoutURL(t *testing.T) {
	// 返却形式がIDの場合は画像なしとして扱う
	got, err := Decode(json.RawMessage(`{"modules":[{"acf_fc_layout":"image","image":12}]}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].(ImageBlock).Image)
}

func TestRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r, err := NewRenderer(func(s string) string { return strings.ToUpper(s) }, logger)
	require.NoError(t, err)

	out := string(r.Render([]Block{
		HeroBlock{Title: "<Welcome>"},
		TextBlock{Content: "<p>body</p>"},
		UnknownBlock{Name: "carousel"},
		UnknownBlock{Name: "carousel"},
		ImageBlock{},
	}))

	assert.Contains(t, out, "&lt;Welcome&gt;", "見出しはエスケープされる")
	assert.Contains(t, out, "<P>BODY</P>", "本文はフィルタ後のHTMLとして出力される")
	assert.Contains(t, out, `class="block block-image"`)
	assert.NotContains(t, out, "carousel")
	assert.Equal(t, 1, strings.Count(buf.String(), "carousel"), "未知のレイアウトは1回だけログに残す")
}

func TestRenderer_RenderWithoutFilterEscapes(t *testing.T) {
	r, err := NewRenderer(nil, nil)
	require.NoError(t, err)

	out := string(r.Render([]Block{TextBlock{Content: "<script>x</script>"}}))
	assert.NotContains(t, out, "<script>")
}
