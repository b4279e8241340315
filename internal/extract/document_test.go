package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html><head>
<title>채식주의자 : 알라딘</title>
<meta property="og:title" content="  채식주의자   - 한강 소설 ">
<style>.price { color: red }</style>
<script>var price = "99,000원";</script>
</head>
<body>
  <div class="price">매입가
     12,300원</div>
</body></html>`

func TestPageRawTitlePrefersOpenGraph(t *testing.T) {
	page, err := ParseDocument(samplePage)
	require.NoError(t, err)
	assert.Equal(t, "채식주의자 - 한강 소설", page.RawTitle())
}

func TestPageRawTitleFallsBackToTitleElement(t *testing.T) {
	page, err := ParseDocument(`<html><head><title> 소년이 온다 - 예스24 </title></head><body></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "소년이 온다 - 예스24", page.RawTitle())
}

func TestPageRawTitleMissing(t *testing.T) {
	page, err := ParseDocument(`<html><body>nothing</body></html>`)
	require.NoError(t, err)
	assert.Empty(t, page.RawTitle())
}

func TestPagePlainTextDropsScriptsAndCollapsesWhitespace(t *testing.T) {
	page, err := ParseDocument(samplePage)
	require.NoError(t, err)

	text := page.PlainText()
	assert.Contains(t, text, "매입가 12,300원")
	assert.NotContains(t, text, "99,000원")
	assert.NotContains(t, text, "color: red")
	assert.Equal(t, int64(12300), BestPrice(text))
}

func TestTitleCleaner(t *testing.T) {
	c := NewTitleCleaner("알라딘", "YES24", "예스24")

	assert.Equal(t, "채식주의자", c.Clean("채식주의자 : 알라딘"))
	assert.Equal(t, "소년이 온다", c.Clean("소년이 온다 - 예스24"))
	assert.Equal(t, "작별하지 않는다", c.Clean("작별하지 않는다 | YES24 중고샵"))
	assert.Equal(t, "Go - The Language", c.Clean("Go - The Language : 알라딘"))
	assert.Equal(t, "알라딘", c.Clean("알라딘"))
	assert.Equal(t, "plain", NewTitleCleaner().Clean(" plain "))
}
