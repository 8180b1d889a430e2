package htmltext

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<html>
<head>
  <title>  EORA | Кейсы  </title>
  <style>body { color: red }</style>
  <script>var x = 1;</script>
</head>
<body>
  <h1>Наши кейсы</h1>
  <p>Бот для   Магнита   и   KazanExpress</p>
  <a href="/cases/magnit">Магнит</a>
  <a href="https://eora.ru/cases/kazan#top">Kazan</a>
  <a href="/cases/magnit">Дубль</a>
  <a href="">empty</a>
</body>
</html>`

func TestPage(t *testing.T) {
	p, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "EORA | Кейсы", p.Title())

	text := p.Text()
	assert.Contains(t, text, "Наши кейсы")
	assert.Contains(t, text, "Бот для Магнита и KazanExpress")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "var x")

	base, _ := url.Parse("https://eora.ru/cases")
	assert.Equal(t, []string{
		"https://eora.ru/cases/magnit",
		"https://eora.ru/cases/kazan",
	}, p.Links(base))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a b c d", Clean("  a  \n\n b  c \r\n\t d "))
	assert.Equal(t, "", Clean(" \n \n "))
}

func TestTitle_Missing(t *testing.T) {
	p, err := Parse(strings.NewReader("<p>no title</p>"))
	require.NoError(t, err)
	assert.Equal(t, "", p.Title())
}
