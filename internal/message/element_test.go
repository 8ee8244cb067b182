package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lyncNS = "http://schemas.microsoft.com/2009/07/Lync"

func TestParseElement_Invalid(t *testing.T) {
	inputs := map[string]string{
		"empty":              "",
		"whitespace only":    "  \n ",
		"broken start tag":   "<test</test>",
		"text before root":   "sdad<test></test>",
		"text after root":    "<test></test>trailing",
		"two roots":          "<a></a><b></b>",
		"unterminated":       "<a><b></b>",
		"mismatched end tag": "<a><b></a></b>",
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseElement([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestElement_FindWithDefaultNamespace(t *testing.T) {
	doc := `<LyncDiagnostics xmlns="` + lyncNS + `"><ConnectionInfo><CallId>abc</CallId></ConnectionInfo></LyncDiagnostics>`

	el, err := ParseElement([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, lyncNS, el.Namespace())

	got, ok := el.FindText("./ConnectionInfo/CallId")
	require.True(t, ok)
	assert.Equal(t, "abc", got)

	_, ok = el.FindText("./ConnectionInfo/ConferenceId")
	assert.False(t, ok)
}

func TestElement_FindWithoutNamespace(t *testing.T) {
	el, err := ParseElement([]byte(`<LyncDiagnostics><ConnectionInfo><CallId>abc</CallId></ConnectionInfo></LyncDiagnostics>`))
	require.NoError(t, err)
	assert.Empty(t, el.Namespace())

	got, ok := el.FindText("./ConnectionInfo/CallId")
	require.True(t, ok)
	assert.Equal(t, "abc", got)
}

func TestElement_FindSkipsForeignNamespace(t *testing.T) {
	doc := `<Root xmlns="urn:a"><Item xmlns="urn:b">wrong</Item><Item>right</Item></Root>`

	el, err := ParseElement([]byte(doc))
	require.NoError(t, err)

	got, ok := el.FindText("Item")
	require.True(t, ok)
	assert.Equal(t, "right", got)
}

func TestElement_FindPrefixed(t *testing.T) {
	doc := `<Root xmlns:x="urn:x"><x:Item>prefixed</x:Item></Root>`

	el, err := ParseElement([]byte(doc))
	require.NoError(t, err)

	got, ok := el.FindText("./x:Item")
	require.True(t, ok)
	assert.Equal(t, "prefixed", got)

	got, ok = el.FindText("./{urn:x}Item")
	require.True(t, ok)
	assert.Equal(t, "prefixed", got)
}

func TestElement_FindWildcard(t *testing.T) {
	el, err := ParseElement([]byte(`<Root><A><Leaf>1</Leaf></A><B><Leaf>2</Leaf></B></Root>`))
	require.NoError(t, err)

	got, ok := el.FindText("./*/Leaf")
	require.True(t, ok)
	assert.Equal(t, "1", got)
}

func TestElement_BytesStripsNamespaceDeclarations(t *testing.T) {
	doc := `<LyncDiagnostics xmlns="` + lyncNS + `" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<ConnectionInfo><CallId>abc</CallId></ConnectionInfo></LyncDiagnostics>`

	el, err := ParseElement([]byte(doc))
	require.NoError(t, err)

	out, err := el.Bytes()
	require.NoError(t, err)
	assert.Equal(t, `<LyncDiagnostics><ConnectionInfo><CallId>abc</CallId></ConnectionInfo></LyncDiagnostics>`, string(out))

	// The source tree keeps its declarations.
	assert.Equal(t, lyncNS, el.Namespace())
	_, ok := el.FindText("./ConnectionInfo/CallId")
	assert.True(t, ok)
}

func TestElement_Children(t *testing.T) {
	el, err := ParseElement([]byte(`<Root xmlns="urn:r"><A/><B/><C/></Root>`))
	require.NoError(t, err)

	kids := el.Children()
	require.Len(t, kids, 3)
	assert.Equal(t, "A", kids[0].Tag())
	assert.Equal(t, "C", kids[2].Tag())
	assert.Equal(t, "urn:r", kids[1].Namespace())
}
