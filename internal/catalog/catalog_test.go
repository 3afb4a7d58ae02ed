package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogCompiles(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 5)
}

func TestTranslateUndefinedSymbol(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	out := c.Translate(`synth.dsp : 3 : ERROR : undefined symbol : BoxIdent[oscs]`)
	require.Len(t, out, 1)
	assert.Equal(t, "undefined-symbol", out[0].Code)
	assert.Contains(t, out[0].Summary, "`oscs`")
	assert.Contains(t, out[0].Fix, "import(\"stdfaust.lib\")")
}

func TestTranslateSequentialMismatch(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	line := "ERROR : sequential composition s1:s2 : the number of outputs [2] of s1 must be equal to the number of inputs [1] of s2"
	out := c.Translate(line)
	require.Len(t, out, 1)
	assert.Equal(t, "sequential-io-mismatch", out[0].Code)
	assert.Contains(t, out[0].Summary, "produces 2 signal(s)")
	assert.Contains(t, out[0].Summary, "expects 1")
}

func TestTranslateSyntaxError(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	out := c.Translate("synth.dsp : 5 : ERROR : syntax error, unexpected ENDDEF")
	require.Len(t, out, 1)
	assert.Equal(t, "syntax-unexpected", out[0].Code)
	assert.Contains(t, out[0].Summary, "ENDDEF")
}

func TestTranslateFirstMatchWins(t *testing.T) {
	// "undefined symbol : process" matches both undefined-symbol and
	// process-undefined; declaration order decides.
	c, err := Default()
	require.NoError(t, err)

	out := c.Translate("ERROR : undefined symbol : process")
	require.Len(t, out, 1)
	assert.Equal(t, "undefined-symbol", out[0].Code)
}

func TestTranslateUnrecognizedErrorPassesThrough(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	out := c.Translate("ERROR : some exotic failure nobody catalogued")
	require.Len(t, out, 1)
	assert.Equal(t, CodeUnrecognized, out[0].Code)
	assert.Equal(t, out[0].Raw, out[0].Summary)
}

func TestTranslateDropsChatter(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	out := c.Translate("faust -a jack-gtk synth.dsp\ncompilation started\n")
	assert.Empty(t, out)
}

func TestTranslateMultiLine(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	output := `synth.dsp : 3 : ERROR : undefined symbol : BoxIdent[oscs]
ERROR : syntax error, unexpected RPAR`
	out := c.Translate(output)
	require.Len(t, out, 2)
	assert.Equal(t, "undefined-symbol", out[0].Code)
	assert.Equal(t, "syntax-unexpected", out[1].Code)
}

func TestLoadUserCatalogOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	user := `[{"code":"my-undefined","match":"undefined symbol","summary":"custom diagnosis","fix":"custom fix"}]`
	require.NoError(t, os.WriteFile(path, []byte(user), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	out := c.Translate("ERROR : undefined symbol : BoxIdent[foo]")
	require.Len(t, out, 1)
	assert.Equal(t, "my-undefined", out[0].Code, "user pattern must take precedence")
}

func TestParseRejectsBadRegex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	bad := `[{"code":"broken","match":"([unclosed","summary":"x","fix":"y"}]`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestParseRejectsMissingCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	bad := `[{"match":"x","summary":"x","fix":"y"}]`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
