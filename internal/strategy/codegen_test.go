package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneratedCodeExplicitForm(t *testing.T) {
	raw := "LANGUAGE: python\nFILENAME: hello.py\nDIRECTORIES: scripts, scripts/lib\nCODE:\nprint(\"hi\")\nEND_CODE"

	gc, err := parseGeneratedCode(raw)
	require.NoError(t, err)
	assert.Equal(t, "python", gc.Language)
	assert.Equal(t, "hello.py", gc.Filename)
	assert.Equal(t, []string{"scripts", "scripts/lib"}, gc.Directories)
	assert.Equal(t, "print(\"hi\")", gc.Code)
}

func TestParseGeneratedCodeFencedForm(t *testing.T) {
	raw := "FILENAME: hello.py\n```python\nprint(\"hi\")\n```"

	gc, err := parseGeneratedCode(raw)
	require.NoError(t, err)
	assert.Equal(t, "python", gc.Language)
	assert.Equal(t, "hello.py", gc.Filename)
	assert.Equal(t, "print(\"hi\")", gc.Code)
}

func TestParseGeneratedCodeMissingCode(t *testing.T) {
	_, err := parseGeneratedCode("FILENAME: hello.py\nno code here")
	assert.Error(t, err)
}

func TestParseGeneratedCodeMissingFilename(t *testing.T) {
	_, err := parseGeneratedCode("```python\nprint(1)\n```")
	assert.Error(t, err)
}
