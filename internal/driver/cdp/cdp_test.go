package cdp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextScriptQuotesSelector(t *testing.T) {
	s := textScript(`input[name="lat"]`)
	assert.Contains(t, s, `document.querySelector("input[name=\"lat\"]")`)
}

func TestTextProbeDecodes(t *testing.T) {
	var p textProbe
	err := json.Unmarshal([]byte(`{"found":true,"text":"  Nearest Sea: Black Sea\n"}`), &p)
	assert.NoError(t, err)
	assert.True(t, p.Found)
	assert.Equal(t, "Nearest Sea: Black Sea", strings.TrimSpace(p.Text))
}

func TestAllocatorOptions(t *testing.T) {
	headless := &Browser{headless: true}
	headed := &Browser{headless: false, execPath: "/usr/bin/chromium"}

	assert.Greater(t, len(headed.allocatorOptions()), len(headless.allocatorOptions()))
}
