package contract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_React(t *testing.T) {
	c, err := Builtin("react")
	require.NoError(t, err)

	assert.Equal(t, "observed-react", c.Name)
	assert.Equal(t, "react", c.Variant)
	assert.Equal(t, "http://localhost:3000", c.BaseURL)
	assert.Equal(t, []Account{{Email: "name@mail.com", Password: "password"}}, c.Accounts)
	assert.Equal(t, Timing{Runs: 10, Ceiling: 5 * time.Second, Timeout: 10 * time.Second}, c.Timing)
	assert.Equal(t, Logout{Path: "/logout", Selector: "#logout"}, c.Logout)
	assert.True(t, c.IsLogoutPath("/logout"))
	assert.True(t, c.IsLogoutPath("http://localhost:3000/logout/"))
	assert.False(t, c.IsLogoutPath("/distance-to-sun"))

	routes := c.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, []string{"login", "distance", "sea"}, []string{routes[0].Name, routes[1].Name, routes[2].Name})

	login := routes[0]
	assert.Equal(t, "/", login.Path)
	assert.False(t, login.RequiresAuth())
	assert.Equal(t, SurfaceElement, login.Surface.Kind())
	assert.Equal(t, ElementSurface{Selector: "[role=alert]"}, login.Surface)
	assert.True(t, login.Credentials)
	assert.Equal(t, "Please fill in all fields.", login.Messages.Empty)

	distance := routes[1]
	assert.True(t, distance.RequiresAuth())
	assert.Equal(t, UnauthRedirect, distance.Unauthenticated)
	assert.Equal(t, SurfaceDialog, distance.DeniedSurface.Kind())
	assert.Equal(t, SurfaceElement, distance.Surface.Kind())
}

func TestBuiltin_DefaultIsReact(t *testing.T) {
	c, err := Builtin("")
	require.NoError(t, err)
	assert.Equal(t, "react", c.Variant)
}

func TestBuiltin_Unknown(t *testing.T) {
	_, err := Builtin("vue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown contract variant")
}

func TestFieldsFor_DeclarationOrderAndDefaults(t *testing.T) {
	c, err := Builtin("react")
	require.NoError(t, err)

	fields, err := c.FieldsFor("distance")
	require.NoError(t, err)
	require.Len(t, fields, 2)

	lat, lng := fields[0], fields[1]
	assert.Equal(t, "lat", lat.ID)
	assert.Equal(t, "[name=lat]", lat.Selector)
	assert.True(t, lat.Required)
	assert.True(t, lat.Numeric())
	require.NotNil(t, lat.Rule.Min)
	assert.Equal(t, -90.0, *lat.Rule.Min)
	assert.Equal(t, 90.0, *lat.Rule.Max)
	assert.Equal(t, -180.0, *lng.Rule.Min)
	assert.Equal(t, 180.0, *lng.Rule.Max)

	// Returned slice is a copy.
	fields[0].ID = "changed"
	again, _ := c.FieldsFor("distance")
	assert.Equal(t, "lat", again[0].ID)

	_, err = c.FieldsFor("nope")
	require.Error(t, err)
}

func TestBuiltin_Static(t *testing.T) {
	c, err := Builtin("static")
	require.NoError(t, err)

	login, err := c.Route("login")
	require.NoError(t, err)
	assert.Equal(t, SurfaceDialog, login.Surface.Kind())
	assert.Equal(t, "button", login.Submit)
	assert.Equal(t, "Login Successful", login.Success.Text)

	success, err := c.Route("success")
	require.NoError(t, err)
	assert.Equal(t, UnauthBlockWithMessage, success.Unauthenticated)
}

const minimalContract = `
contract: {
	name: "mini"
	routes: {
		home: {
			path: "/"
			success: path: "/done"
			submit: "#go"
			fields: [{id: "q", selector: "#q", type: "text", rule: pattern: "^[a-z]+$", message: "letters only"}]
		}
	}
}
`

func TestCompileSource_Minimal(t *testing.T) {
	c, err := CompileSource("mini.cue", []byte(minimalContract))
	require.NoError(t, err)

	r, err := c.Route("home")
	require.NoError(t, err)
	require.Len(t, r.Fields, 1)
	require.NotNil(t, r.Fields[0].Rule.Pattern)
	assert.Nil(t, r.Fields[0].Rule.Min)

	got, err := c.ExpectedOutcome("home", Inputs{"q": "ABC"})
	require.NoError(t, err)
	assert.Equal(t, "letters only", got.Message)

	got, err = c.ExpectedOutcome("home", Inputs{"q": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "/done", got.Target)
}

func TestCompileSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr string
	}{
		{
			name:    "syntax",
			source:  `contract: {`,
			wantErr: "mini.cue",
		},
		{
			name: "unknown field rejected by closed schema",
			source: `contract: {
	name: "x"
	routes: home: {path: "/", success: path: "/", colour: "red"}
}`,
			wantErr: "colour",
		},
		{
			name: "bad field type",
			source: `contract: {
	name: "x"
	routes: home: {path: "/", submit: "#s", success: path: "/", fields: [{id: "a", selector: "#a", type: "date"}]}
}`,
			wantErr: `unknown field type "date"`,
		},
		{
			name: "duplicate path",
			source: `contract: {
	name: "x"
	routes: {
		a: {path: "/", success: path: "/"}
		b: {path: "/", success: path: "/"}
	}
}`,
			wantErr: "already used",
		},
		{
			name: "protected route without indicator",
			source: `contract: {
	name: "x"
	routes: a: {path: "/p", access: "authenticated-only", denied_redirect: "/", success: path: "/p"}
}`,
			wantErr: "success selector",
		},
		{
			name: "credentials without accounts",
			source: `contract: {
	name: "x"
	routes: a: {
		path: "/", submit: "#s", credentials: true, success: path: "/in"
		fields: [{id: "e", selector: "#e", type: "email"}, {id: "p", selector: "#p", type: "password"}]
	}
}`,
			wantErr: "no accounts",
		},
		{
			name: "invalid regex",
			source: `contract: {
	name: "x"
	routes: a: {path: "/", submit: "#s", success: path: "/", fields: [{id: "a", selector: "#a", type: "text", rule: pattern: "("}]}
}`,
			wantErr: "invalid pattern",
		},
		{
			name: "bad duration",
			source: `contract: {
	name: "x"
	timing: ceiling: "soon"
	routes: a: {path: "/", success: path: "/"}
}`,
			wantErr: "invalid duration",
		},
		{
			name: "min above max",
			source: `contract: {
	name: "x"
	routes: a: {path: "/", submit: "#s", success: path: "/", fields: [{id: "a", selector: "#a", type: "latitude", rule: {min: 10, max: 5}}]}
}`,
			wantErr: "exceeds max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("mini.cue", []byte(tt.source))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompileError_CarriesPosition(t *testing.T) {
	_, err := CompileSource("pos.cue", []byte(`contract: {
	name: 42
	routes: a: {path: "/", success: path: "/"}
}`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "pos.cue")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.cue"), []byte(minimalContract), 0644))

	c, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "mini", c.Name)
}

func TestLoadDir_SplitAcrossFilesWithoutPackage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.cue"), []byte(minimalContract), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logout.cue"), []byte(`contract: logout: path: "/bye"`), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "drafts"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drafts", "broken.cue"), []byte(`contract: {`), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "app.cue"), filepath.Join(dir, "logout.cue")}, files)

	c, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "mini", c.Name)
	assert.Equal(t, "/bye", c.Logout.Path)
	assert.True(t, c.IsLogoutPath("/bye"))
}

func TestLoadDir_SchemaErrorKeepsFilePosition(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.cue"), []byte(`contract: {
	name: 42
	routes: a: {path: "/", success: path: "/"}
}`), 0644))

	_, err := LoadDir(dir)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
	assert.Contains(t, ce.Pos.Filename(), "app.cue")
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir("/nonexistent/contract")
	require.Error(t, err)

	empty := t.TempDir()
	_, err = LoadDir(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files")

	file := filepath.Join(empty, "x.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = LoadDir(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
