package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const circleMode = `
function setup(screen, eyesy) {}
function draw(screen, eyesy) {
  pygame.draw.circle(screen, eyesy.color_picker(eyesy.knob1), [32, 24], 10, 0);
}
`

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeMode(t *testing.T, name, source string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "main.js")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "--help")
	require.NoError(t, err)

	for _, phrase := range []string{"eyesy", "setup(screen, eyesy)", "run", "check", "serve", "repl", "--config", "--lang"} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLIRunHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "run", "--help")
	require.NoError(t, err)

	for _, phrase := range []string{"--frames", "--duration", "--out", "--set", "--window", "--fps"} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLIServeHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "serve", "--help")
	require.NoError(t, err)

	for _, phrase := range []string{"--listen", "--mode", "/mode", "/frame.png", "/metrics"} {
		assert.Contains(t, output, phrase)
	}
}

func TestCLIReplHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "repl", "--help")
	require.NoError(t, err)

	for _, phrase := range []string{"--history", ":tick", ":set", "Command history"} {
		assert.Contains(t, output, phrase)
	}
}

func TestEngineName(t *testing.T) {
	tests := []struct {
		lang, filename string
		want           string
		errMsg         string
	}{
		{"", "modes/spiral/main.py", "python", ""},
		{"", "MODE.PY", "python", ""},
		{"", "mode.js", "javascript", ""},
		{"", "mode.mjs", "javascript", ""},
		{"py", "", "python", ""},
		{"js", "mode.py", "javascript", ""},
		{"javascript", "", "javascript", ""},
		{"", "", "", "language required"},
		{"", "mode.lua", "", "language required"},
		{"ruby", "", "", "unknown language"},
	}
	for _, tt := range tests {
		got, err := engineName(tt.lang, tt.filename)
		if tt.errMsg != "" {
			assert.ErrorContains(t, err, tt.errMsg, "%q %q", tt.lang, tt.filename)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q %q", tt.lang, tt.filename)
	}
}

func TestParseSet(t *testing.T) {
	values, err := parseSet([]string{"knob1=0.3", " auto_clear = false "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"knob1": "0.3", "auto_clear": "false"}, values)

	for _, bad := range []string{"knob1", "=1"} {
		_, err := parseSet([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestCheckCommand(t *testing.T) {
	path := writeMode(t, "spiral", circleMode)

	output, err := executeCommand(rootCmd, "check", path, "--width", "64", "--height", "48")

	require.NoError(t, err, output)
	assert.Contains(t, output, "ok: spiral (javascript engine)")
}

func TestCheckCommandReportsKind(t *testing.T) {
	tests := []struct {
		name, source, kind string
	}{
		{"contract", "function setup(s, e) {}", "contract error"},
		{"setup", "function setup(s, e) { throw new Error('no') }\nfunction draw(s, e) {}", "setup error"},
		{"syntax", "function (", "interpreter error"},
		{"draw", "function setup(s, e) {}\nfunction draw(s, e) { throw new Error('x') }", "draw error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeMode(t, tt.name, tt.source)

			_, err := executeCommand(rootCmd, "check", path, "--width", "64", "--height", "48")

			assert.ErrorContains(t, err, tt.kind)
		})
	}
}

func TestRunFramesWritesPNG(t *testing.T) {
	path := writeMode(t, "circle", circleMode)
	out := filepath.Join(t.TempDir(), "frame.png")

	output, err := executeCommand(rootCmd, "run", path,
		"--frames", "3", "--out", out, "--set", "knob1=0.5", "--width", "64", "--height", "48")
	require.NoError(t, err, output)
	assert.Contains(t, output, "ran 3 frames")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	// knob1=0.5 picks cyan for the circle.
	r, g, b, _ := img.At(32, 24).RGBA()
	assert.Equal(t, []uint32{0, 255, 255}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestRunFaultingMode(t *testing.T) {
	path := writeMode(t, "broken", `function setup(s, e) {}
function draw(s, e) { var o = null; o.x; }`)

	output, err := executeCommand(rootCmd, "run", path, "--frames", "5", "--width", "64", "--height", "48")

	require.ErrorContains(t, err, "mode faulted")
	assert.Contains(t, output, "ran 1 frames")
	assert.Contains(t, output, "Drawing error: ")
	assert.Contains(t, output, "Animation stopped after 1 errors.")
}

func TestRunRejectsBadSet(t *testing.T) {
	path := writeMode(t, "circle", circleMode)

	_, err := executeCommand(rootCmd, "run", path, "--frames", "1", "--set", "audio_in=1")

	assert.Error(t, err)
}

func TestReplEval(t *testing.T) {
	path := writeMode(t, "probe", `
var frames = 0;
function setup(screen, eyesy) {}
function draw(screen, eyesy) { frames++; }
`)
	require.NoError(t, replCmd.ParseFlags([]string{"--width", "64", "--height", "48"}))
	var out, errOut bytes.Buffer
	a, err := newApp(replCmd, path, &errOut)
	require.NoError(t, err)
	defer a.Close()
	_, err = a.loop.LoadModeFile(t.Context(), path)
	require.NoError(t, err)

	r := &repl{app: a, session: a.host.Session(), out: &out, errOut: &errOut}

	assert.False(t, r.eval("1 + 2"))
	assert.False(t, r.eval(":set knob1=0.25"))
	assert.False(t, r.eval(":tick 2"))
	assert.False(t, r.eval("[frames, eyesy.knob1].join(' ')"))
	assert.False(t, r.eval(":status"))
	assert.False(t, r.eval(":bogus"))
	assert.False(t, r.eval("undefinedName.x"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "3", lines[0])
	assert.Equal(t, "2 0.25", lines[1])
	assert.Contains(t, lines[2], "mode=probe")
	assert.Contains(t, errOut.String(), "unknown command :bogus")
	assert.Contains(t, errOut.String(), "undefinedName")

	shot := filepath.Join(t.TempDir(), "screen.png")
	assert.False(t, r.eval(":save "+shot))
	assert.FileExists(t, shot)

	assert.True(t, r.eval("exit"))
}
