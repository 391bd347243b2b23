package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/foldline/internal/testutil"
)

const roomDoc = `{
	"room_id": "!room:example.org",
	"timeline": [
		{"type":"m.room.message","event_id":"$0","sender":"@alice:example.org","content":{"msgtype":"m.text","body":"hello"}},
		{"type":"m.room.member","event_id":"$1","sender":"@bob:example.org","state_key":"@bob:example.org","content":{"membership":"join","displayname":"Bob"}},
		{"type":"m.room.member","event_id":"$2","sender":"@carol:example.org","state_key":"@carol:example.org","content":{"membership":"join","displayname":"Carol"}},
		{"type":"m.room.member","event_id":"$3","sender":"@dave:example.org","state_key":"@dave:example.org","content":{"membership":"join","displayname":"Dave"}},
		{"type":"m.room.message","event_id":"$4","sender":"@alice:example.org","content":{"msgtype":"m.text","body":"welcome"}},
		{"type":"m.room.member","event_id":"$5","sender":"@frank:example.org","state_key":"@frank:example.org","content":{"membership":"join","displayname":"Frank"}},
		{"type":"m.room.member","event_id":"$6","sender":"@frank:example.org","state_key":"@frank:example.org","content":{"membership":"leave"},"unsigned":{"prev_content":{"membership":"join"}}},
		{"type":"m.room.member","event_id":"$7","sender":"@frank:example.org","state_key":"@frank:example.org","content":{"membership":"join","displayname":"Frank"},"unsigned":{"prev_content":{"membership":"leave"}}}
	]
}`

const roomYAML = `room_id: "!yaml:example.org"
timeline:
  - type: m.room.member
    event_id: $a
    sender: "@bob:example.org"
    state_key: "@bob:example.org"
    content: {membership: join, displayname: Bob}
  - type: m.room.member
    event_id: $b
    sender: "@bob:example.org"
    state_key: "@bob:example.org"
    content: {membership: leave}
    unsigned: {prev_content: {membership: join}}
  - type: m.room.topic
    event_id: $c
    sender: "@bob:example.org"
    state_key: ""
    content: {topic: hi}
`

type testEnv struct {
	dir        string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "global:\n" +
		"  data_dir: " + filepath.Join(dir, "data") + "\n" +
		"  config_dir: " + filepath.Join(dir, "config") + "\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return &testEnv{dir: dir, configPath: configPath}
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := e.runWithStderr(t, args...)
	return stdout, err
}

func (e *testEnv) runWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd("test", &stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSummarizeTable(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "room.json", roomDoc)

	out, err := env.run(t, "summarize", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "RANGE"))
	require.Contains(t, lines[1], "1-3")
	require.Contains(t, lines[1], "Bob, Carol, and Dave joined")
	require.Contains(t, lines[2], "5-7")
	require.Contains(t, lines[2], "Frank joined and left, joined")
}

func TestSummarizeJSONFromYAML(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "room.yaml", roomYAML)

	out, err := env.run(t, "--json", "summarize", path)
	require.NoError(t, err)

	var groups []groupRow
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 1)
	require.Equal(t, "$a", groups[0].Key)
	require.Equal(t, 3, groups[0].Size)
	require.Equal(t, "Bob joined and left", groups[0].Summary)
	require.Equal(t, []string{"@bob:example.org"}, groups[0].Avatars)
}

func TestSummarizeMetrics(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "room.json", roomDoc)

	out, stderr, err := env.runWithStderr(t, "--metrics", "summarize", path)
	require.NoError(t, err)
	require.Contains(t, out, "Bob, Carol, and Dave joined")
	require.Contains(t, stderr, "# TYPE foldline_rebuilds_total counter")
	require.Contains(t, stderr, "foldline_rebuilds_total 1")
	require.Contains(t, stderr, "foldline_groups 2")
	require.Contains(t, stderr, "foldline_summary_memo_misses_total 2")

	_, stderr, err = env.runWithStderr(t, "summarize", path)
	require.NoError(t, err)
	require.NotContains(t, stderr, "foldline_rebuilds_total")
}

func TestGroupsMetrics(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "room.json", roomDoc)
	_, err := env.run(t, "import", path)
	require.NoError(t, err)

	_, stderr, err := env.runWithStderr(t, "--metrics", "groups", "--room", "!room:example.org")
	require.NoError(t, err)
	require.Contains(t, stderr, "foldline_rebuilds_total 1")
	require.Contains(t, stderr, "foldline_rebuild_seconds_count 1")
}

func TestDecodeStoredLogsSkippedEvents(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	a := &app{logger: zerolog.New(&buf)}

	items := a.decodeStored("!room:example.org", []json.RawMessage{
		json.RawMessage(`{"type":"m.room.member","event_id":"$1","sender":"@bob:example.org","state_key":"@bob:example.org","content":{"membership":"join"}}`),
		json.RawMessage(`{"type":"m.room.member","sender":"not-a-user","state_key":"@bob:example.org","content":{"membership":"leave"}}`),
	})
	require.Len(t, items, 1)

	out := buf.String()
	require.Contains(t, out, "stored events could not be decoded")
	require.Contains(t, out, `"room_id":"!room:example.org"`)
	require.Contains(t, out, `"skipped":1`)
	require.Contains(t, out, `"total":2`)
}

func TestSummarizeMissingFile(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "summarize", filepath.Join(env.dir, "missing.json"))
	require.Error(t, err)
}

func TestImportGroupsAndLatest(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "room.json", roomDoc)

	out, err := env.run(t, "import", path)
	require.NoError(t, err)
	require.Contains(t, out, "Imported 8 events into !room:example.org")

	out, err = env.run(t, "rooms")
	require.NoError(t, err)
	require.Contains(t, out, "!room:example.org")

	out, err = env.run(t, "--json", "groups", "--room", "!room:example.org")
	require.NoError(t, err)
	var groups []groupRow
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	require.Len(t, groups, 2)
	require.Equal(t, "Bob, Carol, and Dave joined", groups[0].Summary)

	out, err = env.run(t, "groups", "--room", "!room:example.org", "--latest")
	require.NoError(t, err)
	require.Contains(t, out, "Frank joined and left, joined")
}

func TestGroupsUnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "groups", "--room", "!nope:example.org")
	require.Error(t, err)
	require.Contains(t, err.Error(), "room not found")
}

func TestRoomContextSelectsDefaultRoom(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "room.yaml", roomYAML)

	_, err := env.run(t, "groups")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no room given")

	out, err := env.run(t, "room", "use", "!other:example.org", "--name", "Other")
	require.NoError(t, err)
	require.Contains(t, out, "room:Other (!other:example.org)")

	// An explicit document room wins over the selected one.
	_, err = env.run(t, "import", path)
	require.NoError(t, err)
	out, err = env.run(t, "groups", "--room", "!yaml:example.org")
	require.NoError(t, err)
	require.Contains(t, out, "Bob joined and left")

	out, err = env.run(t, "room", "show")
	require.NoError(t, err)
	require.Contains(t, out, "!other:example.org")

	_, err = env.run(t, "room", "clear")
	require.NoError(t, err)
	out, err = env.run(t, "room", "show")
	require.NoError(t, err)
	require.Contains(t, out, "(no room selected)")
}

func TestViewRequiresTerminal(t *testing.T) {
	testutil.SkipIfTerminal(t)
	env := newTestEnv(t)
	path := env.writeFile(t, "room.json", roomDoc)
	_, err := env.run(t, "view", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "interactive terminal")
}

func TestInvalidConfigFails(t *testing.T) {
	bad := testutil.WriteFile(t, "bad.yaml", "grouping:\n  max_avatars: 0\n")
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd("test", &stdout, &stderr)
	cmd.SetArgs([]string{"--config", bad, "rooms"})
	require.Error(t, cmd.Execute())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, []string{"A", "LONG"}, [][]string{
		{"\x1b[1mxx\x1b[0m", "1"},
		{"日本", "22"},
	})
	require.NoError(t, err)
	require.Equal(t, "A     LONG\n\x1b[1mxx\x1b[0m    1\n日本  22\n", buf.String())
}
