package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/notion-graph/internal/testutil"
)

func TestCLI_ParseDefaults(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "secret_from_env")

	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"fetch", "abc123"})
	require.NoError(t, err)

	assert.Equal(t, "abc123", cli.Fetch.Root)
	assert.Equal(t, "secret_from_env", cli.Fetch.Token)
	assert.Equal(t, 50, cli.Fetch.Workers)
	assert.Equal(t, "https://api.notion.com/v1", cli.Fetch.BaseURL)
	assert.Equal(t, "info", cli.LogLevel)
}

func TestCLI_RejectsBadLogLevel(t *testing.T) {
	t.Setenv("NOTION_TOKEN", "x")

	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"})
	require.NoError(t, err)

	_, err = parser.Parse([]string{"--log-level", "chatty", "fetch", "abc"})
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOTION_GRAPH_TEST_VAR=from-file\n"), 0o600))

	t.Setenv("NOTION_GRAPH_TEST_VAR", "")
	os.Unsetenv("NOTION_GRAPH_TEST_VAR")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("NOTION_GRAPH_TEST_VAR"))

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, loadEnvFile(""))
}

func TestFetchCmd_WritesSummary(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.AddFile("diagram.png", []byte("12345"))
	mock.AddPage(testutil.Page("root", "Handbook"))
	mock.AddPage(testutil.Page("onboarding", "Onboarding"))
	mock.SetChildren("root",
		testutil.Paragraph("p1", testutil.Text("start with "), testutil.PageMention("onboarding"), testutil.PageMention("archived")),
		testutil.HostedFile("img", "image", mock.FileURL("diagram.png")),
		testutil.ChildDatabase("db", "Tasks"),
	)
	mock.AddDatabase(testutil.Database("db", "Tasks"), testutil.Item("db", "t1", "Write docs"))
	mock.AddUsers(testutil.User("u1", "Ada"))

	base := t.TempDir()
	cmd := &FetchCmd{
		Root:    "root",
		Token:   testutil.TestToken,
		BaseURL: mock.BaseURL(),
		Workers: 4,
		WorkDir: base,
		RunID:   "cli-test",
		Keep:    true,
	}

	var out bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), &out))

	var summary Summary
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &summary))

	assert.Equal(t, "cli-test", summary.RunID)
	assert.Equal(t, RootSummary{ID: "root", Kind: "page", Title: "Handbook"}, summary.Root)
	assert.Len(t, summary.Pages, 3)
	require.Len(t, summary.Collections, 1)
	assert.Equal(t, 1, summary.Collections[0].Items)
	assert.Equal(t, 1, summary.Attachments.Downloaded)
	assert.Equal(t, "5 B", summary.Attachments.Size)
	assert.Equal(t, 1, summary.Users.Known)
	assert.Contains(t, summary.Errors, "archived")
	assert.Equal(t, []string{"page:archived"}, summary.Unresolved)
	assert.DirExists(t, summary.WorkDir)
	assert.NotEmpty(t, summary.Metrics)
}

func TestFetchCmd_RootNotFound(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	cmd := &FetchCmd{
		Root:    "missing",
		Token:   testutil.TestToken,
		BaseURL: mock.BaseURL(),
		NoFiles: true,
		NoUsers: true,
	}

	var out bytes.Buffer
	err := cmd.run(context.Background(), &out)
	assert.ErrorContains(t, err, "root not found")
	assert.Zero(t, out.Len())
}
