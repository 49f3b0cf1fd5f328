package notion_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Sternrassler/notion-graph/internal/testutil"
	"github.com/Sternrassler/notion-graph/pkg/client"
	"github.com/Sternrassler/notion-graph/pkg/notion"
)

func newAPI(t *testing.T, mock *testutil.MockNotion) *notion.API {
	t.Helper()
	api, err := mock.NewAPI()
	if err != nil {
		t.Fatalf("NewAPI() error = %v", err)
	}
	return api
}

func TestAPI_Page(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()
	mock.AddPage(testutil.Page("p1", "Home"))

	api := newAPI(t, mock)
	page, err := api.Page(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if page.ID != "p1" || page.Title() != "Home" {
		t.Errorf("Page() = %s %q", page.ID, page.Title())
	}
	if got := mock.LastRequestHeader.Get("Authorization"); got != "Bearer "+testutil.TestToken {
		t.Errorf("Authorization = %q", got)
	}
}

func TestAPI_PageNotFound(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	api := newAPI(t, mock)
	_, err := api.Page(context.Background(), "missing")
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("Page() error = %v, want ErrNotFound", err)
	}
	if got := mock.Calls("/v1/pages/missing"); got != 1 {
		t.Errorf("calls = %d, want 1 (not retried)", got)
	}
}

func TestAPI_ChildrenFollowsCursors(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()
	mock.PageSize = 2

	var blocks []map[string]any
	for i := 0; i < 5; i++ {
		blocks = append(blocks, testutil.Paragraph(fmt.Sprintf("b%d", i), testutil.Text("x")))
	}
	mock.SetChildren("p1", blocks...)

	api := newAPI(t, mock)
	got, err := api.Children(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i, b := range got {
		if want := fmt.Sprintf("b%d", i); b.ID != want {
			t.Errorf("block[%d] = %s, want %s", i, b.ID, want)
		}
	}
	if calls := mock.Calls("/v1/blocks/p1/children"); calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestAPI_AllBlocksDepthFirst(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()

	mock.SetChildren("root",
		testutil.Toggle("t1", "outer"),
		testutil.ChildPage("sub", "Sub"),
		testutil.Table("tbl", 2),
		testutil.Paragraph("p-last", testutil.Text("end")),
	)
	mock.SetChildren("t1", testutil.Paragraph("t1-a", testutil.Text("inner")))
	mock.SetChildren("sub", testutil.Paragraph("sub-a", testutil.Text("not mine")))
	mock.SetChildren("tbl", testutil.TableRow("row1", []map[string]any{testutil.Text("c")}))

	api := newAPI(t, mock)
	got, err := api.AllBlocks(context.Background(), "root")
	if err != nil {
		t.Fatalf("AllBlocks() error = %v", err)
	}

	var ids []string
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	want := "t1,t1-a,sub,tbl,p-last"
	if strings.Join(ids, ",") != want {
		t.Errorf("AllBlocks() = %s, want %s", strings.Join(ids, ","), want)
	}
	if mock.Calls("/v1/blocks/sub/children") != 0 {
		t.Error("descended into child page")
	}
	if mock.Calls("/v1/blocks/tbl/children") != 0 {
		t.Error("descended into table")
	}
}

func TestAPI_QueryDatabasePaginates(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()
	mock.PageSize = 1
	mock.AddDatabase(testutil.Database("db1", "Tasks"),
		testutil.Item("db1", "i1", "One"),
		testutil.Item("db1", "i2", "Two"),
		testutil.Item("db1", "i3", "Three"),
	)

	api := newAPI(t, mock)
	items, err := api.QueryDatabase(context.Background(), "db1")
	if err != nil {
		t.Fatalf("QueryDatabase() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[2].Title() != "Three" {
		t.Errorf("items[2].Title() = %q", items[2].Title())
	}

	bodies := mock.Bodies("/v1/databases/db1/query")
	if len(bodies) != 3 {
		t.Fatalf("query requests = %d, want 3", len(bodies))
	}
	if strings.Contains(bodies[0], "start_cursor") {
		t.Errorf("first query sent a cursor: %s", bodies[0])
	}
	if !strings.Contains(bodies[1], `"start_cursor":"1"`) {
		t.Errorf("second query body = %s", bodies[1])
	}
}

func TestAPI_Database(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()
	mock.AddDatabase(testutil.Database("db1", "Tasks"))

	api := newAPI(t, mock)
	db, err := api.Database(context.Background(), "db1")
	if err != nil {
		t.Fatalf("Database() error = %v", err)
	}
	if db.TitleText() != "Tasks" {
		t.Errorf("TitleText() = %q", db.TitleText())
	}
	if _, ok := db.Properties["Name"]; !ok {
		t.Error("schema missing Name column")
	}
}

func TestAPI_Users(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()
	mock.PageSize = 1
	mock.AddUsers(testutil.User("u1", "Ada"), testutil.User("u2", "Grace"))

	api := newAPI(t, mock)
	users, err := api.Users(context.Background())
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	if len(users) != 2 || users[1].Name != "Grace" {
		t.Errorf("Users() = %+v", users)
	}
}

func TestAPI_DownloadSendsNoCredentials(t *testing.T) {
	mock := testutil.NewMockNotion()
	defer mock.Close()
	mock.AddFile("a.bin", []byte{0, 1, 2})

	api := newAPI(t, mock)
	data, err := api.Download(context.Background(), mock.FileURL("a.bin"))
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if len(data) != 3 {
		t.Errorf("len = %d, want 3", len(data))
	}
	if got := mock.LastRequestHeader.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
}

func TestPaginate_CursorLoop(t *testing.T) {
	cursor := "same"
	_, err := notion.Paginate(context.Background(), func(ctx context.Context, c string) (*notion.List[int], error) {
		return &notion.List[int]{Results: []int{1}, HasMore: true, NextCursor: &cursor}, nil
	})
	if !errors.Is(err, notion.ErrCursorLoop) {
		t.Fatalf("Paginate() error = %v, want ErrCursorLoop", err)
	}
}
