package mcpserver

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/jera/internal/bundle"
	"github.com/starford/jera/internal/postservice"
	"github.com/starford/jera/internal/storage"
	"github.com/starford/jera/internal/testutil"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, store := testutil.TestContentRoot(t)
	db := testutil.TestDB(t)
	svc := postservice.NewService(store, db, bundle.DefaultLayout())
	return New(svc, store), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_posts":
		result, err = srv.searchPosts(ctx, req)
	case "read_post":
		result, err = srv.readPost(ctx, req)
	case "create_post":
		result, err = srv.createPost(ctx, req)
	case "list_posts":
		result, err = srv.listPosts(ctx, req)
	case "check_bundle":
		result, err = srv.checkBundle(ctx, req)
	case "migrate_post":
		result, err = srv.migratePost(ctx, req)
	case "upload_asset":
		result, err = srv.uploadAsset(ctx, req)
	case "get_post_contract":
		result, err = srv.getPostContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadPost(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_post", map[string]interface{}{
		"title": "Test Post",
		"date":  "2025-11-01",
		"body":  "Hello.\n",
	})
	text := resultText(r)
	if text != "created: 2025-11-01-test-post/index.md" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_post", map[string]interface{}{
		"path": "2025-11-01-test-post/index.md",
	})
	text = resultText(r)
	if !strings.Contains(text, "title: Test Post") || !strings.Contains(text, "Hello.") {
		t.Errorf("read result = %q", text)
	}
}

func TestCreatePost_Duplicate(t *testing.T) {
	srv, _ := testServer(t)
	args := map[string]interface{}{"title": "Dup", "date": "2025-11-01"}

	if r := callTool(t, srv, "create_post", args); r.IsError {
		t.Fatalf("first create failed: %s", resultText(r))
	}
	if r := callTool(t, srv, "create_post", args); !r.IsError {
		t.Error("expected error for duplicate bundle")
	}
}

func TestListPosts(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_post", map[string]interface{}{"title": "A", "date": "2025-11-01"})
	callTool(t, srv, "create_post", map[string]interface{}{"title": "B", "date": "2025-11-02"})

	r := callTool(t, srv, "list_posts", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "2025-11-01-a/index.md") || !strings.Contains(text, "2025-11-02-b/index.md") {
		t.Errorf("list = %q", text)
	}
}

func TestReadPostMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_post", map[string]interface{}{"path": "2025-01-01-nope/index.md"})
	if !r.IsError {
		t.Error("expected error for missing post")
	}
}

func TestCheckBundle(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_post", map[string]interface{}{
		"title": "Broken",
		"date":  "2025-11-01",
		"body":  "![x](images/gone.png)\n",
	})

	r := callTool(t, srv, "check_bundle", map[string]interface{}{"bundle": "2025-11-01-broken"})
	text := resultText(r)
	if !strings.Contains(text, "images/gone.png") || !strings.Contains(text, "missing") {
		t.Errorf("check = %q", text)
	}
}

func TestMigratePost(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("old.md", []byte("---\ntitle: Old\ndate: 2021-05-05\n---\nx\n"))

	r := callTool(t, srv, "migrate_post", map[string]interface{}{"path": "old.md"})
	text := resultText(r)
	if text != "migrated: old.md -> 2021-05-05-old" {
		t.Errorf("migrate result = %q", text)
	}
}

func TestUploadAsset_DataURI(t *testing.T) {
	srv, store := testServer(t)
	callTool(t, srv, "create_post", map[string]interface{}{"title": "Pics", "date": "2025-11-01"})

	// Minimal valid PNG header so magic-byte validation passes.
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "upload_asset", map[string]interface{}{
		"bundle":   "2025-11-01-pics",
		"url":      uri,
		"filename": "dot.png",
	})
	if r.IsError {
		t.Fatalf("upload failed: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"ref":"images/dot.png"`) {
		t.Errorf("upload result = %q", text)
	}
	if !strings.Contains(text, "![dot.png](images/dot.png)") {
		t.Errorf("markdownImage not bundle-relative: %q", text)
	}
	if !store.Exists("2025-11-01-pics/images/dot.png") {
		t.Error("asset not written into bundle assets dir")
	}
}

func TestUploadAsset_UnknownBundle(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "upload_asset", map[string]interface{}{
		"bundle": "2025-01-01-ghost",
		"url":    "data:image/png;base64,AAAA",
	})
	if !r.IsError {
		t.Error("expected error for unknown bundle")
	}
}

func TestGetPostContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_post_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "images/") || !strings.Contains(text, "bundle-relative") {
		t.Errorf("contract = %q...", text[:80])
	}
}
