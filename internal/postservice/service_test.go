package postservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/bundle"
	"github.com/starford/jera/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestContentRoot(t)
	db := testutil.TestDB(t)
	return NewService(store, db, bundle.DefaultLayout())
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreatePost_ScaffoldsAndIndexes(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	detail, err := svc.CreatePost(ctx, CreateInput{
		Title: "My Post Title",
		Date:  mustDate(t, "2025-11-01"),
		Tags:  []string{"go"},
		Body:  "Hello.\n",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if detail.Path != "2025-11-01-my-post-title/index.md" {
		t.Errorf("path = %q", detail.Path)
	}
	if detail.Bundle != "2025-11-01-my-post-title" {
		t.Errorf("bundle = %q", detail.Bundle)
	}
	if detail.Title != "My Post Title" || detail.Date != "2025-11-01" {
		t.Errorf("detail = %+v", detail)
	}

	items, total, err := svc.ListPosts(ctx, 10, 0, "", "", "")
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if total != 1 || items[0].Path != detail.Path {
		t.Errorf("list = %v total = %d", items, total)
	}
}

func TestCreatePost_Collision(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	in := CreateInput{Title: "Dup", Date: mustDate(t, "2025-11-01")}

	if _, err := svc.CreatePost(ctx, in); err != nil {
		t.Fatalf("first CreatePost: %v", err)
	}
	_, err := svc.CreatePost(ctx, in)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	svc := testService(t)
	_, err := svc.GetPost(context.Background(), "2025-01-01-nope/index.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePost_OptimisticConcurrency(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	detail, err := svc.CreatePost(ctx, CreateInput{Title: "Edit Me", Date: mustDate(t, "2025-11-01")})
	if err != nil {
		t.Fatal(err)
	}

	// Stale checksum rejected.
	_, err = svc.UpdatePost(ctx, detail.Path, []byte("new content"), "stale")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// Matching checksum accepted.
	updated, err := svc.UpdatePost(ctx, detail.Path, []byte("---\ntitle: Edit Me\n---\nnew content\n"), detail.Checksum)
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if !strings.Contains(updated.Content, "new content") {
		t.Errorf("content = %q", updated.Content)
	}
}

func TestDeletePost_RemovesBundle(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	detail, err := svc.CreatePost(ctx, CreateInput{Title: "Bye", Date: mustDate(t, "2025-11-01")})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeletePost(ctx, detail.Path); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if svc.store.Exists(detail.Bundle) {
		t.Error("bundle directory should be gone")
	}
	_, total, err := svc.ListPosts(ctx, 10, 0, "", "", "")
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
}

func TestMigratePost_ReindexesUnderNewPath(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	content := []byte("---\ntitle: Legacy\ndate: 2021-05-05\n---\nOld words.\n")
	_ = svc.store.Write("legacy.md", content)
	_ = svc.IndexFile("legacy.md", content)

	dir, err := svc.MigratePost(ctx, "legacy.md")
	if err != nil {
		t.Fatalf("MigratePost: %v", err)
	}
	if dir != "2021-05-05-legacy" {
		t.Errorf("dir = %q", dir)
	}

	if cs, _ := svc.db.GetChecksum("legacy.md"); cs != "" {
		t.Error("old index entry should be removed")
	}
	if cs, _ := svc.db.GetChecksum("2021-05-05-legacy/index.md"); cs == "" {
		t.Error("new entry should be indexed")
	}
}

func TestMigrateAll(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	_ = svc.store.Write("one.md", []byte("---\ntitle: One\ndate: 2020-01-01\n---\nx\n"))
	_ = svc.store.Write("two.md", []byte("---\ntitle: Two\ndate: 2020-02-02\n---\ny\n"))
	// Already a bundle; must be left alone.
	_, err := svc.CreatePost(ctx, CreateInput{Title: "Keep", Date: mustDate(t, "2025-11-01")})
	if err != nil {
		t.Fatal(err)
	}

	migrated, skipped, err := svc.MigrateAll(ctx)
	if err != nil {
		t.Fatalf("MigrateAll: %v", err)
	}
	if len(migrated) != 2 {
		t.Errorf("migrated = %v, want 2 bundles", migrated)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}
}

func TestCheckBundle_ReportsMissingAsset(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	detail, err := svc.CreatePost(ctx, CreateInput{
		Title: "Shots",
		Date:  mustDate(t, "2025-11-01"),
		Body:  "![alt](images/shot.png)\n",
	})
	if err != nil {
		t.Fatal(err)
	}

	rep, err := svc.CheckBundle(ctx, detail.Bundle)
	if err != nil {
		t.Fatalf("CheckBundle: %v", err)
	}
	if rep.OK() {
		t.Fatal("expected a missing-asset issue")
	}
	if rep.Issues[0].Ref != "images/shot.png" || rep.Issues[0].Kind != bundle.IssueMissing {
		t.Errorf("issue = %+v", rep.Issues[0])
	}

	// Add the asset; check passes.
	_ = svc.store.Write(detail.Bundle+"/images/shot.png", []byte{0x89, 'P', 'N', 'G'})
	rep, _ = svc.CheckBundle(ctx, detail.Bundle)
	if !rep.OK() {
		t.Errorf("issues = %v, want none", rep.Issues)
	}
}

func TestArchivePost_PreservesIntegrity(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	detail, err := svc.CreatePost(ctx, CreateInput{
		Title: "Keepsake",
		Date:  mustDate(t, "2025-11-01"),
		Body:  "![pic](images/pic.png)\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = svc.store.Write(detail.Bundle+"/images/pic.png", []byte{1})

	dest, err := svc.ArchivePost(ctx, detail.Bundle, "")
	if err != nil {
		t.Fatalf("ArchivePost: %v", err)
	}
	if dest != "archive/2025-11-01-keepsake" {
		t.Errorf("dest = %q", dest)
	}

	rep, err := svc.CheckBundle(ctx, dest)
	if err != nil {
		t.Fatalf("CheckBundle after archive: %v", err)
	}
	if !rep.OK() {
		t.Errorf("issues after archive = %v, want none", rep.Issues)
	}

	if cs, _ := svc.db.GetChecksum(detail.Path); cs != "" {
		t.Error("old index entry should be gone")
	}
	if cs, _ := svc.db.GetChecksum("archive/2025-11-01-keepsake/index.md"); cs == "" {
		t.Error("archived entry should be indexed")
	}
}
