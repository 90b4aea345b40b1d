package bundle

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/jera/internal/apperr"
	"github.com/starford/jera/internal/storage"
)

func tempStore(t *testing.T) storage.Provider {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return store
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"My Post Title", "my-post-title"},
		{"Hello, World!", "hello-world"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"Already-Hyphenated--Twice", "already-hyphenated-twice"},
		{"CamelCase2025", "camelcase2025"},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := Slug(c.in); got != c.want {
			t.Errorf("Slug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestName_Deterministic(t *testing.T) {
	d := date(t, "2025-11-01")
	want := "2025-11-01-my-post-title"
	for i := 0; i < 3; i++ {
		if got := Name("My Post Title", d); got != want {
			t.Fatalf("Name = %q, want %q", got, want)
		}
	}
}

func TestParseName(t *testing.T) {
	d, slug, ok := ParseName("2025-11-01-my-post-title")
	if !ok {
		t.Fatal("expected ok")
	}
	if slug != "my-post-title" {
		t.Errorf("slug = %q", slug)
	}
	if d.Format("2006-01-02") != "2025-11-01" {
		t.Errorf("date = %v", d)
	}

	bad := []string{"my-post-title", "2025-11-01-", "2025-13-99-x", "notes", "2025-11-01-My-Post"}
	for _, b := range bad {
		if IsBundleName(b) {
			t.Errorf("IsBundleName(%q) = true, want false", b)
		}
	}
}

func TestCreate_ScaffoldsEntryAndAssets(t *testing.T) {
	store := tempStore(t)
	l := DefaultLayout()

	dir, err := Create(store, l, Meta{
		Title: "My Post Title",
		Date:  date(t, "2025-11-01"),
		Tags:  []string{"go", "blog"},
	}, "First words.\n")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dir != "2025-11-01-my-post-title" {
		t.Errorf("dir = %q", dir)
	}

	data, err := store.Read("2025-11-01-my-post-title/index.md")
	if err != nil {
		t.Fatalf("entry document missing: %v", err)
	}
	doc := string(data)
	if !strings.HasPrefix(doc, "---\n") {
		t.Errorf("entry does not start with frontmatter: %q", doc)
	}
	for _, want := range []string{"title: My Post Title", "date: \"2025-11-01\"", "draft: false", "First words."} {
		if !strings.Contains(doc, want) {
			t.Errorf("entry missing %q:\n%s", want, doc)
		}
	}
	if !store.Exists("2025-11-01-my-post-title/images") {
		t.Error("asset directory was not created")
	}
}

func TestCreate_Collision(t *testing.T) {
	store := tempStore(t)
	l := DefaultLayout()
	meta := Meta{Title: "Same Day Same Slug", Date: date(t, "2025-11-01")}

	if _, err := Create(store, l, meta, "one"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := Create(store, l, meta, "two")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	// First bundle must be untouched.
	data, _ := store.Read("2025-11-01-same-day-same-slug/index.md")
	if !strings.Contains(string(data), "one") {
		t.Error("existing bundle was overwritten")
	}
}

func TestCreate_EmptySlug(t *testing.T) {
	store := tempStore(t)
	if _, err := Create(store, DefaultLayout(), Meta{Title: "???", Date: time.Now()}, ""); err == nil {
		t.Error("expected error for title with empty slug")
	}
}

func TestMigrate_FlatPost(t *testing.T) {
	store := tempStore(t)
	l := DefaultLayout()
	content := []byte("---\ntitle: Old Post\ndate: 2020-03-14\n---\n\nLegacy body.\n")
	if err := store.Write("old-post.md", content); err != nil {
		t.Fatal(err)
	}

	dir, err := Migrate(store, l, "old-post.md")
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if dir != "2020-03-14-old-post" {
		t.Errorf("dir = %q", dir)
	}
	got, err := store.Read("2020-03-14-old-post/index.md")
	if err != nil {
		t.Fatalf("entry not moved: %v", err)
	}
	if string(got) != string(content) {
		t.Error("content changed during migration")
	}
	if store.Exists("old-post.md") {
		t.Error("flat post still present after migration")
	}
	if !store.Exists("2020-03-14-old-post/images") {
		t.Error("asset directory not created")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := tempStore(t)
	l := DefaultLayout()
	content := []byte("---\ntitle: Old Post\ndate: 2020-03-14\n---\nbody\n")
	_ = store.Write("old-post.md", content)

	if _, err := Migrate(store, l, "old-post.md"); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}

	// Second run on the already-converted entry path: no-op error.
	_, err := Migrate(store, l, "2020-03-14-old-post/index.md")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	// No data loss.
	got, readErr := store.Read("2020-03-14-old-post/index.md")
	if readErr != nil || string(got) != string(content) {
		t.Error("migrated content damaged by second run")
	}

	// A fresh flat post colliding with the existing bundle also refuses.
	_ = store.Write("old-post.md", content)
	_, err = Migrate(store, l, "old-post.md")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestMigrate_FilenameFallbacks(t *testing.T) {
	store := tempStore(t)
	l := DefaultLayout()
	// No frontmatter at all: date comes from the filename prefix, slug
	// from the remaining stem.
	_ = store.Write("2019-07-01-summer-trip.md", []byte("Just a body.\n"))

	dir, err := Migrate(store, l, "2019-07-01-summer-trip.md")
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if dir != "2019-07-01-summer-trip" {
		t.Errorf("dir = %q", dir)
	}
}

func TestMigrate_RejectsNonFlat(t *testing.T) {
	store := tempStore(t)
	_ = store.Write("some/nested.md", []byte("x"))
	_, err := Migrate(store, DefaultLayout(), "some/nested.md")
	if !errors.Is(err, apperr.ErrNotBundle) {
		t.Fatalf("err = %v, want ErrNotBundle", err)
	}
}

func TestMigrate_MissingFile(t *testing.T) {
	store := tempStore(t)
	_, err := Migrate(store, DefaultLayout(), "ghost.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
