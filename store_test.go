package postgate

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "posts.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPost() BlogPost {
	return BlogPost{
		Title:    "Test Post",
		Category: "Development",
		Excerpt:  "A test excerpt",
		Content:  "Test content body",
		Author:   "Test Author",
		Date:     "2026-01-15",
		Image:    "/public/uploads/test.jpg",
	}
}

func TestSavePostAssignsID(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.SavePost(testPost())
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if id == "" {
		t.Fatal("SavePost should assign an ID to a new post")
	}

	got, err := s.GetPost(id)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID = %q, want %q", got.ID, id)
	}
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)

	post := testPost()
	id, err := s.SavePost(post)
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.GetPost(id)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if got.Title != post.Title {
		t.Errorf("Title = %q, want %q", got.Title, post.Title)
	}
	if got.Category != post.Category {
		t.Errorf("Category = %q, want %q", got.Category, post.Category)
	}
	if got.Excerpt != post.Excerpt {
		t.Errorf("Excerpt = %q, want %q", got.Excerpt, post.Excerpt)
	}
	if got.Content != post.Content {
		t.Errorf("Content = %q, want %q", got.Content, post.Content)
	}
	if got.Author != post.Author {
		t.Errorf("Author = %q, want %q", got.Author, post.Author)
	}
	if got.Date != post.Date {
		t.Errorf("Date = %q, want %q", got.Date, post.Date)
	}
	if got.Image != post.Image {
		t.Errorf("Image = %q, want %q", got.Image, post.Image)
	}
}

func TestSavePostReplacesWholesale(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.SavePost(testPost())
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	updated := testPost()
	updated.ID = id
	updated.Title = "Updated Title"
	updated.Category = "Marketing"
	if _, err := s.SavePost(updated); err != nil {
		t.Fatalf("SavePost update failed: %v", err)
	}

	got, err := s.GetPost(id)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Updated Title" {
		t.Errorf("Title = %q, want %q", got.Title, "Updated Title")
	}
	if got.Category != "Marketing" {
		t.Errorf("Category = %q, want %q", got.Category, "Marketing")
	}

	posts, err := s.ListPosts("")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("post count = %d, want 1 (replace, not duplicate)", len(posts))
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetPost("nonexistent")
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListPostsOrderedByDateDesc(t *testing.T) {
	s := setupTestStore(t)

	dates := []string{"2026-01-01", "2026-03-01", "2026-02-01"}
	for _, d := range dates {
		p := testPost()
		p.Date = d
		if _, err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	got, err := s.ListPosts("")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListPosts count = %d, want 3", len(got))
	}
	if got[0].Date != "2026-03-01" || got[2].Date != "2026-01-01" {
		t.Errorf("posts not ordered by date desc: %q, %q, %q", got[0].Date, got[1].Date, got[2].Date)
	}
}

func TestListPostsByCategory(t *testing.T) {
	s := setupTestStore(t)

	for _, cat := range []string{"Design", "Design", "Technology"} {
		p := testPost()
		p.Category = cat
		if _, err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	got, err := s.ListPosts("Design")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListPosts(Design) count = %d, want 2", len(got))
	}

	got, err = s.ListPosts("Business")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListPosts(Business) count = %d, want 0", len(got))
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.SavePost(testPost())
	if err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	if err := s.DeletePost(id); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetPost(id); err != sql.ErrNoRows {
		t.Errorf("post should not exist after delete, got err: %v", err)
	}

	// Deleting a missing post is not an error.
	if err := s.DeletePost("nonexistent"); err != nil {
		t.Errorf("DeletePost on nonexistent should not error, got: %v", err)
	}
}

func TestImageMetadataCRUD(t *testing.T) {
	s := setupTestStore(t)

	img := Image{
		Filename:     "hero.jpg",
		OriginalName: "Hero Shot.png",
		Width:        1200,
		Height:       630,
		Size:         123456,
		UploadedAt:   "2026-01-15T10:00:00Z",
	}
	if err := s.SaveImage(img); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	images, err := s.ListImages()
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("ListImages count = %d, want 1", len(images))
	}
	if images[0] != img {
		t.Errorf("ListImages[0] = %+v, want %+v", images[0], img)
	}

	if err := s.DeleteImage("hero.jpg"); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	images, err = s.ListImages()
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("ListImages count after delete = %d, want 0", len(images))
	}
}
