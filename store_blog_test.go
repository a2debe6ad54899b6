package harvestbook

import "testing"

func TestPublishedAtTracksStatus(t *testing.T) {
	s := setupTestStore(t)
	e := mustCreateEvent(t, s, 2023)
	u := mustCreateUser(t, s, "bob", "bob@x.com", RoleUser)

	// Draft: no published_at.
	post, err := s.CreateBlogPost(BlogPost{EventID: e.ID, UserID: &u.ID, Title: "Draft", Status: StatusDraft})
	if err != nil {
		t.Fatalf("CreateBlogPost failed: %v", err)
	}
	if post.PublishedAt != nil {
		t.Error("draft should have nil PublishedAt")
	}

	// Publish: stamps published_at.
	post.Status = StatusPublished
	post, err = s.UpdateBlogPost(post)
	if err != nil {
		t.Fatalf("UpdateBlogPost failed: %v", err)
	}
	if post.PublishedAt == nil {
		t.Fatal("published post should have PublishedAt set")
	}
	firstPublished := *post.PublishedAt

	// Staying published keeps the original timestamp.
	post.Title = "Edited"
	post, err = s.UpdateBlogPost(post)
	if err != nil {
		t.Fatalf("UpdateBlogPost failed: %v", err)
	}
	if post.PublishedAt == nil || !post.PublishedAt.Equal(firstPublished) {
		t.Errorf("PublishedAt changed on edit: %v, want %v", post.PublishedAt, firstPublished)
	}

	// Unpublish: clears published_at.
	post.Status = StatusDraft
	post, err = s.UpdateBlogPost(post)
	if err != nil {
		t.Fatalf("UpdateBlogPost failed: %v", err)
	}
	if post.PublishedAt != nil {
		t.Error("unpublished post should have nil PublishedAt")
	}

	// Invariant holds on a fresh read.
	got, err := s.GetBlogPost(post.ID)
	if err != nil {
		t.Fatalf("GetBlogPost failed: %v", err)
	}
	if (got.Status == StatusPublished) != (got.PublishedAt != nil) {
		t.Errorf("invariant violated: status=%s published_at=%v", got.Status, got.PublishedAt)
	}
}

func TestCreatePublishedStampsImmediately(t *testing.T) {
	s := setupTestStore(t)
	e := mustCreateEvent(t, s, 2023)

	post, err := s.CreateBlogPost(BlogPost{EventID: e.ID, Title: "Live", Status: StatusPublished})
	if err != nil {
		t.Fatalf("CreateBlogPost failed: %v", err)
	}
	if post.PublishedAt == nil {
		t.Error("creating as published should stamp PublishedAt")
	}
}

func TestListEventBlogPostsPublishedOnly(t *testing.T) {
	s := setupTestStore(t)
	e := mustCreateEvent(t, s, 2023)

	for _, st := range []PostStatus{StatusPublished, StatusDraft, StatusPublished} {
		if _, err := s.CreateBlogPost(BlogPost{EventID: e.ID, Title: "p", Status: st}); err != nil {
			t.Fatalf("CreateBlogPost failed: %v", err)
		}
	}

	published, err := s.ListEventBlogPosts(e.ID, true)
	if err != nil {
		t.Fatalf("ListEventBlogPosts failed: %v", err)
	}
	if len(published) != 2 {
		t.Errorf("published count = %d, want 2", len(published))
	}
	all, err := s.ListEventBlogPosts(e.ID, false)
	if err != nil {
		t.Fatalf("ListEventBlogPosts failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all count = %d, want 3", len(all))
	}
}

func TestSearchBlogPosts(t *testing.T) {
	s := setupTestStore(t)
	e := mustCreateEvent(t, s, 2023)

	posts := []BlogPost{
		{EventID: e.ID, Title: "Turkey Day Recap", Content: "the bird was dry", Tags: []string{"Turkey", "recap"}, Status: StatusPublished},
		{EventID: e.ID, Title: "Pie Notes", Content: "pumpkin wins again", Tags: []string{"pie"}, Status: StatusPublished},
		{EventID: e.ID, Title: "Secret Draft", Content: "turkey turkey turkey", Tags: []string{"turkey"}, Status: StatusDraft},
	}
	for _, p := range posts {
		if _, err := s.CreateBlogPost(p); err != nil {
			t.Fatalf("CreateBlogPost failed: %v", err)
		}
	}

	// Tag filter is case-insensitive and excludes drafts.
	got, err := s.SearchBlogPosts("TURKEY", "")
	if err != nil {
		t.Fatalf("SearchBlogPosts failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Turkey Day Recap" {
		t.Errorf("tag search = %+v, want only Turkey Day Recap", got)
	}

	// Full-text matches title or content.
	got, err = s.SearchBlogPosts("", "pumpkin")
	if err != nil {
		t.Fatalf("SearchBlogPosts failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Pie Notes" {
		t.Errorf("text search = %+v, want only Pie Notes", got)
	}

	// Combined.
	got, err = s.SearchBlogPosts("turkey", "pumpkin")
	if err != nil {
		t.Fatalf("SearchBlogPosts failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("combined search = %+v, want none", got)
	}
}

func TestListBlogTags(t *testing.T) {
	s := setupTestStore(t)
	e := mustCreateEvent(t, s, 2023)

	if _, err := s.CreateBlogPost(BlogPost{EventID: e.ID, Title: "a", Tags: []string{"Pie", "turkey"}, Status: StatusPublished}); err != nil {
		t.Fatalf("CreateBlogPost failed: %v", err)
	}
	if _, err := s.CreateBlogPost(BlogPost{EventID: e.ID, Title: "b", Tags: []string{"pie", "sides"}, Status: StatusPublished}); err != nil {
		t.Fatalf("CreateBlogPost failed: %v", err)
	}
	if _, err := s.CreateBlogPost(BlogPost{EventID: e.ID, Title: "c", Tags: []string{"hidden"}, Status: StatusDraft}); err != nil {
		t.Fatalf("CreateBlogPost failed: %v", err)
	}

	tags, err := s.ListBlogTags()
	if err != nil {
		t.Fatalf("ListBlogTags failed: %v", err)
	}
	want := []string{"pie", "sides", "turkey"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{",", nil},
		{",pie,", []string{"pie"}},
		{",pie,turkey,", []string{"pie", "turkey"}},
		{",pie, turkey ,sides,", []string{"pie", "turkey", "sides"}},
	}

	for _, tt := range tests {
		got := parseTags(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("parseTags(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseTags(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}
