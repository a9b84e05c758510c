package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"threadview/models"
)

func newTestStore(t *testing.T) *StagedStore {
	t.Helper()
	store, err := NewStagedStore(filepath.Join(t.TempDir(), "staged.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func staged(id, name string, content []byte) models.StagedAttachment {
	return models.StagedAttachment{
		AttachmentDescriptor: models.AttachmentDescriptor{
			ID: id, Filename: name, Size: int64(len(content)), ContentType: "text/plain",
		},
		Content: content,
	}
}

func TestStagedStore_PutListRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("alice", staged("a1", "one.txt", []byte("hello"))); err != nil {
		t.Fatal(err)
	}
	if err := store.Put("alice", staged("a2", "two.txt", []byte("world"))); err != nil {
		t.Fatal(err)
	}

	out, err := store.List("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("%d attachments, want 2", len(out))
	}
	byID := map[string]models.StagedAttachment{}
	for _, a := range out {
		byID[a.ID] = a
	}
	if !bytes.Equal(byID["a1"].Content, []byte("hello")) {
		t.Errorf("content lost: %q", byID["a1"].Content)
	}
	if byID["a2"].Filename != "two.txt" || byID["a2"].Size != 5 {
		t.Errorf("descriptor wrong: %+v", byID["a2"].AttachmentDescriptor)
	}
}

func TestStagedStore_OwnersIsolated(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("alice", staged("a1", "a.txt", []byte("x"))); err != nil {
		t.Fatal(err)
	}
	if err := store.Put("bob", staged("b1", "b.txt", []byte("y"))); err != nil {
		t.Fatal(err)
	}

	bobList, err := store.List("bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(bobList) != 1 || bobList[0].ID != "b1" {
		t.Errorf("bob sees %+v", bobList)
	}

	if err := store.Clear("alice"); err != nil {
		t.Fatal(err)
	}
	if count, _ := store.Count("bob"); count != 1 {
		t.Error("clearing alice touched bob's attachments")
	}
}

func TestStagedStore_Count(t *testing.T) {
	store := newTestStore(t)

	if count, err := store.Count("nobody"); err != nil || count != 0 {
		t.Errorf("count=%d err=%v for unknown owner", count, err)
	}
	store.Put("alice", staged("a1", "a.txt", []byte("x")))
	store.Put("alice", staged("a2", "b.txt", []byte("y")))
	if count, _ := store.Count("alice"); count != 2 {
		t.Errorf("count=%d, want 2", count)
	}
}

func TestStagedStore_Delete(t *testing.T) {
	store := newTestStore(t)

	store.Put("alice", staged("a1", "a.txt", []byte("x")))
	if err := store.Delete("alice", "a1"); err != nil {
		t.Fatal(err)
	}
	if count, _ := store.Count("alice"); count != 0 {
		t.Error("attachment survived deletion")
	}

	// Deleting what does not exist is not an error.
	if err := store.Delete("alice", "ghost"); err != nil {
		t.Errorf("delete of missing id: %v", err)
	}
	if err := store.Delete("nobody", "a1"); err != nil {
		t.Errorf("delete for unknown owner: %v", err)
	}
}

func TestStagedStore_ClearThenList(t *testing.T) {
	store := newTestStore(t)

	store.Put("alice", staged("a1", "a.txt", []byte("x")))
	if err := store.Clear("alice"); err != nil {
		t.Fatal(err)
	}
	out, err := store.List("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("%d attachments after clear", len(out))
	}
	// Clearing an already-empty owner is a no-op.
	if err := store.Clear("alice"); err != nil {
		t.Errorf("second clear: %v", err)
	}
}
