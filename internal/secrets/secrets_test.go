package secrets

import (
	"context"
	"testing"
)

func TestFileStore_PutThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	if err := store.PutToken(ctx, "github", "ghp_example"); err != nil {
		t.Fatalf("PutToken failed: %v", err)
	}
	token, err := store.GetToken(ctx, "github")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if token != "ghp_example" {
		t.Errorf("expected ghp_example, got %q", token)
	}
}

func TestFileStore_GetTokenMissingReturnsError(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if _, err := store.GetToken(context.Background(), "github"); err == nil {
		t.Fatal("expected an error for a missing token")
	}
}

func TestFileStore_ReachableFalseBeforeAnyWrite(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	if store.Reachable(context.Background()) {
		t.Error("expected unreachable before the secrets directory is created")
	}
	if err := store.PutToken(context.Background(), "github", "tok"); err != nil {
		t.Fatalf("PutToken failed: %v", err)
	}
	if !store.Reachable(context.Background()) {
		t.Error("expected reachable after the secrets directory exists")
	}
}

func TestOpen_SelectsFileStoreByDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := Open("", dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := store.(*FileStore); !ok {
		t.Errorf("expected a *FileStore, got %T", store)
	}
}

func TestOpen_RejectsUnknownProvider(t *testing.T) {
	if _, err := Open("carrier-pigeon", t.TempDir()); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}
