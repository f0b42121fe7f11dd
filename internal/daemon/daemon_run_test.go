package daemon

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/logging"
	"github.com/MatthewUtzig/lightcode/internal/runners"
	"github.com/MatthewUtzig/lightcode/internal/store"
)

func TestDaemonRunStopsOnContextCancel(t *testing.T) {
	d := New("127.0.0.1:0", "token", "test", engine.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestNewEngineWiresRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := store.OpenRepository(store.RepositoryPaths{
		SessionsPath: filepath.Join(dir, "sessions.json"),
		EventsDir:    filepath.Join(dir, "events"),
	}, store.RepositoryBackendFile)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	eng := NewEngine(repo, runners.Echo{}, logging.Nop())
	id := eng.StartSession()
	result := eng.SubmitTurn(context.Background(), id, []byte(`{"type":"control","command":"stop"}`))
	if result.Status != engine.StatusOK {
		t.Fatalf("submit = %+v", result)
	}

	ctx := context.Background()
	record, ok, err := repo.Sessions().Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("get record: ok=%v err=%v", ok, err)
	}
	if record.Events != 2 {
		t.Fatalf("record events = %d, want 2", record.Events)
	}

	logged, err := repo.Events().List(ctx, id)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(logged) != 2 {
		t.Fatalf("logged events = %d, want 2", len(logged))
	}
}
