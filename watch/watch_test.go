package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepnoodle-ai/memfs/vpath"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	resolver, err := vpath.NewResolver(t.TempDir(), "")
	require.NoError(t, err)
	w, err := New(resolver, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		w.Close()
		<-done
	})
	return w, resolver.Root()
}

// waitFor reads events until one matches path and op.
func waitFor(t *testing.T, w *Watcher, path vpath.VirtualPath, op Op) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-w.Events():
			require.True(t, ok, "event stream closed")
			if event.Path == path && event.Op == op {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s %s", op, path)
		}
	}
}

func TestWatcher(t *testing.T) {
	w, root := startWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("x"), 0o644))
	waitFor(t, w, "/memories/notes.md", OpCreate)

	require.NoError(t, os.Mkdir(filepath.Join(root, "projects"), 0o755))
	waitFor(t, w, "/memories/projects", OpCreate)

	require.NoError(t, os.WriteFile(filepath.Join(root, "projects", "plan.md"), []byte("x"), 0o644))
	waitFor(t, w, "/memories/projects/plan.md", OpCreate)

	require.NoError(t, os.Remove(filepath.Join(root, "notes.md")))
	waitFor(t, w, "/memories/notes.md", OpRemove)
}

func TestWatcher_IgnoresTempFiles(t *testing.T) {
	w, root := startWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".a.md.1234.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.md"), []byte("x"), 0o644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case event := <-w.Events():
			require.NotEqual(t, vpath.VirtualPath("/memories/.a.md.1234.tmp"), event.Path)
			if event.Path == "/memories/b.md" {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for b.md")
		}
	}
}

func TestVirtual(t *testing.T) {
	w := &Watcher{root: filepath.FromSlash("/srv/mem"), prefix: "/memories"}

	p, ok := w.virtual(filepath.FromSlash("/srv/mem/a/b.md"))
	require.True(t, ok)
	require.Equal(t, vpath.VirtualPath("/memories/a/b.md"), p)

	p, ok = w.virtual(filepath.FromSlash("/srv/mem"))
	require.True(t, ok)
	require.Equal(t, vpath.VirtualPath("/memories"), p)

	_, ok = w.virtual(filepath.FromSlash("/srv/other/x"))
	require.False(t, ok)
}
