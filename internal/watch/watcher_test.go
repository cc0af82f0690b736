package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"verbatim/internal/config"
	"verbatim/internal/jobs"
	"verbatim/internal/recognize"
)

func TestSkipName(t *testing.T) {
	cases := []struct {
		name string
		skip bool
	}{
		{"recording.mp4", false},
		{"podcast.mp3", false},
		{".DS_Store", true},
		{".recording.mp4.swp", true},
		{"upload.mp4.tmp", true},
		{"rsync-transfer.part", true},
	}
	for _, c := range cases {
		if got := skipName(c.name); got != c.skip {
			t.Errorf("skipName(%q) = %v, want %v", c.name, got, c.skip)
		}
	}
}

type idleEngine struct{}

func (idleEngine) Name() string { return "idle" }
func (idleEngine) Recognize(ctx context.Context, chunk recognize.Chunk) (recognize.Result, error) {
	return recognize.Result{}, nil
}

func TestWatcherSubmitsSettledFile(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the file settle delay")
	}

	spool := t.TempDir()
	cfg := &config.Config{Workers: 1, JobTimeout: time.Minute, Retention: time.Hour, SubtitleFormat: "srt"}
	// Workers are never started: the job stays queued and observable.
	m := jobs.NewManager(cfg, idleEngine{}, nil, jobs.NewEventBus())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	w := New(spool, m)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to install before dropping the file.
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(spool, "dropped.mp4")
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		for _, snap := range m.Snapshots() {
			if snap.SourceName == "dropped.mp4" {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Run returned %v", err)
				}
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("spooled file was never submitted")
}
