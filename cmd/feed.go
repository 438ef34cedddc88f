package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/essencia-app/essencia-cli/internal/adapters/render/feed"
	"github.com/essencia-app/essencia-cli/internal/application"
	"github.com/essencia-app/essencia-cli/internal/domain"
)

// feedSink is the view side of the notification bus. It subscribes to queue
// changes and collects each notification as it arrives, so nothing is lost to
// capacity eviction or auto-dismiss before the command finishes. The batch is
// printed once at the end, keeping feed output from interleaving with the
// network spinner.
type feedSink struct {
	center *application.Center

	mu    sync.Mutex
	seen  map[string]bool
	items []domain.Notification
}

func newFeedSink(center *application.Center) *feedSink {
	return &feedSink{center: center, seen: map[string]bool{}}
}

// onChange runs on every queue mutation published by the center.
func (s *feedSink) onChange() {
	snapshot := s.center.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range snapshot {
		if s.seen[n.ID] {
			continue
		}
		s.seen[n.ID] = true
		s.items = append(s.items, n)
	}
}

// flush renders everything collected since the previous flush.
func (s *feedSink) flush(out io.Writer) {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	if rendered := feed.Render(items); rendered != "" {
		_, _ = fmt.Fprintln(out, rendered)
	}
}
