package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/streamcatalog/backend/internal/models"
)

// ChannelSender posts announcement content to a broadcast channel.
type ChannelSender interface {
	SendPhoto(ctx context.Context, photoURL, caption string) error
	SendMessage(ctx context.Context, text string) error
}

// AnnouncedMarker records that a movie's announcement went out so it is not
// announced again.
type AnnouncedMarker interface {
	MarkAnnounced(ctx context.Context, movieID string) error
}

// AnnouncerConfig controls the concurrency characteristics of the announcer.
type AnnouncerConfig struct {
	QueueSize int
	Workers   int
}

// Announcer asynchronously posts new-movie announcements. Failures are logged
// and dropped; announcements never block or fail the request that created the
// movie.
type Announcer struct {
	sender ChannelSender
	marker AnnouncedMarker
	logger *slog.Logger

	jobs   chan announceJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type announceJob struct {
	movie models.Movie
}

var errAnnouncerClosed = errors.New("announcer closed")

// NewAnnouncer constructs a background worker pool that posts announcements.
func NewAnnouncer(sender ChannelSender, marker AnnouncedMarker, cfg AnnouncerConfig, logger *slog.Logger) *Announcer {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Announcer{
		sender: sender,
		marker: marker,
		logger: logger,
		jobs:   make(chan announceJob, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	a.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go a.worker()
	}

	return a
}

// Announce schedules a channel post for the supplied movie.
func (a *Announcer) Announce(ctx context.Context, movie models.Movie) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.ctx.Done():
		return errAnnouncerClosed
	default:
	}

	job := announceJob{movie: movie}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.ctx.Done():
		return errAnnouncerClosed
	case a.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding announcements.
func (a *Announcer) Shutdown(ctx context.Context) error {
	a.once.Do(func() {
		a.cancel()
		close(a.jobs)
	})

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (a *Announcer) worker() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case job, ok := <-a.jobs:
			if !ok {
				return
			}
			a.handleJob(job)
		}
	}
}

func (a *Announcer) handleJob(job announceJob) {
	if a.sender == nil || a.marker == nil {
		a.logger.Error("announcer missing dependencies", "hasSender", a.sender != nil, "hasMarker", a.marker != nil)
		return
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	caption := announcementText(job.movie)
	var err error
	if strings.TrimSpace(job.movie.BigPoster) != "" {
		err = a.sender.SendPhoto(sendCtx, job.movie.BigPoster, caption)
	} else {
		err = a.sender.SendMessage(sendCtx, caption)
	}
	if err != nil {
		a.logger.Error("movie announcement failed", "movieId", job.movie.ID, "error", err)
		return
	}

	markCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.marker.MarkAnnounced(markCtx, job.movie.ID); err != nil {
		a.logger.Error("mark movie announced", "movieId", job.movie.ID, "error", err)
	}
}

func announcementText(movie models.Movie) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", movie.Title)
	if movie.Parameters.Year > 0 {
		fmt.Fprintf(&b, "Year: %d\n", movie.Parameters.Year)
	}
	if movie.Parameters.Country != "" {
		fmt.Fprintf(&b, "Country: %s\n", movie.Parameters.Country)
	}
	if len(movie.Genres) > 0 {
		names := make([]string, 0, len(movie.Genres))
		for _, genre := range movie.Genres {
			names = append(names, genre.Name)
		}
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Watch: /movie/%s", movie.Slug)
	return b.String()
}
