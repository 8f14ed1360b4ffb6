package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dom/lobby-broker/internal/domain"
	"github.com/dom/lobby-broker/internal/repository"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	historyBatchSize    = 50
	historyWriteTimeout = 5 * time.Second
)

// HistoryStats reports the recorder's counters
type HistoryStats struct {
	Recorded int64 `json:"recorded"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
	Pending  int   `json:"pending"`
}

// HistoryService queues lobby lifecycle events and writes them to the
// repository from a background worker. Record never blocks the caller.
type HistoryService struct {
	repo   repository.LobbyEventRepository
	queue  chan *domain.LobbyEvent
	logger logrus.FieldLogger

	recorded atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

func NewHistoryService(repo repository.LobbyEventRepository, buffer int, logger logrus.FieldLogger) *HistoryService {
	if buffer < 1 {
		buffer = 1
	}
	return &HistoryService{
		repo:   repo,
		queue:  make(chan *domain.LobbyEvent, buffer),
		logger: logger.WithField("component", "history"),
	}
}

// Record enqueues an event. When the queue is full the event is dropped.
func (s *HistoryService) Record(event *domain.LobbyEvent) {
	select {
	case s.queue <- event:
	default:
		s.dropped.Add(1)
		s.logger.WithFields(logrus.Fields{
			"lobbyId": event.LobbyID,
			"kind":    event.Kind,
		}).Warn("History queue full, dropping event")
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left
func (s *HistoryService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case event := <-s.queue:
			s.write(s.collect(event))
		}
	}
}

// collect gathers first plus whatever is already queued, up to one batch
func (s *HistoryService) collect(first *domain.LobbyEvent) []*domain.LobbyEvent {
	batch := []*domain.LobbyEvent{first}
	for len(batch) < historyBatchSize {
		select {
		case event := <-s.queue:
			batch = append(batch, event)
		default:
			return batch
		}
	}
	return batch
}

func (s *HistoryService) flush() {
	for {
		select {
		case event := <-s.queue:
			s.write(s.collect(event))
		default:
			return
		}
	}
}

func (s *HistoryService) write(batch []*domain.LobbyEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		s.failed.Add(int64(len(batch)))
		s.logger.WithError(err).WithField("events", len(batch)).Error("Failed to write lobby history")
		return
	}
	s.recorded.Add(int64(len(batch)))
}

// Events returns the recorded history of one lobby
func (s *HistoryService) Events(ctx context.Context, lobbyID uuid.UUID) ([]*domain.LobbyEvent, error) {
	events, err := s.repo.GetByLobbyID(ctx, lobbyID)
	if err != nil {
		return nil, eris.Wrap(err, "history lookup failed")
	}
	return events, nil
}

// Stats returns the current counters
func (s *HistoryService) Stats() HistoryStats {
	return HistoryStats{
		Recorded: s.recorded.Load(),
		Dropped:  s.dropped.Load(),
		Failed:   s.failed.Load(),
		Pending:  len(s.queue),
	}
}
