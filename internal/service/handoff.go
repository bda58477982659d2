package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/PaperDesk/internal/domain/message"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
	"github.com/Strob0t/PaperDesk/internal/port/messagequeue"
)

// HandoffService passes step results from one worker to the next through
// per-run mailboxes and, when a queue is configured, mirrors each handoff
// onto the message bus.
type HandoffService struct {
	mu    sync.Mutex
	boxes map[string]map[workflow.Agent]*message.Queue
	queue messagequeue.Queue
	ttl   time.Duration
	now   func() time.Time
}

// NewHandoffService creates a HandoffService. queue may be nil.
func NewHandoffService(queue messagequeue.Queue, ttl time.Duration) *HandoffService {
	if ttl <= 0 {
		ttl = message.DefaultTTL
	}
	return &HandoffService{
		boxes: make(map[string]map[workflow.Agent]*message.Queue),
		queue: queue,
		ttl:   ttl,
		now:   time.Now,
	}
}

// mailbox must be called with s.mu held.
func (s *HandoffService) mailbox(workflowID string, agent workflow.Agent) *message.Queue {
	run, ok := s.boxes[workflowID]
	if !ok {
		run = make(map[workflow.Agent]*message.Queue)
		s.boxes[workflowID] = run
	}
	q, ok := run[agent]
	if !ok {
		q = message.NewQueue(message.WithTTL(s.ttl), message.WithClock(s.now))
		run[agent] = q
	}
	return q
}

// Handoff queues content for the next worker and returns the message id.
// A publish failure is returned but the local message is kept.
func (s *HandoffService) Handoff(ctx context.Context, workflowID string, from, to workflow.Agent, priority int, content map[string]any) (string, error) {
	msg := &message.Message{
		To:       string(to),
		From:     string(from),
		Content:  content,
		Priority: priority,
		Metadata: map[string]any{"workflow_id": workflowID},
	}

	s.mu.Lock()
	id := s.mailbox(workflowID, to).Send(msg)
	s.mu.Unlock()

	if s.queue == nil {
		return id, nil
	}

	data, err := json.Marshal(messagequeue.WorkflowHandoffPayload{
		WorkflowID: workflowID,
		MessageID:  id,
		From:       string(from),
		To:         string(to),
		Priority:   priority,
		Content:    content,
	})
	if err != nil {
		return id, fmt.Errorf("marshal handoff: %w", err)
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectWorkflowHandoff, data); err != nil {
		return id, fmt.Errorf("publish handoff: %w", err)
	}

	slog.DebugContext(ctx, "handoff dispatched", "workflow_id", workflowID, "from", from, "to", to, "message_id", id)
	return id, nil
}

// Receive drains the worker's mailbox for a run, acknowledging every
// message, and returns them in delivery order. Expired messages are dropped.
func (s *HandoffService) Receive(workflowID string, agent workflow.Agent) []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.boxes[workflowID]
	if !ok {
		return nil
	}
	q, ok := run[agent]
	if !ok {
		return nil
	}

	var out []message.Message
	for {
		m, ok := q.Receive()
		if !ok {
			break
		}
		m.Acknowledged = true
		out = append(out, *m)
	}
	return out
}

// Pending returns the number of undelivered messages for a worker in a run.
func (s *HandoffService) Pending(workflowID string, agent workflow.Agent) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.boxes[workflowID]; ok {
		if q, ok := run[agent]; ok {
			return q.Len()
		}
	}
	return 0
}

// Release drops all mailboxes of a finished run and returns how many
// messages were still undelivered.
func (s *HandoffService) Release(workflowID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, q := range s.boxes[workflowID] {
		n += q.Len()
	}
	delete(s.boxes, workflowID)
	return n
}
