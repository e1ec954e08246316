package webchat

import (
	"time"

	"github.com/wolfman30/medical-appointment-scheduler/internal/conversation"
)

// replies converts one turn into widget messages, one per assistant reply.
func replies(resp conversation.Response) []OutboundMessage {
	ts := resp.Timestamp.UTC().Format(time.RFC3339)
	out := make([]OutboundMessage, 0, len(resp.Messages))
	for _, text := range resp.Messages {
		out = append(out, OutboundMessage{
			Type:      "message",
			Role:      conversation.RoleAssistant,
			Text:      text,
			SessionID: resp.SessionID,
			Phase:     string(resp.Phase),
			Completed: resp.Completed,
			Timestamp: ts,
		})
	}
	return out
}

func historyOf(entries []conversation.Entry) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(entries))
	for _, e := range entries {
		history = append(history, HistoryMessage{
			Role:      e.Role,
			Text:      e.Text,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return history
}
