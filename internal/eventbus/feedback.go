package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/voxelmem/internal/world"
)

// FeedbackSource: имя источника событий мира
const FeedbackSource = "voxelmem"

// FeedbackEnvelope упаковывает побочный эффект мира в Envelope.
// Тип события совпадает с именем вида (LeverClick, RegionRegenerated…).
func FeedbackEnvelope(sessionID string, fb world.Feedback) (*Envelope, error) {
	payload, err := json.Marshal(fb)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации события: %w", err)
	}

	priority := PriorityLow
	if fb.Kind == world.FeedbackRegionRegenerated {
		priority = PriorityHigh
	}

	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    FeedbackSource,
		EventType: fb.Kind.String(),
		Version:   1,
		Tenant:    sessionID,
		Priority:  priority,
		Payload:   payload,
		Metadata: map[string]string{
			"region": fmt.Sprintf("%d,%d", fb.Region.X, fb.Region.Y),
		},
	}, nil
}

// DecodeFeedback извлекает побочный эффект из Envelope
func DecodeFeedback(ev *Envelope) (world.Feedback, error) {
	var fb world.Feedback
	if err := json.Unmarshal(ev.Payload, &fb); err != nil {
		return fb, fmt.Errorf("ошибка десериализации события: %w", err)
	}
	return fb, nil
}
