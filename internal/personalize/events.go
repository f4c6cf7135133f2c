package personalize

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/personalizeevents"
	etypes "github.com/aws/aws-sdk-go-v2/service/personalizeevents/types"
)

// EventsAPI is the subset of the event ingestion client used for interactions.
type EventsAPI interface {
	PutEvents(ctx context.Context, params *personalizeevents.PutEventsInput, optFns ...func(*personalizeevents.Options)) (*personalizeevents.PutEventsOutput, error)
}

// Event is one interaction of a batch.
type Event struct {
	ItemID string
	SentAt time.Time
}

// EventBatch is every interaction of one user session.
type EventBatch struct {
	TrackingID string
	EventType  string
	UserID     string
	SessionID  string
	Events     []Event
}

// EventSender sends interaction batches.
type EventSender struct {
	api EventsAPI
}

// NewEventSender wraps api. Deadlines come from the caller's context.
func NewEventSender(api EventsAPI) *EventSender {
	return &EventSender{api: api}
}

// MaxEventsPerCall is the largest event list PutEvents accepts.
const MaxEventsPerCall = 10

// Send puts every event of b, at most MaxEventsPerCall per call, all under the
// batch's tracking, user and session ids. Each event carries its item id both as
// ItemId and in the properties document, keyed itemId. Sending stops at the first
// failed call.
func (s *EventSender) Send(ctx context.Context, b EventBatch) error {
	list := make([]etypes.Event, 0, len(b.Events))
	for _, ev := range b.Events {
		props, err := json.Marshal(map[string]string{"itemId": ev.ItemID})
		if err != nil {
			return fmt.Errorf("encode event properties: %w", err)
		}
		list = append(list, etypes.Event{
			EventType:  aws.String(b.EventType),
			SentAt:     aws.Time(ev.SentAt),
			ItemId:     aws.String(ev.ItemID),
			Properties: aws.String(string(props)),
		})
	}
	for chunk := range slices.Chunk(list, MaxEventsPerCall) {
		_, err := s.api.PutEvents(ctx, &personalizeevents.PutEventsInput{
			TrackingId: aws.String(b.TrackingID),
			UserId:     aws.String(b.UserID),
			SessionId:  aws.String(b.SessionID),
			EventList:  chunk,
		})
		if err != nil {
			return fmt.Errorf("put events: %w", err)
		}
	}
	return nil
}
