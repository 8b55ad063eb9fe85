package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Channel identifies where a delivery was sent
type Channel string

const (
	ChannelHTTP  Channel = "http"
	ChannelKafka Channel = "kafka"
)

// Delivery records one send attempt. Deliveries are never retried.
type Delivery struct {
	ID         uuid.UUID
	Channel    Channel
	Event      EventType
	Model      string
	RecordID   int
	Database   string
	Target     string
	StatusCode int
	Success    bool
	Error      string
	Duration   time.Duration
	CreatedAt  time.Time
}

// NewDelivery starts a delivery record for an event
func NewDelivery(ch Channel, e Event, target string) *Delivery {
	return &Delivery{
		ID:        uuid.New(),
		Channel:   ch,
		Event:     e.Type,
		Model:     e.Model,
		RecordID:  e.RecordID,
		Database:  e.Database,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}
}

// Finish stores the outcome. Only a 200 answer counts as success.
func (d *Delivery) Finish(status int, elapsed time.Duration, err error) {
	d.StatusCode = status
	d.Duration = elapsed
	d.Success = err == nil && (d.Channel == ChannelKafka || status == 200)
	if err != nil {
		d.Error = err.Error()
	}
}

// DeliveryFilter narrows a delivery log query
type DeliveryFilter struct {
	Database string
	Model    string
	Failed   bool
	Limit    int
}

// DeliveryRepository stores the delivery log
type DeliveryRepository interface {
	Save(ctx context.Context, d *Delivery) error
	List(ctx context.Context, filter DeliveryFilter) ([]*Delivery, error)
}
