package events

import (
	"time"
)

type EventType string

const (
	EventTypeTripSaved         EventType = "trip.saved"
	EventTypeTripDeleted       EventType = "trip.deleted"
	EventTypeItineraryComputed EventType = "itinerary.computed"
)

type Event interface {
	GetType() EventType
}

type TripSavedEvent struct {
	TripID     string    `json:"tripId"`
	OwnerID    string    `json:"ownerId,omitempty"`
	Name       string    `json:"name"`
	DistanceKm float64   `json:"distanceKm"`
	Days       int       `json:"days"`
	At         time.Time `json:"at"`
}

func (e TripSavedEvent) GetType() EventType {
	return EventTypeTripSaved
}

type TripDeletedEvent struct {
	TripID  string    `json:"tripId"`
	OwnerID string    `json:"ownerId,omitempty"`
	At      time.Time `json:"at"`
}

func (e TripDeletedEvent) GetType() EventType {
	return EventTypeTripDeleted
}

type ItineraryComputedEvent struct {
	Trip        string    `json:"trip"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DistanceKm  float64   `json:"distanceKm"`
	Days        int       `json:"days"`
	DrivingDays int       `json:"drivingDays"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

func (e ItineraryComputedEvent) GetType() EventType {
	return EventTypeItineraryComputed
}

// Publisher delivers events without blocking the caller on failures.
type Publisher interface {
	Publish(event Event)
	Close()
}

// EventBus keeps events in process. It backs the server when NATS is disabled and lets
// tests observe what was published.
type EventBus struct {
	eventQueue chan Event
}

func NewEventBus() *EventBus {
	return &EventBus{
		eventQueue: make(chan Event, 100),
	}
}

func (eb *EventBus) GetChannel() chan Event {
	return eb.eventQueue
}

// Publish drops the event when nobody drains the channel fast enough.
func (eb *EventBus) Publish(event Event) {
	select {
	case eb.eventQueue <- event:
	default:
	}
}

func (eb *EventBus) Close() {}
