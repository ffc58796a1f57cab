package mqtt

import (
	"github.com/sweeney/soundscape/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// SceneEvents contains all scene confirmations that were published.
	SceneEvents []logic.SceneEvent

	// ScenePayloads contains the JSON payloads for scene events.
	ScenePayloads [][]byte

	// Plans contains all plan events that were published.
	Plans []PlanEvent

	// PlanPayloads contains the JSON payloads for plan events.
	PlanPayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by PublishScene and PublishPlan.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishScene records the scene event.
func (f *FakePublisher) PublishScene(event logic.SceneEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatScenePayload(event)
	if err != nil {
		return err
	}
	f.SceneEvents = append(f.SceneEvents, event)
	f.ScenePayloads = append(f.ScenePayloads, payload)
	return nil
}

// PublishPlan records the plan event.
func (f *FakePublisher) PublishPlan(event PlanEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPlanPayload(event)
	if err != nil {
		return err
	}
	f.Plans = append(f.Plans, event)
	f.PlanPayloads = append(f.PlanPayloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.SceneEvents = nil
	f.ScenePayloads = nil
	f.Plans = nil
	f.PlanPayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
