// Package notify hands booking events to the messaging workflow that sends
// guest and host e-mails.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/model"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
)

// EventType names what happened to a booking.
type EventType string

const (
	BookingCreated       EventType = "booking.created"
	BookingStatusChanged EventType = "booking.status_changed"
	BookingCancelled     EventType = "booking.cancelled"
	InquiryExpired       EventType = "booking.inquiry_expired"
)

// Event is one notification request.
type Event struct {
	Type       EventType     `json:"type"`
	Booking    model.Booking `json:"booking"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// Dispatcher delivers notification events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// StartExecutionAPI is the part of *sfn.Client the dispatcher uses.
type StartExecutionAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

// SFNDispatcher starts one Step Functions execution per event. The state
// machine decides which channels (e-mail, WhatsApp) to use.
type SFNDispatcher struct {
	client          StartExecutionAPI
	stateMachineARN string
}

// NewSFNDispatcher constructs an SFNDispatcher.
func NewSFNDispatcher(client StartExecutionAPI, stateMachineARN string) *SFNDispatcher {
	return &SFNDispatcher{client: client, stateMachineARN: stateMachineARN}
}

// Dispatch starts the workflow for ev.
func (d *SFNDispatcher) Dispatch(ctx context.Context, ev Event) error {
	input, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	out, err := d.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(d.stateMachineARN),
		Name:            aws.String(executionName(ev)),
		Input:           aws.String(string(input)),
	})
	if err != nil {
		return fmt.Errorf("start notification workflow: %w", err)
	}
	log.Printf("notification %s for booking %s started: %s", ev.Type, ev.Booking.ID, aws.ToString(out.ExecutionArn))
	return nil
}

// executionName is unique per event and safe for Step Functions, which
// rejects dots in names. Starting a second execution with the same name
// and input is a no-op there, which deduplicates retried dispatches.
func executionName(ev Event) string {
	kind := strings.ReplaceAll(string(ev.Type), ".", "-")
	return fmt.Sprintf("%s-%s-%d", kind, ev.Booking.ID, ev.OccurredAt.UnixMilli())
}

// LogDispatcher only logs. Used locally and when no workflow is configured.
type LogDispatcher struct{}

// Dispatch logs ev.
func (LogDispatcher) Dispatch(ctx context.Context, ev Event) error {
	log.Printf("notification %s: booking %s (%s) for %s, %s", ev.Type, ev.Booking.Code, ev.Booking.Status, ev.Booking.Guest.Email, ev.Booking.Range())
	return nil
}
