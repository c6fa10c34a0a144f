package types

import (
	"encoding/json"
	"fmt"
	"io"
)

type InvocationStatus string

const (
	InvocationStatusPending    InvocationStatus = "Pending"
	InvocationStatusInProgress InvocationStatus = "InProgress"
	InvocationStatusDelayed    InvocationStatus = "Delayed"
	InvocationStatusSuccess    InvocationStatus = "Success"
	InvocationStatusCancelled  InvocationStatus = "Cancelled"
	InvocationStatusTimedOut   InvocationStatus = "TimedOut"
	InvocationStatusFailed     InvocationStatus = "Failed"
	InvocationStatusCancelling InvocationStatus = "Cancelling"
	InvocationStatusReceived   InvocationStatus = "Received"
)

// StatusSummary tallies per-instance invocation statuses for one command run.
type StatusSummary struct {
	Success    int
	Failed     int
	InProgress int
	Pending    int
	Delayed    int
	Cancelled  int
	TimedOut   int
	Cancelling int
	Received   int
	Other      int
}

func (s *StatusSummary) Record(status string) {
	switch InvocationStatus(status) {
	case InvocationStatusSuccess:
		s.Success++
	case InvocationStatusFailed:
		s.Failed++
	case InvocationStatusInProgress:
		s.InProgress++
	case InvocationStatusPending:
		s.Pending++
	case InvocationStatusDelayed:
		s.Delayed++
	case InvocationStatusCancelled:
		s.Cancelled++
	case InvocationStatusTimedOut:
		s.TimedOut++
	case InvocationStatusCancelling:
		s.Cancelling++
	case InvocationStatusReceived:
		s.Received++
	default:
		s.Other++
	}
}

func (s StatusSummary) Total() int {
	return s.Success + s.Failed + s.InProgress + s.Pending + s.Delayed +
		s.Cancelled + s.TimedOut + s.Cancelling + s.Received + s.Other
}

// InFlight counts invocations that have not yet settled.
func (s StatusSummary) InFlight() int {
	return s.InProgress + s.Pending + s.Delayed + s.Cancelling + s.Received
}

func (s StatusSummary) Settled() bool {
	return s.InFlight() == 0
}

// HasFailures reports whether any invocation settled without succeeding.
func (s StatusSummary) HasFailures() bool {
	return s.Failed > 0 || s.TimedOut > 0 || s.Cancelled > 0
}

// SubmissionAck mirrors the acknowledgment shape the AWS CLI prints for send-command,
// so `fleetrun dispatch` output pipes straight into `fleetrun monitor`.
type SubmissionAck struct {
	Command CommandInfo `json:"Command"`
}

type CommandInfo struct {
	CommandId         string `json:"CommandId"`
	DocumentName      string `json:"DocumentName,omitempty"`
	Status            string `json:"Status,omitempty"`
	RequestedDateTime string `json:"RequestedDateTime,omitempty"`
}

// ExtractCommandID pulls Command.CommandId out of a submission acknowledgment read
// from r (typically stdin when monitor is on the receiving end of a pipe).
func ExtractCommandID(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read submission acknowledgment: %w", err)
	}

	var ack SubmissionAck
	if err := json.Unmarshal(data, &ack); err != nil {
		return "", fmt.Errorf("invalid input JSON: %v", err)
	}

	if ack.Command.CommandId == "" {
		return "", fmt.Errorf("invalid input JSON: missing 'Command.CommandId'")
	}

	return ack.Command.CommandId, nil
}

// CommandStatusChangeDetail is the EventBridge detail payload for SSM Run Command
// status-change notifications.
type CommandStatusChangeDetail struct {
	CommandID         string `json:"command-id"`
	InstanceID        string `json:"instance-id,omitempty"`
	DocumentName      string `json:"document-name"`
	RequestedDateTime string `json:"requested-date-time"`
	Status            string `json:"status"`
}

// Terminal reports whether the notification describes a settled invocation.
func (d CommandStatusChangeDetail) Terminal() bool {
	switch InvocationStatus(d.Status) {
	case InvocationStatusSuccess, InvocationStatusFailed, InvocationStatusTimedOut, InvocationStatusCancelled:
		return true
	}
	return false
}
