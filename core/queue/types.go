package queue

import (
	"strconv"
)

// Attribute names used on the wire.
const (
	// TaskNameAttribute is the message attribute carrying the task name of a task message.
	TaskNameAttribute = "TaskName"

	// ReceiveCountAttribute is the system attribute with the approximate number
	// of times the message has been received, including the current delivery.
	ReceiveCountAttribute = "ApproximateReceiveCount"

	// SentTimestampAttribute is the system attribute with the send time in epoch milliseconds.
	SentTimestampAttribute = "SentTimestamp"

	// FirstReceiveTimestampAttribute is the system attribute with the first receive time in epoch milliseconds.
	FirstReceiveTimestampAttribute = "ApproximateFirstReceiveTimestamp"

	// DataTypeString is the data type of string message attributes.
	DataTypeString = "String"
)

// MaxReceiveBatch is the largest batch the queue service returns from a single receive call.
const MaxReceiveBatch = 10

// Message is a single delivery received from the queue service.
// It is read-only: dispatch passes it to handlers and to the acknowledgement
// calls, and nothing retains it once the message is acked or nacked.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          string
	MD5OfBody     string

	// Attributes holds system attributes such as ApproximateReceiveCount.
	Attributes map[string]string

	// MessageAttributes holds user attributes such as TaskName.
	MessageAttributes map[string]MessageAttribute
}

// MessageAttribute is a typed user attribute attached to a message.
type MessageAttribute struct {
	DataType    string
	StringValue string
	BinaryValue []byte
}

// StringAttribute builds a message attribute of type String.
func StringAttribute(value string) MessageAttribute {
	return MessageAttribute{DataType: DataTypeString, StringValue: value}
}

// TaskName returns the task name attribute and whether it is present.
func (m Message) TaskName() (string, bool) {
	attr, ok := m.MessageAttributes[TaskNameAttribute]
	if !ok {
		return "", false
	}
	return attr.StringValue, true
}

// ReceiveCount returns the service reported delivery count.
// Missing or unparsable values are reported as zero.
func (m Message) ReceiveCount() int {
	v, ok := m.Attributes[ReceiveCountAttribute]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// RetryCount returns the number of previous deliveries of this message.
// The count is clamped to zero so a first delivery never yields a negative exponent.
func (m Message) RetryCount() int {
	return max(m.ReceiveCount()-1, 0)
}

// Bounds are the redelivery backoff limits in seconds.
// MinSeconds <= MaxSeconds by convention; it is not enforced.
type Bounds struct {
	MinSeconds int
	MaxSeconds int
}

// withDefaults fills zero bounds from defaults.
func (b Bounds) withDefaults(defaults Bounds) Bounds {
	if b.MinSeconds <= 0 {
		b.MinSeconds = defaults.MinSeconds
	}
	if b.MaxSeconds <= 0 {
		b.MaxSeconds = defaults.MaxSeconds
	}
	return b
}

// ReceiveParams controls a single receive call.
type ReceiveParams struct {
	// MaxMessages is capped at MaxReceiveBatch.
	MaxMessages int
	// WaitSeconds is the long-poll duration.
	WaitSeconds int
	// AllAttributes requests every system and message attribute.
	AllAttributes bool
}

// SendResult is the delivery receipt of a sent message.
type SendResult struct {
	MessageID              string
	MD5OfMessageBody       string
	MD5OfMessageAttributes string
}
