package domain

import "time"

// EmailMessage is the payload exchanged over the notification queue.
type EmailMessage struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// EmailStatus tracks delivery progress of an email log entry.
type EmailStatus string

const (
	EmailPending   EmailStatus = "PENDING"
	EmailSent      EmailStatus = "SENT"
	EmailFailed    EmailStatus = "FAILED"
	EmailCancelled EmailStatus = "CANCELLED"
)

// EmailLog records one email and its delivery attempts.
type EmailLog struct {
	ID              string
	Recipient       string
	Subject         string
	Content         string
	Status          EmailStatus
	ErrorMessage    string
	AttemptCount    int
	LastAttemptTime *time.Time
	CreatedAt       time.Time
}
