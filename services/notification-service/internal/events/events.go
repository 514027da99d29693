// Package events defines the inbound notification events and how they are
// decoded from bus payloads.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies which notification an inbound message triggers.
type Kind string

const (
	KindLoanSubmitted    Kind = "loan_submitted"
	KindDocumentFailed   Kind = "document_failed"
	KindDocumentVerified Kind = "document_verified"
)

var (
	ErrMissingApplication = errors.New("submission event has no loan application")
	ErrMissingApplicant   = errors.New("loan application has no applicant")
	ErrMissingEmail       = errors.New("applicant has no email address")
)

type Applicant struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// FullName joins first and last name with a single space, as printed in the
// confirmation email.
func (a Applicant) FullName() string {
	return a.FirstName + " " + a.LastName
}

type LoanApplication struct {
	LoanID     string     `json:"loanId"`
	LoanAmount float64    `json:"loanAmount"`
	Currency   string     `json:"currency,omitempty"`
	Applicant  *Applicant `json:"applicant"`
}

type SubmissionEvent struct {
	LoanApplication *LoanApplication `json:"loanApplication"`
}

// Validate reports the first field a confirmation email cannot be built without.
func (e SubmissionEvent) Validate() error {
	switch {
	case e.LoanApplication == nil:
		return ErrMissingApplication
	case e.LoanApplication.Applicant == nil:
		return ErrMissingApplicant
	case e.LoanApplication.Applicant.Email == "":
		return ErrMissingEmail
	}
	return nil
}

func DecodeSubmission(raw []byte) (SubmissionEvent, error) {
	var ev SubmissionEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return SubmissionEvent{}, fmt.Errorf("decode submission event: %w", err)
	}
	return ev, nil
}

// DocumentOutcomeMessage is a document verification result. Destination is the
// bus address it arrived on ("replyTopic/{loanId}"); empty when unknown.
type DocumentOutcomeMessage struct {
	Destination string
	Payload     Payload
}

// LoanID is the final segment of the destination.
func (m DocumentOutcomeMessage) LoanID() (string, bool) {
	return LastPathSegment(m.Destination)
}

// Content is the markdown body carried by the payload, if any.
func (m DocumentOutcomeMessage) Content() (string, bool) {
	if m.Payload == nil {
		return "", false
	}
	return m.Payload.Text()
}
