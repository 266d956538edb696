package core

import "time"

// AuthEventType enumerates the events published by the auth service
type AuthEventType string

const (
	EventAccountCreated AuthEventType = "account.created"
	EventWalletLinked   AuthEventType = "wallet.linked"
	EventSignedIn       AuthEventType = "session.signed_in"
	EventLoggedOut      AuthEventType = "session.logged_out"
)

// AuthEvent is emitted after a state change in the auth flow
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	AccountID  string        `json:"account_id"`
	Address    string        `json:"address,omitempty"`
	Network    Network       `json:"network,omitempty"`
	TokenID    string        `json:"token_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
