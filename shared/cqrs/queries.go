package cqrs

import "github.com/eaglebank/digibank/shared/tracing"

// ---------- Accounts queries ----------

// FetchAccountQuery fetches a customer and their account by mobile number.
type FetchAccountQuery struct {
	MobileNumber string
}

// FetchCustomerDetailsQuery builds the composite customer view. Trace is
// forwarded unchanged to every downstream call.
type FetchCustomerDetailsQuery struct {
	MobileNumber string
	Trace        tracing.Context
}

// ---------- Satellite queries ----------

type FetchLoanQuery struct {
	MobileNumber  string
	CorrelationID string
}

type FetchCardQuery struct {
	MobileNumber  string
	CorrelationID string
}
