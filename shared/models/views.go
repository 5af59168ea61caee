package models

// CustomerAccountView is a customer together with their account.
type CustomerAccountView struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	MobileNumber string   `json:"mobileNumber"`
	Account      *Account `json:"accountsDto"`
}

// CustomerDetails is the composite view of one customer across the accounts,
// loans and cards services. It is built per request and never cached.
//
// A nil Loan or Card means the record is missing; Availability tells whether
// that is because the owning service has no record (true) or could not be
// reached (false).
type CustomerDetails struct {
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	MobileNumber string          `json:"mobileNumber"`
	Account      *Account        `json:"accountsDto"`
	Loan         *Loan           `json:"loansDto"`
	Card         *Card           `json:"cardsDto"`
	Availability map[string]bool `json:"availability"`
}
