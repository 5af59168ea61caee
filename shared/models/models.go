package models

import "time"

type Customer struct {
	CustomerID   int64     `json:"-"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	MobileNumber string    `json:"mobileNumber"`
	CreatedAt    time.Time `json:"-"`
}

type Account struct {
	AccountNumber int64  `json:"accountNumber"`
	CustomerID    int64  `json:"-"`
	AccountType   string `json:"accountType"`
	BranchAddress string `json:"branchAddress"`
}

type Loan struct {
	MobileNumber      string `json:"mobileNumber"`
	LoanNumber        string `json:"loanNumber"`
	LoanType          string `json:"loanType"`
	TotalLoan         int64  `json:"totalLoan"`
	AmountPaid        int64  `json:"amountPaid"`
	OutstandingAmount int64  `json:"outstandingAmount"`
}

type Card struct {
	MobileNumber    string `json:"mobileNumber"`
	CardNumber      string `json:"cardNumber"`
	CardType        string `json:"cardType"`
	TotalLimit      int64  `json:"totalLimit"`
	AmountUsed      int64  `json:"amountUsed"`
	AvailableAmount int64  `json:"availableAmount"`
}

// CardsContactInfo is the support contact block published by the cards service.
type CardsContactInfo struct {
	Message        string            `json:"message" mapstructure:"message"`
	ContactDetails map[string]string `json:"contactDetails" mapstructure:"contact_details"`
	OnCallSupport  []string          `json:"onCallSupport" mapstructure:"on_call_support"`
}
