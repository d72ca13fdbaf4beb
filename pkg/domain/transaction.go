package domain

// TransactionType names one of the three ordered IHE transactions.
type TransactionType string

const (
	// TransactionDemographics is ITI-47, Patient Demographics Query.
	TransactionDemographics TransactionType = "ITI-47"
	// TransactionStructuredRecord is ITI-38, Cross Gateway Query.
	TransactionStructuredRecord TransactionType = "ITI-38"
	// TransactionRetrieve is ITI-39, Cross Gateway Retrieve.
	TransactionRetrieve TransactionType = "ITI-39"
)

func (t TransactionType) String() string { return string(t) }
