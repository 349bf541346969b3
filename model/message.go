package model

// Message is the slice of an inbox message the subscription scan needs:
// the raw From header (possibly "Display Name <addr>") and the subject.
// A message has no identity beyond its position in the scan sequence.
type Message struct {
	From    string
	Subject string
}
