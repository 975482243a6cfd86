package domain

// Recipient is an SMS subscriber owned by the external recipient store.
type Recipient struct {
	ID          int64
	Name        string
	PhoneNumber string
	Active      bool
}

// SelectorMode tells how a broadcast resolves its recipients.
type SelectorMode string

const (
	SelectAll  SelectorMode = "all"
	SelectOne  SelectorMode = "single"
	SelectMany SelectorMode = "selected"
)

// RecipientSelector is the rule used to resolve the recipients of a broadcast.
type RecipientSelector struct {
	Mode SelectorMode
	IDs  []int64
}

// AllRecipients selects every active recipient.
func AllRecipients() RecipientSelector {
	return RecipientSelector{Mode: SelectAll}
}

// RecipientByID selects a single recipient regardless of its active flag.
func RecipientByID(id int64) RecipientSelector {
	return RecipientSelector{Mode: SelectOne, IDs: []int64{id}}
}

// RecipientsByIDs selects an explicit set of recipients.
func RecipientsByIDs(ids ...int64) RecipientSelector {
	return RecipientSelector{Mode: SelectMany, IDs: append([]int64(nil), ids...)}
}
