// Package order defines the narrow contract through which the payment
// core talks to the storefront's order system. The storefront owns
// orders; this core only reads checkout data, attaches notes and
// drives status.
package order

// Order is the collaborator interface consumed by the charge flow.
type Order interface {
	ID() string
	TotalMinor() int64
	CustomerName() string
	CustomerEmail() string
	CustomerPhone() string
	CustomerDocument() string
	BillingAddress() Address
	AddNote(text string)
	UpdateStatus(status, note string)
}

type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Snapshot is the in-process Order implementation built from a
// checkout request. Notes and status changes accumulate on it so the
// caller can persist them after the attempt.
type Snapshot struct {
	OrderID  string
	Total    int64
	Name     string
	Email    string
	Phone    string
	Document string
	Address  Address

	Notes      []string
	Status     string
	StatusNote string
}

func (s *Snapshot) ID() string               { return s.OrderID }
func (s *Snapshot) TotalMinor() int64        { return s.Total }
func (s *Snapshot) CustomerName() string     { return s.Name }
func (s *Snapshot) CustomerEmail() string    { return s.Email }
func (s *Snapshot) CustomerPhone() string    { return s.Phone }
func (s *Snapshot) CustomerDocument() string { return s.Document }
func (s *Snapshot) BillingAddress() Address  { return s.Address }

func (s *Snapshot) AddNote(text string) { s.Notes = append(s.Notes, text) }

func (s *Snapshot) UpdateStatus(status, note string) {
	s.Status = status
	s.StatusNote = note
}
