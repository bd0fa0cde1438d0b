package types

// Offer is one candidate plan from a supplier. Its pricing definition lives
// in the template materialized by the external pipeline; the offer record
// itself is presentation metadata plus the delivery utility it bills under.
type Offer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Supplier     string `json:"supplier"`
	TermMonths   int    `json:"termMonths"`
	DeliverySlug string `json:"deliverySlug"`
	Hidden       bool   `json:"hidden,omitempty"`
}
