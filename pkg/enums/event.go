package enums

// EventType labels domain events published to Pub/Sub.
type EventType string

const (
	EventListingCreated  EventType = "listing.created"
	EventListingUpdated  EventType = "listing.updated"
	EventBarterProposed  EventType = "barter.proposed"
	EventBarterDecided   EventType = "barter.decided"
	EventListingArchived EventType = "listing.archived"
)

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}
