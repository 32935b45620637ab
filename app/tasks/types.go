package tasks

type SubscribeOutcome string

const (
	SubscribeAdded     SubscribeOutcome = "added"
	SubscribeDuplicate SubscribeOutcome = "duplicate"
	SubscribeInvalid   SubscribeOutcome = "invalid"
	SubscribeFailed    SubscribeOutcome = "failed"
)

type SubscribeResult struct {
	Outcome SubscribeOutcome
	URL     string
	Message string
}

// Status is a read-only snapshot of the download daemon.
type Status struct {
	Active          int
	PendingDelivery int
}
