package database

import "time"

// Delivery is the audit record of a file uploaded to the delivery target.
type Delivery struct {
	Hash        string
	Name        string
	Path        string
	Size        int64
	Attempts    int // greater than one when the same job was uploaded again
	DeliveredAt time.Time
	RemovedAt   *time.Time
}

type DeliveryStats struct {
	Total       int
	Removed     int
	Redelivered int
}
