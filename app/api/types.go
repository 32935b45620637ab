package api

import (
	"github.com/lysyi3m/autoleech/app/database"
	"github.com/lysyi3m/autoleech/app/tasks"
)

type DeliveryHistory interface {
	GetRecentDeliveries(limit int) ([]database.Delivery, error)
	GetStats() (database.DeliveryStats, error)
}

var _ DeliveryHistory = (*database.DeliveryRepository)(nil)

type Handler struct {
	scheduler  tasks.SchedulerInterface
	deliveries DeliveryHistory
	version    string
}

type addFeedRequest struct {
	URL string `json:"url" binding:"required"`
}
