package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/artemvolkov/auction-house/internal/domain"
	"github.com/artemvolkov/auction-house/internal/observability"
)

// AuditLogger records every state transition for offline inspection. It sits
// outside the transactional path: a failed write is logged and dropped.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	SubjectID uuid.UUID `bson:"subject_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, subjectID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.WithError(err).Error("failed to insert audit log")
		return err
	}
	return nil
}

func (a *AuditLogger) LogBid(ctx context.Context, bid domain.Bid) error {
	data := map[string]interface{}{
		"bid_id":    bid.ID,
		"item_id":   bid.ItemID,
		"amount":    bid.Amount,
		"placed_at": bid.PlacedAt.Format(time.RFC3339),
	}
	return a.LogEvent(ctx, "bid.accepted", bid.BidderID, data)
}

func (a *AuditLogger) LogResolution(ctx context.Context, res domain.Resolution) error {
	data := map[string]interface{}{
		"item_id": res.ItemID,
		"outcome": string(res.Outcome),
	}
	if res.Outcome == domain.OutcomeSold {
		data["order_id"] = res.OrderID
		data["final_price"] = res.FinalPrice
	}
	return a.LogEvent(ctx, "item.resolved", resolutionSubject(res), data)
}

// resolutionSubject attributes a resolution to the winner when there is one
// and to the host otherwise; an ended auction has no winner to point at.
func resolutionSubject(res domain.Resolution) uuid.UUID {
	if res.Outcome == domain.OutcomeSold {
		return res.WinnerID
	}
	return res.HostID
}

func (a *AuditLogger) LogCheckout(ctx context.Context, order domain.Order) error {
	data := map[string]interface{}{
		"order_id":    order.ID,
		"item_id":     order.ItemID,
		"final_price": order.FinalPrice,
	}
	return a.LogEvent(ctx, "order.completed", order.BidderID, data)
}
