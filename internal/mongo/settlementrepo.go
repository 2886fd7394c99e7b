package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/posconsole/internal/billing"
	"github.com/appetiteclub/posconsole/internal/journal"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const settlementsCollection = "settlements"

var errNotStarted = errors.New("settlement repo not started")

// SettlementRepo is the MongoDB settlement journal.
type SettlementRepo struct {
	*BaseRepo
	collection *mongo.Collection
}

func NewSettlementRepo(config *aqm.Config, logger aqm.Logger) *SettlementRepo {
	return &SettlementRepo{BaseRepo: NewBaseRepo(config, logger)}
}

func (r *SettlementRepo) Start(ctx context.Context) error {
	if err := r.BaseRepo.Start(ctx); err != nil {
		return err
	}

	r.collection = r.db.Collection(settlementsCollection)

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recorded_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("cannot create settlements index: %w", err)
	}

	return nil
}

func (r *SettlementRepo) Record(ctx context.Context, e journal.Entry) error {
	if r.collection == nil {
		return errNotStarted
	}

	doc, err := toDocument(e)
	if err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("cannot record settlement: %w", err)
	}

	return nil
}

func (r *SettlementRepo) Recent(ctx context.Context, limit int) ([]journal.Entry, error) {
	if r.collection == nil {
		return nil, errNotStarted
	}

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list settlements: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []settlementDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode settlements: %w", err)
	}

	entries := make([]journal.Entry, 0, len(docs))
	for _, doc := range docs {
		e, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, nil
}

type settlementDocument struct {
	ID         string               `bson:"_id"`
	TableID    string               `bson:"table_id"`
	OrderID    string               `bson:"order_id"`
	TotalDue   primitive.Decimal128 `bson:"total_due"`
	AmountPaid primitive.Decimal128 `bson:"amount_paid"`
	Change     primitive.Decimal128 `bson:"change"`
	Method     string               `bson:"method"`
	Outcome    string               `bson:"outcome"`
	Error      string               `bson:"error,omitempty"`
	Admin      string               `bson:"admin"`
	RecordedAt time.Time            `bson:"recorded_at"`
}

func toDocument(e journal.Entry) (settlementDocument, error) {
	total, err := toDecimal128(e.TotalDue)
	if err != nil {
		return settlementDocument{}, err
	}
	paid, err := toDecimal128(e.AmountPaid)
	if err != nil {
		return settlementDocument{}, err
	}
	change, err := toDecimal128(e.Change)
	if err != nil {
		return settlementDocument{}, err
	}

	return settlementDocument{
		ID:         e.ID.String(),
		TableID:    e.TableID,
		OrderID:    e.OrderID,
		TotalDue:   total,
		AmountPaid: paid,
		Change:     change,
		Method:     e.Method,
		Outcome:    string(e.Outcome),
		Error:      e.Error,
		Admin:      e.Admin,
		RecordedAt: e.RecordedAt,
	}, nil
}

func fromDocument(doc settlementDocument) (journal.Entry, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("invalid settlement id %q: %w", doc.ID, err)
	}

	total, err := fromDecimal128(doc.TotalDue)
	if err != nil {
		return journal.Entry{}, err
	}
	paid, err := fromDecimal128(doc.AmountPaid)
	if err != nil {
		return journal.Entry{}, err
	}
	change, err := fromDecimal128(doc.Change)
	if err != nil {
		return journal.Entry{}, err
	}

	return journal.Entry{
		ID:         id,
		TableID:    doc.TableID,
		OrderID:    doc.OrderID,
		TotalDue:   total,
		AmountPaid: paid,
		Change:     change,
		Method:     doc.Method,
		Outcome:    billing.Outcome(doc.Outcome),
		Error:      doc.Error,
		Admin:      doc.Admin,
		RecordedAt: doc.RecordedAt,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("cannot encode amount %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot decode amount %s: %w", v, err)
	}
	return d, nil
}
