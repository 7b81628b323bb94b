// Package cartrepo persists carts in MongoDB, one document per user.
package cartrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrCartNotFound  = fmt.Errorf("cart %w", domain.ErrNotFound)
	ErrItemNotFound  = fmt.Errorf("item %w in cart", domain.ErrNotFound)
	ErrDuplicateLine = fmt.Errorf("cart line: %w", domain.ErrDuplicateItem)
)

type cartDocument struct {
	UserID    string         `bson:"user_id"`
	Items     []lineDocument `bson:"items"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type lineDocument struct {
	CartID    string               `bson:"cart_id"`
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	Quantity  int                  `bson:"quantity"`
	AddedAt   time.Time            `bson:"added_at"`
}

func (l lineDocument) toDomain() (domain.CartLine, error) {
	price, err := decimal.NewFromString(l.UnitPrice.String())
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("decode price of cart line %s: %w", l.CartID, err)
	}
	return domain.CartLine{
		ProductID: l.ProductID,
		RemoteID:  l.CartID,
		Name:      l.Name,
		UnitPrice: price,
		Quantity:  l.Quantity,
		AddedAt:   l.AddedAt,
	}, nil
}

type Repository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		collection: db.Collection("carts"),
		now:        time.Now,
	}
}

// ListLines returns the user's cart lines. A user without a cart has none.
func (r *Repository) ListLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var doc cartDocument
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []domain.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(doc.Items))
	for _, item := range doc.Items {
		line, err := item.toDomain()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// AddLine stores line under a new cart id, creating the cart if needed. A
// product that already has a line fails with ErrDuplicateLine.
func (r *Repository) AddLine(ctx context.Context, userID string, line domain.CartLine) (domain.CartLine, error) {
	price, err := primitive.ParseDecimal128(line.UnitPrice.String())
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("encode price %s: %w", line.UnitPrice, err)
	}

	now := r.now().UTC()
	if line.AddedAt.IsZero() {
		line.AddedAt = now
	}
	line.RemoteID = uuid.NewString()
	item := lineDocument{
		CartID:    line.RemoteID,
		ProductID: line.ProductID,
		Name:      line.Name,
		UnitPrice: price,
		Quantity:  line.Quantity,
		AddedAt:   line.AddedAt.UTC(),
	}

	// the product guard in the filter makes the push and the uniqueness check
	// one operation; a cart that already holds the product matches nothing
	filter := bson.M{
		"user_id":          userID,
		"items.product_id": bson.M{"$ne": line.ProductID},
	}
	update := bson.M{
		"$push":        bson.M{"items": item},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// the upsert collided with an existing cart on the unique user_id index:
		// either the product is already there or another writer created the cart
		res, err = r.collection.UpdateOne(ctx, filter, update)
		if err == nil && res.MatchedCount == 0 {
			return domain.CartLine{}, ErrDuplicateLine
		}
	}
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("failed to add new item: %w", err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domain.CartLine{}, ErrDuplicateLine
	}
	return line, nil
}

func (r *Repository) UpdateQuantity(ctx context.Context, userID string, line domain.CartLine, quantity int) error {
	filter := bson.M{
		"user_id":       userID,
		"items.cart_id": line.RemoteID,
	}
	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             r.now().UTC(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.cart_id": line.RemoteID},
		},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) RemoveLine(ctx context.Context, userID string, line domain.CartLine) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"cart_id": line.RemoteID},
		},
		"$set": bson.M{"updated_at": r.now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *Repository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
