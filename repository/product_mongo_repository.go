package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yvetteluxe63/yvetteluxe/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productDocument struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Price       primitive.Decimal128 `bson:"price"`
	ImageURL    string               `bson:"image_url"`
	Description string               `bson:"description"`
	Category    string               `bson:"category"`
	Featured    bool                 `bson:"featured"`
	Sizes       []string             `bson:"sizes,omitempty"`
	Colors      []string             `bson:"colors,omitempty"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func (d productDocument) toModel() models.Product {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		price = decimal.Zero
	}
	return models.Product{
		ID:          d.ID,
		Name:        d.Name,
		Price:       price,
		ImageURL:    d.ImageURL,
		Description: d.Description,
		Category:    d.Category,
		Featured:    d.Featured,
		Sizes:       d.Sizes,
		Colors:      d.Colors,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoProductRepository keeps products in the "products" collection.
type MongoProductRepository struct {
	coll *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{coll: db.Collection("products")}
}

func (r *MongoProductRepository) List(ctx context.Context) ([]models.Product, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer cur.Close(ctx)

	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	products := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toModel())
	}
	return products, nil
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now

	price, err := toDecimal128(product.Price)
	if err != nil {
		return fmt.Errorf("encode price: %w", err)
	}
	doc := productDocument{
		ID:          product.ID,
		Name:        product.Name,
		Price:       price,
		ImageURL:    product.ImageURL,
		Description: product.Description,
		Category:    product.Category,
		Featured:    product.Featured,
		Sizes:       product.Sizes,
		Colors:      product.Colors,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *MongoProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	if patch.Price != nil {
		price, err := toDecimal128(*patch.Price)
		if err != nil {
			return fmt.Errorf("encode price: %w", err)
		}
		set["price"] = price
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
