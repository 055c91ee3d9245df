// Package mongodb persists allocation reports for audit.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oms-labs/lotpilot/internal/domain/models"
)

// Repository defines the interface for allocation report storage.
type Repository interface {
	SaveAllocationReport(ctx context.Context, report models.AllocationReport) error
	AllocationsByOrder(ctx context.Context, orderID string) ([]models.AllocationReport, error)
}

// MongoRepository implements Repository on MongoDB.
type MongoRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoRepository connects to MongoDB and verifies the connection.
func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoRepository{
		client:   client,
		dbName:   dbName,
		collName: "allocation_reports",
	}, nil
}

// SaveAllocationReport inserts one allocation report.
func (r *MongoRepository) SaveAllocationReport(ctx context.Context, report models.AllocationReport) error {
	collection := r.client.Database(r.dbName).Collection(r.collName)
	if _, err := collection.InsertOne(ctx, toReportDoc(report)); err != nil {
		return fmt.Errorf("failed to insert allocation report: %w", err)
	}
	return nil
}

// AllocationsByOrder returns the audit trail for one order, newest first.
func (r *MongoRepository) AllocationsByOrder(ctx context.Context, orderID string) ([]models.AllocationReport, error) {
	collection := r.client.Database(r.dbName).Collection(r.collName)

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := collection.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation reports: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reportDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode allocation reports: %w", err)
	}

	reports := make([]models.AllocationReport, 0, len(docs))
	for _, doc := range docs {
		report, err := fromReportDoc(doc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Close closes the MongoDB connection.
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
