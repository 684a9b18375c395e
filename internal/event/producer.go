package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/catalog/internal/domain"
	pkgkafka "github.com/utafrali/catalog/pkg/kafka"
	"github.com/utafrali/catalog/pkg/logger"
)

// Kafka topics for catalog change events.
var (
	TopicProductCreated = pkgkafka.Topic(AggregateTypeProduct, "created")
	TopicProductUpdated = pkgkafka.Topic(AggregateTypeProduct, "updated")
	TopicProductDeleted = pkgkafka.Topic(AggregateTypeProduct, "deleted")
)

// AggregateTypeProduct is the aggregate type carried by product events.
const AggregateTypeProduct = "product"

// SourceCatalog identifies events originating from this service.
const SourceCatalog = "catalog"

// ProductData is the payload of product.created and product.updated events.
type ProductData struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	PreviousSlug string  `json:"previousSlug,omitempty"`
	Description  string  `json:"description"`
	CategoryIDs  []int64 `json:"categoryIds"`
}

// ProductDeletedData is the payload of a product.deleted event.
type ProductDeletedData struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog change events to Kafka.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, product.Version, productData(product, ""))
}

// PublishProductUpdated publishes a product.updated event. previousSlug is
// set when the update changed the slug.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product, previousSlug string) error {
	if previousSlug == product.Slug {
		previousSlug = ""
	}
	return p.publish(ctx, TopicProductUpdated, product.ID, product.Version, productData(product, previousSlug))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, product *domain.Product) error {
	data := ProductDeletedData{ID: product.ID, Slug: product.Slug}
	return p.publish(ctx, TopicProductDeleted, product.ID, product.Version+1, data)
}

func (p *Producer) publish(ctx context.Context, topic string, id, version int64, data any) error {
	evt, err := pkgkafka.NewEvent(topic, strconv.FormatInt(id, 10), AggregateTypeProduct, SourceCatalog, version, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func productData(product *domain.Product, previousSlug string) ProductData {
	return ProductData{
		ID:           product.ID,
		Title:        product.Title,
		Slug:         product.Slug,
		PreviousSlug: previousSlug,
		Description:  product.Description,
		CategoryIDs:  product.CategoryIDs(),
	}
}
