package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "catalog_products"

// indexMapping is the fixed schema of the products index: an integer id,
// full-text title, slug and description, plus the bookkeeping fields used
// for versioned writes and pruning.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "dynamic": "strict",
    "properties": {
      "id":          { "type": "long" },
      "title":       { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "slug":        { "type": "text" },
      "description": { "type": "text" },
      "version":     { "type": "long" },
      "indexed_at":  { "type": "date" }
    }
  }
}`
