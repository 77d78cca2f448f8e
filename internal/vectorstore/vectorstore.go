// Package vectorstore adapts the Qdrant gRPC API to the
// VectorStoreAdapter contract: upsert/delete-by-file/query/get-by-id over a
// per-project collection, with scalar-only metadata and document truncation.
//
// Grounded on the teacher's internal/qdrant/client.go (connection setup,
// batched+retried upsert, PayloadToMap/MapToPayload scalar conversion);
// reworked around models.VectorRecord and the spec'd metadata/document
// shape instead of the teacher's CodeChunkPayload.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"codebase-indexer/internal/config"
	"codebase-indexer/internal/logging"
	"codebase-indexer/internal/models"
)

// QueryResult is the adapter's nearest-neighbor response shape.
type QueryResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]interface{}
	Distances []float32
}

// Adapter is a VectorStoreAdapter backed by Qdrant.
type Adapter struct {
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	conn        *grpc.ClientConn
	log         *slog.Logger
}

// NewAdapter connects to QDRANT_URL (default localhost:6334) using
// QDRANT_API_KEY for auth if set.
func NewAdapter(log *slog.Logger) (*Adapter, error) {
	if log == nil {
		log = logging.Nop()
	}

	host, port, useTLS, err := parseAddress(config.Get("QDRANT_URL"))
	if err != nil {
		return nil, fmt.Errorf("vectorstore: parse QDRANT_URL: %w", err)
	}
	if config.Get("QDRANT_USE_TLS") == "true" {
		useTLS = true
	}

	cfg := &qdrant.Config{Host: host, Port: port, UseTLS: useTLS}
	if apiKey := config.Get("QDRANT_API_KEY"); apiKey != "" {
		cfg.APIKey = apiKey
	}

	client, err := qdrant.NewGrpcClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect: %w", err)
	}

	return &Adapter{
		points:      client.Points(),
		collections: client.Collections(),
		conn:        client.Conn(),
		log:         log,
	}, nil
}

func (a *Adapter) Close() error { return a.conn.Close() }

func parseAddress(raw string) (host string, port int, useTLS bool, err error) {
	const (
		defaultHost = "localhost"
		defaultPort = 6334
	)
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return defaultHost, defaultPort, false, nil
	}

	if strings.Contains(endpoint, "://") {
		parsed, perr := neturl.Parse(endpoint)
		if perr != nil {
			return "", 0, false, perr
		}
		useTLS = parsed.Scheme == "https"
		if parsed.Host == "" {
			return defaultHost, defaultPort, useTLS, nil
		}
		endpoint = parsed.Host
	}

	h, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		var addrErr *net.AddrError
		if errors.As(err, &addrErr) && strings.Contains(addrErr.Err, "missing port") {
			return endpoint, defaultPort, useTLS, nil
		}
		return "", 0, false, err
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, err
	}
	if h == "" {
		h = defaultHost
	}
	return h, p, useTLS, nil
}

// EnsureCollection creates the named collection with the given vector size
// if it doesn't already exist, recreating it if the existing dimension
// mismatches.
func (a *Adapter) EnsureCollection(ctx context.Context, name string, vectorSize uint64) error {
	info, err := a.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: name})
	if err == nil {
		params := info.GetResult().GetConfig().GetParams()
		if params == nil {
			return nil
		}
		existing := params.GetVectorsConfig().GetParams().GetSize()
		if existing == vectorSize {
			return nil
		}
		a.log.Warn("recreating collection with new vector size", "collection", name, "old_size", existing, "new_size", vectorSize)
		if _, derr := a.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: name}); derr != nil {
			return fmt.Errorf("vectorstore: delete mismatched collection: %w", derr)
		}
	}

	_, err = a.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{Size: vectorSize, Distance: qdrant.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: create collection: %w", err)
	}
	return nil
}

// DeleteCollection drops the named collection entirely. Deleting a
// collection that does not exist is not an error.
func (a *Adapter) DeleteCollection(ctx context.Context, name string) error {
	_, err := a.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: name})
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("vectorstore: delete collection: %w", err)
	}
	return nil
}

// Upsert writes records to collection, batched and retried for transient
// failures. Equal ids overwrite the previous record. Qdrant's wire protocol
// upserts natively by id, so there is no distinct "add" path and no
// fallback to one: each batch gets up to three attempts, and a batch that
// still fails is returned as an error.
func (a *Adapter) Upsert(ctx context.Context, collection string, records []models.VectorRecord) error {
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(r.ID),
			Vectors: qdrant.NewVectors(r.Embedding...),
			Payload: mapToPayload(sanitizeMetadata(r.Metadata, r.Document)),
		})
	}

	const batchSize = 50
	const maxRetries = 3
	wait := true

	for i := 0; i < len(points); i += batchSize {
		end := i + batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[i:end]

		var lastErr error
		for attempt := 0; attempt < maxRetries; attempt++ {
			if attempt > 0 {
				time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
			}
			_, lastErr = a.points.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: collection,
				Points:         batch,
				Wait:           &wait,
			})
			if lastErr == nil {
				break
			}
			if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
				return lastErr
			}
		}
		if lastErr != nil {
			return fmt.Errorf("vectorstore: upsert batch at offset %d: %w", i, lastErr)
		}
	}
	return nil
}

// DeleteByFile deletes every record whose file_path metadata equals
// filePath.
func (a *Adapter) DeleteByFile(ctx context.Context, collection, filePath string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   "file_path",
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: filePath}},
					},
				},
			},
		},
	}
	_, err := a.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorstore: delete by file %q: %w", filePath, err)
	}
	return nil
}

// Query runs nearest-neighbor search over embedding, returning up to topK
// results. A store failure returns an empty result rather than an error, per
// the read-failure policy.
func (a *Adapter) Query(ctx context.Context, collection string, embedding []float32, topK uint64) QueryResult {
	resp, err := a.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         embedding,
		Limit:          topK,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		a.log.Warn("query failed", "collection", collection, "error", err)
		return QueryResult{}
	}

	var out QueryResult
	for _, sp := range resp.GetResult() {
		meta := payloadToMap(sp.GetPayload())
		out.IDs = append(out.IDs, pointIDString(sp.GetId()))
		out.Documents = append(out.Documents, stringField(meta, "document"))
		out.Metadatas = append(out.Metadatas, meta)
		out.Distances = append(out.Distances, sp.GetScore())
	}
	return out
}

// GetByID retrieves a single record's metadata by its CodeBlock id.
func (a *Adapter) GetByID(ctx context.Context, collection, id string) (map[string]interface{}, bool) {
	resp, err := a.points.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil || len(resp.GetResult()) == 0 {
		return nil, false
	}
	return payloadToMap(resp.GetResult()[0].GetPayload()), true
}

// sanitizeMetadata encodes non-scalar metadata values as JSON strings and
// attaches the (already-truncated) document text under "document" so Query
// can recover it from payload alone.
func sanitizeMetadata(meta map[string]interface{}, document string) map[string]interface{} {
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		out[k] = sanitizeScalar(v)
	}
	out["document"] = document
	return out
}

func sanitizeScalar(v interface{}) interface{} {
	switch v.(type) {
	case string, int, int32, int64, float32, float64, bool, nil:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func stringField(meta map[string]interface{}, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// pointID derives a stable uint64 Qdrant point id from a CodeBlock id
// string (Qdrant's wire format wants a numeric or UUID id, not an arbitrary
// string), by taking the first 8 bytes of its SHA-256 hash.
func pointID(id string) *qdrant.PointId {
	sum := sha256.Sum256([]byte(id))
	num := binary.BigEndian.Uint64(sum[:8])
	return qdrant.NewIDNum(num)
}

func pointIDString(id *qdrant.PointId) string {
	if num, ok := id.GetPointIdOptions().(*qdrant.PointId_Num); ok {
		return strconv.FormatUint(num.Num, 10)
	}
	return id.String()
}

func mapToPayload(m map[string]interface{}) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(m))
	for k, v := range m {
		out[k] = valueFromInterface(v)
	}
	return out
}

func valueFromInterface(v interface{}) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case nil:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		out[k] = valueToInterface(v)
	}
	return out
}

func valueToInterface(v *qdrant.Value) interface{} {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	default:
		return nil
	}
}

// NewRecord builds the VectorRecord for a block, applying the spec'd
// metadata shape and document truncation.
func NewRecord(b models.CodeBlock, embedding []float32, now time.Time) models.VectorRecord {
	return models.VectorRecord{
		ID:        b.ID,
		Embedding: embedding,
		Metadata:  models.RecordMetadata(b, now),
		Document:  models.Document(b.Code),
	}
}
