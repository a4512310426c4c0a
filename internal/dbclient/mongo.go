package dbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"folio/internal/domain"
)

const postsCollection = "posts"

// MongoStore keeps posts as documents in a MongoDB collection. The content
// field is stored as native BSON (a string or an object) so the documents
// stay readable from the mongo shell.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *log.Logger
	now    func() time.Time
}

// mongoPost is the decoded shape of a stored post.
type mongoPost struct {
	ID          string        `bson:"_id"`
	Slug        string        `bson:"slug"`
	Title       string        `bson:"title"`
	Subtitle    string        `bson:"subtitle,omitempty"`
	Description string        `bson:"description"`
	Category    string        `bson:"category"`
	Tags        []string      `bson:"tags"`
	Status      string        `bson:"status"`
	Content     bson.RawValue `bson:"content,omitempty"`
	PinPosition *int          `bson:"pin_position,omitempty"`
	PublishAt   *time.Time    `bson:"publish_at,omitempty"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

// buildMongoURI returns the connection URI and the database to use. Host may
// already be a full mongodb:// or mongodb+srv:// URI, in which case a
// <password> placeholder is filled in.
func buildMongoURI(opts Options, password string) (uri, dbName string) {
	dbName = opts.Database
	if strings.HasPrefix(opts.Host, "mongodb+srv://") || strings.HasPrefix(opts.Host, "mongodb://") {
		uri = opts.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		if dbName == "" {
			dbName = databaseFromURI(uri)
		}
	} else {
		port := opts.Port
		if port == 0 {
			port = 27017
		}
		if opts.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", opts.Username, password, opts.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", opts.Host, port)
		}
		if opts.SSLMode == "require" {
			uri += "/?tls=true"
		}
	}
	if dbName == "" {
		dbName = "folio"
	}
	return uri, dbName
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params.
func databaseFromURI(uri string) string {
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		uri = strings.TrimPrefix(uri, prefix)
	}
	if at := strings.LastIndex(uri, "@"); at != -1 {
		uri = uri[at+1:]
	}
	slash := strings.Index(uri, "/")
	if slash == -1 {
		return ""
	}
	path := uri[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	return path
}

// OpenMongo connects, pings and ensures the unique slug index.
func OpenMongo(ctx context.Context, opts Options, password string, logger *log.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	uri, dbName := buildMongoURI(opts, password)

	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	logger.Debug("connecting to mongo", "uri", logURI, "db", dbName)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(dbName).Collection(postsCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create slug index: %w", err)
	}
	return &MongoStore{client: client, coll: coll, logger: logger, now: time.Now}, nil
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// ── Content conversion ────────────────────────────────────

// contentToBSON turns the raw JSON content into a BSON value via Extended
// JSON. Empty content is stored as null.
func contentToBSON(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	wrapped := append(append([]byte(`{"v":`), raw...), '}')
	var doc bson.D
	if err := bson.UnmarshalExtJSON(wrapped, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: content: %v", domain.ErrInvalidDocument, err)
	}
	return doc[0].Value, nil
}

// contentToJSON is the inverse of contentToBSON.
func contentToJSON(v bson.RawValue) (json.RawMessage, error) {
	if v.Type == 0 || v.Type == bson.TypeNull {
		return nil, nil
	}
	data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return nil, fmt.Errorf("content to json: %w", err)
	}
	var wrapped struct {
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("content to json: %w", err)
	}
	return wrapped.V, nil
}

func (p *mongoPost) toDocument() (*domain.Document, error) {
	content, err := contentToJSON(p.Content)
	if err != nil {
		return nil, fmt.Errorf("decode post %s: %w", p.ID, err)
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	doc := &domain.Document{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Description: p.Description,
		Category:    p.Category,
		Tags:        tags,
		Status:      domain.Status(p.Status),
		Content:     content,
		PinPosition: p.PinPosition,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
	if p.PublishAt != nil {
		t := p.PublishAt.UTC()
		doc.PublishAt = &t
	}
	return doc, nil
}

// ── PostStore ─────────────────────────────────────────────

func (m *MongoStore) findOne(ctx context.Context, filter bson.D) (*domain.Document, error) {
	var p mongoPost
	if err := m.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return p.toDocument()
}

func (m *MongoStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return m.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (m *MongoStore) GetBySlug(ctx context.Context, slug string) (*domain.Document, error) {
	return m.findOne(ctx, bson.D{{Key: "slug", Value: slug}})
}

func (m *MongoStore) list(ctx context.Context, filter bson.D, limit int) ([]domain.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.Document
	for cur.Next(ctx) {
		var p mongoPost
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}
		doc, err := p.toDocument()
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return out, nil
}

func (m *MongoStore) ListPublished(ctx context.Context, limit int) ([]domain.Document, error) {
	return m.list(ctx, bson.D{{Key: "status", Value: string(domain.StatusPublished)}}, limit)
}

func (m *MongoStore) ListAll(ctx context.Context) ([]domain.Document, error) {
	return m.list(ctx, bson.D{}, 0)
}

func (m *MongoStore) Insert(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	d := *doc
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := m.now().UTC().Truncate(time.Millisecond)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	if d.Status == "" {
		d.Status = domain.StatusDraft
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	content, err := contentToBSON(d.Content)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	record := bson.D{
		{Key: "_id", Value: d.ID},
		{Key: "slug", Value: d.Slug},
		{Key: "title", Value: d.Title},
		{Key: "subtitle", Value: d.Subtitle},
		{Key: "description", Value: d.Description},
		{Key: "category", Value: d.Category},
		{Key: "tags", Value: d.Tags},
		{Key: "status", Value: string(d.Status)},
		{Key: "content", Value: content},
		{Key: "created_at", Value: d.CreatedAt},
		{Key: "updated_at", Value: d.UpdatedAt},
	}
	if d.PinPosition != nil {
		record = append(record, bson.E{Key: "pin_position", Value: *d.PinPosition})
	}
	if d.PublishAt != nil {
		record = append(record, bson.E{Key: "publish_at", Value: *d.PublishAt})
	}

	if _, err := m.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert post: %w: %q", domain.ErrSlugTaken, d.Slug)
		}
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &d, nil
}

// updateDoc translates a patch into $set/$unset operators.
func (m *MongoStore) updateDoc(patch domain.PostPatch) (bson.D, error) {
	set := bson.D{}
	unset := bson.D{}
	if patch.Slug != nil {
		set = append(set, bson.E{Key: "slug", Value: *patch.Slug})
	}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Subtitle != nil {
		set = append(set, bson.E{Key: "subtitle", Value: *patch.Subtitle})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *patch.Category})
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		set = append(set, bson.E{Key: "tags", Value: tags})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*patch.Status)})
	}
	if patch.Content != nil {
		content, err := contentToBSON(*patch.Content)
		if err != nil {
			return nil, err
		}
		set = append(set, bson.E{Key: "content", Value: content})
	}
	if patch.PinPosition != nil {
		if *patch.PinPosition == nil {
			unset = append(unset, bson.E{Key: "pin_position", Value: ""})
		} else {
			set = append(set, bson.E{Key: "pin_position", Value: **patch.PinPosition})
		}
	}
	if patch.PublishAt != nil {
		if *patch.PublishAt == nil {
			unset = append(unset, bson.E{Key: "publish_at", Value: ""})
		} else {
			set = append(set, bson.E{Key: "publish_at", Value: **patch.PublishAt})
		}
	}
	updated := m.now().UTC().Truncate(time.Millisecond)
	if patch.UpdatedAt != nil && !patch.UpdatedAt.IsZero() {
		updated = patch.UpdatedAt.UTC()
	}
	set = append(set, bson.E{Key: "updated_at", Value: updated})

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update, nil
}

func (m *MongoStore) Update(ctx context.Context, id string, patch domain.PostPatch) error {
	update, err := m.updateDoc(patch)
	if err != nil {
		return fmt.Errorf("update post %s: %w", id, err)
	}
	res, err := m.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("update post %s: %w", id, domain.ErrSlugTaken)
		}
		return fmt.Errorf("update post %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update post %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete post %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
