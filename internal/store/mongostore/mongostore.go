// Package mongostore implements the persistence contract on MongoDB.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/models"
)

const (
	usersCollection     = "users"
	productsCollection  = "products"
	imagesCollection    = "images"
	enquiriesCollection = "quickenquiries"
)

type Store struct {
	client    *mongo.Client
	users     *mongo.Collection
	products  *mongo.Collection
	images    *mongo.Collection
	enquiries *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, verifies the connection and ensures indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mongo connection")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "failed to connect to mongo")
	}

	s := New(client, database)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	zap.S().Infof("Database connection successful, type: mongo, database: %s", database)
	return s, nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:    client,
		users:     db.Collection(usersCollection),
		products:  db.Collection(productsCollection),
		images:    db.Collection(imagesCollection),
		enquiries: db.Collection(enquiriesCollection),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "create users email index")
	}
	_, err = s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "subcategory", Value: 1}},
	})
	return errors.Wrap(err, "create products category index")
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrInvalidID
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

// Users

type userDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		return nil, errors.Wrap(notFound(err), "find user")
	}
	return &models.User{
		ID:       doc.ID.Hex(),
		Name:     doc.Name,
		Email:    doc.Email,
		Password: doc.Password,
	}, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	doc := userDoc{
		ID:       primitive.NewObjectID(),
		Name:     user.Name,
		Email:    user.Email,
		Password: user.Password,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return errors.Wrap(err, "insert user")
	}
	user.ID = doc.ID.Hex()
	return nil
}

// Products

type productDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"name"`
	Description  string             `bson:"description"`
	Features     []string           `bson:"features"`
	ProductImage string             `bson:"productImage"`
	File         string             `bson:"file"`
	Category     string             `bson:"category"`
	Subcategory  string             `bson:"subcategory,omitempty"`
}

func (d productDoc) model() models.Product {
	p := models.Product{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Description:  d.Description,
		Features:     d.Features,
		ProductImage: d.ProductImage,
		File:         d.File,
		Category:     d.Category,
		Subcategory:  d.Subcategory,
	}
	p.Normalize()
	return p
}

func productFromModel(p *models.Product) productDoc {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return productDoc{
		ID:           primitive.NewObjectID(),
		Name:         p.Name,
		Description:  p.Description,
		Features:     features,
		ProductImage: p.ProductImage,
		File:         p.File,
		Category:     p.Category,
		Subcategory:  p.Subcategory,
	}
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	doc := productFromModel(product)
	if _, err := s.products.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert product")
	}
	*product = doc.model()
	return nil
}

func productQuery(filter store.ProductFilter) bson.M {
	q := bson.M{}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	if filter.Subcategory != "" {
		q["subcategory"] = filter.Subcategory
	}
	return q
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	cur, err := s.products.Find(ctx, productQuery(filter))
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	products := make([]models.Product, len(docs))
	for i, d := range docs {
		products[i] = d.model()
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	if err := s.products.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, errors.Wrap(notFound(err), "find product")
	}
	p := doc.model()
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc productDoc
	if err := s.products.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, errors.Wrap(notFound(err), "delete product")
	}
	p := doc.model()
	return &p, nil
}

func (s *Store) AppendFeatures(ctx context.Context, id string, features []string) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	if features == nil {
		features = []string{}
	}
	update := bson.M{"$push": bson.M{"features": bson.M{"$each": features}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDoc
	if err := s.products.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, errors.Wrap(notFound(err), "append product features")
	}
	p := doc.model()
	return &p, nil
}

// Images

type imageDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	HeaderImage string             `bson:"headerImage"`
}

func (d imageDoc) model() models.Image {
	return models.Image{ID: d.ID.Hex(), HeaderImage: d.HeaderImage}
}

func (s *Store) CreateImage(ctx context.Context, image *models.Image) error {
	doc := imageDoc{ID: primitive.NewObjectID(), HeaderImage: image.HeaderImage}
	if _, err := s.images.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert image")
	}
	image.ID = doc.ID.Hex()
	return nil
}

func (s *Store) ListImages(ctx context.Context) ([]models.Image, error) {
	cur, err := s.images.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "find images")
	}
	var docs []imageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode images")
	}
	images := make([]models.Image, len(docs))
	for i, d := range docs {
		images[i] = d.model()
	}
	return images, nil
}

func (s *Store) DeleteImage(ctx context.Context, id string) (*models.Image, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc imageDoc
	if err := s.images.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, errors.Wrap(notFound(err), "delete image")
	}
	img := doc.model()
	return &img, nil
}

// Enquiries

type enquiryDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Businessname *string            `bson:"businessname,omitempty"`
	Price        *string            `bson:"price,omitempty"`
	Reservations *string            `bson:"reservations,omitempty"`
	Name         string             `bson:"name"`
	Phoneno      string             `bson:"phoneno"`
	Email        string             `bson:"email"`
	Message      *string            `bson:"message,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (s *Store) CreateEnquiry(ctx context.Context, e *models.QuickEnquiry) error {
	now := time.Now().UTC()
	doc := enquiryDoc{
		ID:           primitive.NewObjectID(),
		Businessname: e.Businessname,
		Price:        e.Price,
		Reservations: e.Reservations,
		Name:         e.Name,
		Phoneno:      e.Phoneno,
		Email:        e.Email,
		Message:      e.Message,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.enquiries.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert enquiry")
	}
	e.ID = doc.ID.Hex()
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}
