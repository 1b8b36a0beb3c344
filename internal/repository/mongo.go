package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/book-search-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection is the collection holding user documents
const UsersCollection = "users"

const (
	usernameIndex = "username_unique"
	emailIndex    = "email_unique"
)

type userDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Username   string             `bson:"username"`
	Email      string             `bson:"email"`
	Password   string             `bson:"password"`
	SavedBooks []bookDocument     `bson:"savedBooks"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type bookDocument struct {
	BookID      string   `bson:"bookId"`
	Title       string   `bson:"title"`
	Authors     []string `bson:"authors"`
	Description string   `bson:"description"`
	Image       string   `bson:"image"`
	Link        string   `bson:"link"`
}

func (d *userDocument) toModel() *models.User {
	user := &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		SavedBooks:   make([]models.Book, 0, len(d.SavedBooks)),
		CreatedAt:    d.CreatedAt,
	}
	for _, b := range d.SavedBooks {
		user.SavedBooks = append(user.SavedBooks, models.Book{
			BookID:      b.BookID,
			Title:       b.Title,
			Authors:     b.Authors,
			Description: b.Description,
			Image:       b.Image,
			Link:        b.Link,
		})
	}
	return user
}

func toBookDocument(b models.Book) bookDocument {
	authors := b.Authors
	if authors == nil {
		authors = []string{}
	}
	return bookDocument{
		BookID:      b.BookID,
		Title:       b.Title,
		Authors:     authors,
		Description: b.Description,
		Image:       b.Image,
		Link:        b.Link,
	}
}

// MongoRepository provides user storage on MongoDB with embedded saved books
type MongoRepository struct {
	users *mongo.Collection
}

// NewMongoRepository initializes a repository over the users collection of db
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{users: db.Collection(UsersCollection)}
}

// EnsureIndexes creates the unique indexes on username and email
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// CreateUser inserts a new user document
func (r *MongoRepository) CreateUser(ctx context.Context, user *models.User) error {
	doc := userDocument{
		ID:         primitive.NewObjectID(),
		Username:   user.Username,
		Email:      user.Email,
		Password:   user.PasswordHash,
		SavedBooks: []bookDocument{},
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if dupErr := duplicateKeyError(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = doc.ID.Hex()
	user.CreatedAt = doc.CreatedAt
	user.SavedBooks = []models.Book{}
	return nil
}

// duplicateKeyError maps an E11000 failure to the violated unique index.
// Only the "index: <name>" part of the message is matched, the dup key value may contain anything.
func duplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}

	messages := []string{err.Error()}
	var we mongo.WriteException
	if errors.As(err, &we) {
		messages = messages[:0]
		for _, e := range we.WriteErrors {
			messages = append(messages, e.Message)
		}
	}

	for _, msg := range messages {
		switch {
		case strings.Contains(msg, "index: "+usernameIndex+" "):
			return models.ErrDuplicateUsername
		case strings.Contains(msg, "index: "+emailIndex+" "):
			return models.ErrDuplicateEmail
		}
	}
	return nil
}

// FindUserByID retrieves a user by hex object id
func (r *MongoRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindUserByEmail retrieves a user by email
func (r *MongoRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindUserByUsername retrieves a user by username
func (r *MongoRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel(), nil
}

// ListUsers retrieves every user document
func (r *MongoRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	cur, err := r.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	users := make([]*models.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toModel())
	}
	return users, nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *MongoRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrUserNotFound
	}
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"password": hash}})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// AddSavedBook appends book unless an entry with the same bookId exists
func (r *MongoRepository) AddSavedBook(ctx context.Context, userID string, book models.Book) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, models.ErrUserNotFound
	}
	filter := bson.M{"_id": oid, "savedBooks.bookId": bson.M{"$ne": book.BookID}}
	update := bson.M{"$push": bson.M{"savedBooks": toBookDocument(book)}}

	var doc userDocument
	err = r.users.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// either the user is missing or the book is already saved
		return r.FindUserByID(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save book: %w", err)
	}
	return doc.toModel(), nil
}

// RemoveSavedBook pulls every saved entry with the given bookId
func (r *MongoRepository) RemoveSavedBook(ctx context.Context, userID, bookID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, models.ErrUserNotFound
	}
	update := bson.M{"$pull": bson.M{"savedBooks": bson.M{"bookId": bookID}}}

	var doc userDocument
	err = r.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete book: %w", err)
	}
	return doc.toModel(), nil
}
