package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const userCollection = "user"

// Store persists sessions in a MongoDB collection, one document per
// external user id. Updates are targeted $set field replacements, never a
// full-document overwrite.
type Store struct {
	users  *mongo.Collection
	logger *slog.Logger
}

// NewStore creates a session store over the given database handle.
func NewStore(log *slog.Logger, db *mongo.Database) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		users:  db.Collection(userCollection),
		logger: log.With(slog.String("service", "session")),
	}
}

// FetchOrCreate returns the session for userID, lazily inserting a default
// record on first contact. defaultAssistant and defaultModel seed the new
// record and are not validated here.
func (s *Store) FetchOrCreate(ctx context.Context, userID, defaultAssistant, defaultModel string) (Session, error) {
	var sess Session
	err := s.users.FindOne(ctx, bson.M{"id": userID}).Decode(&sess)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, fmt.Errorf("fetch session: %w", err)
	}

	sess = Session{
		UserID:    userID,
		Assistant: defaultAssistant,
		Model:     defaultModel,
		History:   []Turn{},
	}
	result, err := s.users.InsertOne(ctx, sess)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		sess.ID = oid
	}
	s.logger.Info("session created", slog.String("user_id", userID))
	return sess, nil
}

// SetModel stores the model key as-is. Existence against the catalog is
// checked at use time only.
func (s *Store) SetModel(ctx context.Context, id primitive.ObjectID, model string) error {
	return s.setFields(ctx, id, bson.M{"model": model})
}

// SetAssistant stores the assistant key as-is.
func (s *Store) SetAssistant(ctx context.Context, id primitive.ObjectID, assistant string) error {
	return s.setFields(ctx, id, bson.M{"assistant": assistant})
}

// SetHistory replaces the full conversation history.
func (s *Store) SetHistory(ctx context.Context, id primitive.ObjectID, history []Turn) error {
	if history == nil {
		history = []Turn{}
	}
	return s.setFields(ctx, id, bson.M{"conversation_history": history})
}

func (s *Store) setFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	if _, err := s.users.UpdateByID(ctx, id, bson.M{"$set": fields}); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}
