package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"viral-kid-platform/models"
)

// MongoStore implements Store on top of MongoDB collections.
type MongoStore struct {
	credentials  *mongo.Collection
	automations  *mongo.Collection
	interactions *mongo.Collection
	accounts     *mongo.Collection
	logs         *mongo.Collection
	users        *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		credentials:  db.Collection("instagram_credentials"),
		automations:  db.Collection("instagram_automations"),
		interactions: db.Collection("instagram_interactions"),
		accounts:     db.Collection("accounts"),
		logs:         db.Collection("account_logs"),
		users:        db.Collection("users"),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}

// findOne decodes into dest, translating "no documents" into a nil
// result per the Store contract.
func findOne(ctx context.Context, col *mongo.Collection, filter bson.M, dest interface{}, opts ...*options.FindOneOptions) (bool, error) {
	err := col.FindOne(ctx, filter, opts...).Decode(dest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MongoStore) CredentialsByVerifyToken(ctx context.Context, token string) (*models.InstagramCredentials, error) {
	var creds models.InstagramCredentials
	found, err := findOne(ctx, s.credentials, bson.M{"webhook_verify_token": token}, &creds)
	if err != nil || !found {
		return nil, err
	}
	return &creds, nil
}

func (s *MongoStore) CredentialsByInstagramAccountID(ctx context.Context, instagramAccountID string) (*models.InstagramCredentials, error) {
	var creds models.InstagramCredentials
	found, err := findOne(ctx, s.credentials, bson.M{"instagram_account_id": instagramAccountID}, &creds)
	if err != nil || !found {
		return nil, err
	}
	return &creds, nil
}

func (s *MongoStore) CredentialsByAccountID(ctx context.Context, accountID string) (*models.InstagramCredentials, error) {
	oid, err := objectID(accountID)
	if err != nil {
		return nil, err
	}
	var creds models.InstagramCredentials
	found, err := findOne(ctx, s.credentials, bson.M{"account_id": oid}, &creds)
	if err != nil || !found {
		return nil, err
	}
	return &creds, nil
}

func (s *MongoStore) UpdateCredentialsToken(ctx context.Context, accountID, accessToken string, expiresAt time.Time) error {
	oid, err := objectID(accountID)
	if err != nil {
		return err
	}
	_, err = s.credentials.UpdateOne(ctx,
		bson.M{"account_id": oid},
		bson.M{"$set": bson.M{
			"access_token":     accessToken,
			"token_expires_at": expiresAt,
			"updated_at":       time.Now(),
		}},
	)
	return err
}

func (s *MongoStore) AutomationByID(ctx context.Context, id string) (*models.InstagramAutomation, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var automation models.InstagramAutomation
	found, err := findOne(ctx, s.automations, bson.M{"_id": oid}, &automation)
	if err != nil || !found {
		return nil, err
	}
	return &automation, nil
}

// EnabledAutomationForPost resolves the automation to run for a
// comment on a post. When duplicates exist the most recently created
// one wins, so editing behavior is deterministic.
func (s *MongoStore) EnabledAutomationForPost(ctx context.Context, accountID, postID string) (*models.InstagramAutomation, error) {
	oid, err := objectID(accountID)
	if err != nil {
		return nil, err
	}
	var automation models.InstagramAutomation
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	found, err := findOne(ctx, s.automations, bson.M{"account_id": oid, "post_id": postID, "enabled": true}, &automation, opts)
	if err != nil || !found {
		return nil, err
	}
	return &automation, nil
}

func (s *MongoStore) ListAutomations(ctx context.Context, accountID string) ([]models.InstagramAutomation, error) {
	oid, err := objectID(accountID)
	if err != nil {
		return nil, err
	}
	cursor, err := s.automations.Find(ctx, bson.M{"account_id": oid},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	automations := []models.InstagramAutomation{}
	if err := cursor.All(ctx, &automations); err != nil {
		return nil, err
	}
	return automations, nil
}

func (s *MongoStore) CreateAutomation(ctx context.Context, automation *models.InstagramAutomation) error {
	now := time.Now()
	automation.CreatedAt = now
	automation.UpdatedAt = now
	result, err := s.automations.InsertOne(ctx, automation)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		automation.ID = oid
	}
	return nil
}

func (s *MongoStore) UpdateAutomation(ctx context.Context, automation *models.InstagramAutomation) error {
	automation.UpdatedAt = time.Now()
	_, err := s.automations.ReplaceOne(ctx, bson.M{"_id": automation.ID}, automation)
	return err
}

// DeleteAutomation removes an automation and cascades to its
// interactions.
func (s *MongoStore) DeleteAutomation(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	if _, err := s.automations.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return err
	}
	_, err = s.interactions.DeleteMany(ctx, bson.M{"automation_id": oid})
	return err
}

func (s *MongoStore) InteractionByComment(ctx context.Context, accountID, commentID string) (*models.InstagramInteraction, error) {
	oid, err := objectID(accountID)
	if err != nil {
		return nil, err
	}
	var interaction models.InstagramInteraction
	found, err := findOne(ctx, s.interactions, bson.M{"account_id": oid, "comment_id": commentID}, &interaction)
	if err != nil || !found {
		return nil, err
	}
	return &interaction, nil
}

func (s *MongoStore) InteractionByID(ctx context.Context, id string) (*models.InstagramInteraction, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var interaction models.InstagramInteraction
	found, err := findOne(ctx, s.interactions, bson.M{"_id": oid}, &interaction)
	if err != nil || !found {
		return nil, err
	}
	return &interaction, nil
}

func (s *MongoStore) CountInteractions(ctx context.Context, automationID string) (int64, error) {
	oid, err := objectID(automationID)
	if err != nil {
		return 0, err
	}
	return s.interactions.CountDocuments(ctx, bson.M{"automation_id": oid})
}

func (s *MongoStore) CreateInteraction(ctx context.Context, interaction *models.InstagramInteraction) error {
	interaction.CreatedAt = time.Now()
	result, err := s.interactions.InsertOne(ctx, interaction)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		interaction.ID = oid
	}
	return nil
}

func (s *MongoStore) MarkInteractionDMSent(ctx context.Context, id, content string, sentAt time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	_, err = s.interactions.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"dm_sent":    true,
			"dm_content": content,
			"dm_sent_at": sentAt,
		}},
	)
	return err
}

func (s *MongoStore) SetInteractionDMError(ctx context.Context, id, dmError string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	_, err = s.interactions.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"dm_error": dmError}},
	)
	return err
}

func (s *MongoStore) DeleteInteractionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.interactions.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var account models.Account
	found, err := findOne(ctx, s.accounts, bson.M{"_id": oid}, &account)
	if err != nil || !found {
		return nil, err
	}
	return &account, nil
}

func (s *MongoStore) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	oid, err := objectID(userID)
	if err != nil {
		return nil, err
	}
	cursor, err := s.accounts.Find(ctx, bson.M{"user_id": oid})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	accounts := []models.Account{}
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *MongoStore) CreateAccountLog(ctx context.Context, accountID, level, message string) error {
	oid, err := objectID(accountID)
	if err != nil {
		return err
	}
	_, err = s.logs.InsertOne(ctx, models.AccountLog{
		AccountID: oid,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	})
	return err
}

func (s *MongoStore) DeleteAccountLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.logs.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	found, err := findOne(ctx, s.users, bson.M{"username": username}, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) UpsertUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	_, err := s.users.UpdateOne(ctx,
		bson.M{"username": user.Username},
		bson.M{
			"$set":         bson.M{"password_hash": user.PasswordHash, "name": user.Name, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
