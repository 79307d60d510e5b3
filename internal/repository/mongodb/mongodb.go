// Package mongodb stores administrators, memberships and access token records
// in the administrators, memberships and accesstokens collections of a MongoDB
// database.
package mongodb

import (
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/membership"
	"admin-service/internal/domain/principal"
	"admin-service/internal/repository"
	apperrors "admin-service/pkg/errors"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	connectTimeout = 10 * time.Second

	errPrincipalNotFound   = "principal not found"
	errMembershipNotFound  = "membership not found"
	errAccessTokenNotFound = "access token not found"
	errUsernameTaken       = "username or email already exists"
	errTokenNameTaken      = "access token name already exists for principal"
	errInvalidPermissions  = "invalid permissions"
	errCorruptDocument     = "corrupt document"

	errFailedConnectFmt        = "failed to connect to mongo: %w"
	errFailedPingFmt           = "failed to ping mongo: %w"
	errFailedCreateIndexesFmt  = "failed to create indexes: %w"
	errFailedCreatePrincipal   = "failed to create principal"
	errFailedGetPrincipal      = "failed to get principal"
	errFailedRecordLogin       = "failed to record login"
	errFailedDeletePrincipal   = "failed to delete principal"
	errFailedCreateMembership  = "failed to create membership"
	errFailedListMemberships   = "failed to list memberships"
	errFailedDeleteMembership  = "failed to delete membership"
	errFailedCreateAccessToken = "failed to create access token"
	errFailedGetAccessToken    = "failed to get access token"
	errFailedUpdateAccessToken = "failed to update access token"
	errFailedDeleteAccessToken = "failed to delete access token"
)

type DB struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// Connect dials uri, pings the primary and ensures the unique indexes exist.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf(errFailedConnectFmt, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf(errFailedPingFmt, err)
	}

	db := &DB{client: client, db: client.Database(database), now: time.Now}
	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return db, nil
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	if _, err := db.db.Collection(collAdministrators).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	}); err != nil {
		return fmt.Errorf(errFailedCreateIndexesFmt, err)
	}

	if _, err := db.db.Collection(collMemberships).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "administrator", Value: 1}},
	}); err != nil {
		return fmt.Errorf(errFailedCreateIndexesFmt, err)
	}

	if _, err := db.db.Collection(collAccessTokens).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "user", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf(errFailedCreateIndexesFmt, err)
	}

	return nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// Store returns the mongo-backed repositories sharing this client.
func (db *DB) Store() repository.Store {
	return repository.Store{
		Principals:   &PrincipalRepository{db: db},
		Memberships:  &MembershipRepository{db: db},
		AccessTokens: &AccessTokenRepository{db: db},
		Close:        db.Close,
	}
}

func classify(err error, notFoundMsg, faultMsg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound(notFoundMsg)
	}
	return apperrors.PersistenceFault(faultMsg, err)
}

type PrincipalRepository struct {
	db *DB
}

func (r *PrincipalRepository) coll() *mongo.Collection {
	return r.db.db.Collection(collAdministrators)
}

func (r *PrincipalRepository) Create(ctx context.Context, input principal.CreatePrincipalInput) (*principal.Principal, error) {
	now := r.db.now().UTC()
	doc := principalDocument{
		ID:           uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     input.Username,
		Phone:        input.Phone,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		State:        int(input.State),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.BadRequest(errUsernameTaken)
		}
		return nil, apperrors.PersistenceFault(errFailedCreatePrincipal, err)
	}

	return doc.toDomain()
}

func (r *PrincipalRepository) GetByID(ctx context.Context, id uuid.UUID) (*principal.Principal, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *PrincipalRepository) GetByUsername(ctx context.Context, username string) (*principal.Principal, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *PrincipalRepository) findOne(ctx context.Context, filter bson.M) (*principal.Principal, error) {
	var doc principalDocument
	if err := r.coll().FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, classify(err, errPrincipalNotFound, errFailedGetPrincipal)
	}

	p, err := doc.toDomain()
	if err != nil {
		return nil, apperrors.PersistenceFault(errCorruptDocument, err)
	}
	return p, nil
}

func (r *PrincipalRepository) RecordLogin(ctx context.Context, id uuid.UUID, login principal.Login) error {
	update := bson.M{"$set": bson.M{
		"logined":   loginDocument{LoginedAt: login.At.UnixMilli(), IP: login.IP},
		"updatedAt": r.db.now().UTC(),
	}}

	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return apperrors.PersistenceFault(errFailedRecordLogin, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound(errPrincipalNotFound)
	}
	return nil
}

// Delete removes the principal and its memberships.
func (r *PrincipalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return apperrors.PersistenceFault(errFailedDeletePrincipal, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(errPrincipalNotFound)
	}

	if _, err := r.db.db.Collection(collMemberships).DeleteMany(ctx, bson.M{"administrator": id.String()}); err != nil {
		return apperrors.PersistenceFault(errFailedDeleteMembership, err)
	}
	return nil
}

type MembershipRepository struct {
	db *DB
}

func (r *MembershipRepository) coll() *mongo.Collection {
	return r.db.db.Collection(collMemberships)
}

func (r *MembershipRepository) Create(ctx context.Context, input membership.CreateMembershipInput) (*membership.Membership, error) {
	if err := input.Permissions.Validate(); err != nil {
		return nil, apperrors.BadRequest(errInvalidPermissions)
	}

	doc := membershipDocument{
		ID:            uuid.NewString(),
		Administrator: input.PrincipalID.String(),
		Role:          input.Role,
		Perms:         toPermDocument(input.Permissions),
	}
	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		return nil, apperrors.PersistenceFault(errFailedCreateMembership, err)
	}

	return doc.toDomain()
}

func (r *MembershipRepository) ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*membership.Membership, error) {
	cur, err := r.coll().Find(ctx, bson.M{"administrator": principalID.String()}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, apperrors.PersistenceFault(errFailedListMemberships, err)
	}

	var docs []membershipDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperrors.PersistenceFault(errFailedListMemberships, err)
	}

	out := make([]*membership.Membership, 0, len(docs))
	for i := range docs {
		m, err := docs[i].toDomain()
		if err != nil {
			return nil, apperrors.PersistenceFault(errCorruptDocument, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *MembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return apperrors.PersistenceFault(errFailedDeleteMembership, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(errMembershipNotFound)
	}
	return nil
}

type AccessTokenRepository struct {
	db *DB
}

func (r *AccessTokenRepository) coll() *mongo.Collection {
	return r.db.db.Collection(collAccessTokens)
}

func (r *AccessTokenRepository) Create(ctx context.Context, input accesstoken.CreateAccessTokenInput) (*accesstoken.AccessToken, error) {
	if err := input.Permissions.Validate(); err != nil {
		return nil, apperrors.BadRequest(errInvalidPermissions)
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := r.db.now().UTC()
	doc := accessTokenDocument{
		ID:          id.String(),
		User:        input.PrincipalID.String(),
		Name:        input.Name,
		Token:       input.Token,
		Permissions: toPermDocument(input.Permissions),
		IsValid:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.BadRequest(errTokenNameTaken)
		}
		return nil, apperrors.PersistenceFault(errFailedCreateAccessToken, err)
	}

	return doc.toDomain()
}

func (r *AccessTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*accesstoken.AccessToken, error) {
	var doc accessTokenDocument
	if err := r.coll().FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, classify(err, errAccessTokenNotFound, errFailedGetAccessToken)
	}

	t, err := doc.toDomain()
	if err != nil {
		return nil, apperrors.PersistenceFault(errCorruptDocument, err)
	}
	return t, nil
}

func (r *AccessTokenRepository) SetValidity(ctx context.Context, id uuid.UUID, valid bool) error {
	update := bson.M{"$set": bson.M{"isValid": valid, "updatedAt": r.db.now().UTC()}}

	res, err := r.coll().UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return apperrors.PersistenceFault(errFailedUpdateAccessToken, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound(errAccessTokenNotFound)
	}
	return nil
}

func (r *AccessTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return apperrors.PersistenceFault(errFailedDeleteAccessToken, err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(errAccessTokenNotFound)
	}
	return nil
}
