package mongodb

import (
	"admin-service/internal/permission"
	apperrors "admin-service/pkg/errors"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(mongo.ErrNoDocuments, errPrincipalNotFound, errFailedGetPrincipal), apperrors.ErrNotFound)

	err := classify(errors.New("server selection timeout"), errPrincipalNotFound, errFailedGetPrincipal)
	assert.ErrorIs(t, err, apperrors.ErrPersistenceFault)
}

func TestPermDocument_RoundTrip(t *testing.T) {
	set := permission.Manager(false)
	doc := toPermDocument(set)
	assert.Equal(t, int32(7), doc["tokens"])

	back, err := fromPermDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, set, back)
}

func TestPermDocument_RejectsOutOfRange(t *testing.T) {
	for _, v := range []int32{-1, 16, 0x1F, 255, 1 << 20} {
		set, err := fromPermDocument(map[string]int32{"jobs": 1, "tokens": v})
		assert.Error(t, err, "value %d", v)
		assert.Nil(t, set)
	}
}

func TestAccessTokenDocument_CorruptPermissionsGrantNothing(t *testing.T) {
	doc := accessTokenDocument{
		ID:          uuid.NewString(),
		User:        uuid.NewString(),
		Name:        "ci",
		Permissions: map[string]int32{"accesstokens": -1},
		IsValid:     true,
	}
	tok, err := doc.toDomain()
	assert.Error(t, err)
	assert.Nil(t, tok)

	m := membershipDocument{
		ID:            uuid.NewString(),
		Administrator: uuid.NewString(),
		Role:          permission.RoleManager,
		Perms:         map[string]int32{"tokens": 31},
	}
	ms, err := m.toDomain()
	assert.Error(t, err)
	assert.Nil(t, ms)
}

func TestPrincipalDocument_BSONFieldNames(t *testing.T) {
	doc := principalDocument{
		ID:        uuid.NewString(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		State:     1,
		Logined:   &loginDocument{LoginedAt: 1700000000000, IP: "10.1.1.1"},
	}

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "Ada", m["firstname"])
	assert.Equal(t, "Lovelace", m["lastName"])
	assert.Contains(t, m, "logined")

	var back principalDocument
	require.NoError(t, bson.Unmarshal(raw, &back))
	p, err := back.toDomain()
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.Name())
	require.NotNil(t, p.LastLogin)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), p.LastLogin.At)
}

func TestAccessTokenDocument_ToDomainRejectsBadIDs(t *testing.T) {
	doc := accessTokenDocument{ID: "not-a-uuid", User: uuid.NewString()}
	_, err := doc.toDomain()
	assert.Error(t, err)
}
