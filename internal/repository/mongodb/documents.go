package mongodb

import (
	"admin-service/internal/domain/accesstoken"
	"admin-service/internal/domain/membership"
	"admin-service/internal/domain/principal"
	"admin-service/internal/permission"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	collAdministrators = "administrators"
	collMemberships    = "memberships"
	collAccessTokens   = "accesstokens"

	errPermOutOfRangeFmt = "stored permission %d for %s out of range"
)

type loginDocument struct {
	LoginedAt int64  `bson:"logined_at"`
	IP        string `bson:"ip"`
}

type principalDocument struct {
	ID           string         `bson:"_id"`
	FirstName    string         `bson:"firstname"`
	LastName     string         `bson:"lastName"`
	Username     string         `bson:"username"`
	Phone        string         `bson:"phone"`
	Email        string         `bson:"email"`
	PasswordHash string         `bson:"password"`
	State        int            `bson:"state"`
	Logined      *loginDocument `bson:"logined,omitempty"`
	CreatedAt    time.Time      `bson:"createdAt"`
	UpdatedAt    time.Time      `bson:"updatedAt"`
}

type membershipDocument struct {
	ID            string           `bson:"_id"`
	Administrator string           `bson:"administrator"`
	Role          string           `bson:"role"`
	Perms         map[string]int32 `bson:"perms"`
}

type accessTokenDocument struct {
	ID          string           `bson:"_id"`
	User        string           `bson:"user"`
	Name        string           `bson:"name"`
	Token       string           `bson:"token"`
	Permissions map[string]int32 `bson:"permissions"`
	IsValid     bool             `bson:"isValid"`
	CreatedAt   time.Time        `bson:"createdAt"`
	UpdatedAt   time.Time        `bson:"updatedAt"`
}

func toPermDocument(s permission.Set) map[string]int32 {
	out := make(map[string]int32, len(s))
	for c, m := range s {
		out[string(c)] = int32(m)
	}
	return out
}

// fromPermDocument refuses stored values outside [0,15]. Narrowing them
// would turn garbage into granted rights.
func fromPermDocument(d map[string]int32) (permission.Set, error) {
	out := make(permission.Set, len(d))
	for c, v := range d {
		if v < int32(permission.MaskNone) || v > int32(permission.MaskAll) {
			return nil, fmt.Errorf(errPermOutOfRangeFmt, v, c)
		}
		out[permission.Category(c)] = permission.Mask(v)
	}
	return out, nil
}

func (d *principalDocument) toDomain() (*principal.Principal, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}

	p := &principal.Principal{
		ID:           id,
		Username:     d.Username,
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Phone:        d.Phone,
		PasswordHash: d.PasswordHash,
		State:        principal.State(d.State),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.Logined != nil && d.Logined.LoginedAt > 0 {
		p.LastLogin = &principal.Login{At: time.UnixMilli(d.Logined.LoginedAt).UTC(), IP: d.Logined.IP}
	}
	return p, nil
}

func (d *membershipDocument) toDomain() (*membership.Membership, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	pid, err := uuid.Parse(d.Administrator)
	if err != nil {
		return nil, err
	}
	perms, err := fromPermDocument(d.Perms)
	if err != nil {
		return nil, err
	}
	return &membership.Membership{
		ID:          id,
		PrincipalID: pid,
		Role:        d.Role,
		Permissions: perms,
	}, nil
}

func (d *accessTokenDocument) toDomain() (*accesstoken.AccessToken, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	pid, err := uuid.Parse(d.User)
	if err != nil {
		return nil, err
	}
	perms, err := fromPermDocument(d.Permissions)
	if err != nil {
		return nil, err
	}
	return &accesstoken.AccessToken{
		ID:          id,
		PrincipalID: pid,
		Name:        d.Name,
		Token:       d.Token,
		Permissions: perms,
		IsValid:     d.IsValid,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}
