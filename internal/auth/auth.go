package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/koperasi-orders.git/internal/redisx"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type Identity struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier: kapabilitas "verify credential -> {subject id, role}".
// Penerbitan token bukan urusan service ini.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// RedisVerifier membaca sesi login dari key session:{token}.
type RedisVerifier struct {
	Redis *redis.Client
}

func (v *RedisVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	raw, err := v.Redis.Get(ctx, fmt.Sprintf(redisx.KeySession, token)).Result()
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrInvalidToken
	} else if err != nil {
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return Identity{}, ErrInvalidToken
	}
	if id.UserID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
