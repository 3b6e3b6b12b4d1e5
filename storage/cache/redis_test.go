package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheduleme/backend/core"
)

func TestRedisCache_unreachable(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	c := NewRedisCache(client, nil, core.NewTestConfig())
	defer func() { _ = c.Close() }()

	tests := []struct {
		name    string
		call    func() error
		wantMsg string
	}{
		{name: "ping", call: func() error { return c.Ping(ctx) }, wantMsg: "pinging redis: "},
		{name: "generation", call: func() error { _, err := c.Generation(ctx); return err }, wantMsg: "getting cache generation: "},
		{name: "get", call: func() error { _, _, err := c.Get(ctx, "k"); return err }, wantMsg: "getting k from redis: "},
		{name: "set", call: func() error { return c.Set(ctx, "k", []byte("v")) }, wantMsg: "setting k in redis: "},
		{name: "invalidate", call: func() error { return c.Invalidate(ctx) }, wantMsg: "bumping cache generation: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), tt.wantMsg), err.Error())
			assert.NotEqual(t, err, errors.Cause(err), "error is not wrapped")
		})
	}
}
