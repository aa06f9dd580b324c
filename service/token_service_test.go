package service

import (
	"context"
	"testing"
	"time"

	"github.com/arjunhariram/ent-web/repository"
	"github.com/arjunhariram/ent-web/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_Blacklist(t *testing.T) {
	mr, client := test.NewRedis(t)
	store := repository.NewRedisKVStore(client, test.NewConfig().Redis, test.GetTestLogger())
	tokens := NewTokenService(store, test.GetTestLogger())
	ctx := context.Background()

	blacklisted, err := tokens.IsBlacklisted(ctx, "header.payload.signature")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, tokens.Blacklist(ctx, "header.payload.signature", 30*time.Minute))

	blacklisted, err = tokens.IsBlacklisted(ctx, "header.payload.signature")
	require.NoError(t, err)
	assert.True(t, blacklisted)
	assert.Equal(t, 30*time.Minute, mr.TTL(repository.Key(repository.PrefixBlacklistedToken, "header.payload.signature")))

	mr.FastForward(31 * time.Minute)
	blacklisted, err = tokens.IsBlacklisted(ctx, "header.payload.signature")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestTokenService_BlacklistExpiredToken(t *testing.T) {
	store := repository.NewMemoryKVStore()
	tokens := NewTokenService(store, test.GetTestLogger())
	ctx := context.Background()

	require.NoError(t, tokens.Blacklist(ctx, "expired.token.value", 0))

	blacklisted, err := tokens.IsBlacklisted(ctx, "expired.token.value")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestLogSender_Send(t *testing.T) {
	sender := NewLogSender(test.GetTestLogger())
	assert.NoError(t, sender.Send(context.Background(), testMobile, "12345"))
}
