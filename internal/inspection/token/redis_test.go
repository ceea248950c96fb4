package token

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "fieldservice-inspection/internal/common/errors"
)

func newResolverWithRedis(t *testing.T) (*RedisResolver, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisResolver(client), mr
}

func TestRedisResolver_Resolve(t *testing.T) {
	r, mr := newResolverWithRedis(t)
	require.NoError(t, mr.Set("inspection:token:tok-1",
		`{"ticketId": "ticket-1", "tenantId": "tenant-1", "questionnaireIds": ["qn1", "qn2"]}`))

	grant, err := r.Resolve(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "ticket-1", grant.TicketID)
	assert.Equal(t, "tenant-1", grant.TenantID)
	assert.Equal(t, []string{"qn1", "qn2"}, grant.QuestionnaireIDs)
}

func TestRedisResolver_Resolve_UnknownToken(t *testing.T) {
	r, _ := newResolverWithRedis(t)

	_, err := r.Resolve(context.Background(), "bogus")
	require.Error(t, err)
	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeTokenNotFound, se.Code)
	assert.False(t, se.Retryable)
}

func TestRedisResolver_Resolve_MalformedGrant(t *testing.T) {
	r, mr := newResolverWithRedis(t)
	require.NoError(t, mr.Set("inspection:token:tok-1", "not-json"))

	_, err := r.Resolve(context.Background(), "tok-1")
	require.Error(t, err)
	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeTokenLookupFailed, se.Code)
	assert.True(t, se.Retryable)
}

func TestRedisResolver_Resolve_IncompleteGrant(t *testing.T) {
	r, mr := newResolverWithRedis(t)
	require.NoError(t, mr.Set("inspection:token:tok-1", `{"questionnaireIds": ["qn1"]}`))

	// A grant without ticket/tenant is treated as an unknown token.
	_, err := r.Resolve(context.Background(), "tok-1")
	require.Error(t, err)
	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeTokenNotFound, se.Code)
}

func TestRedisResolver_Resolve_LookupFailure(t *testing.T) {
	r, mr := newResolverWithRedis(t)
	mr.Close()

	_, err := r.Resolve(context.Background(), "tok-1")
	require.Error(t, err)
	se, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeTokenLookupFailed, se.Code)
}
