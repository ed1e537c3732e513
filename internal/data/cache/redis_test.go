package cache

import (
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_GetHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedis(client)

	mock.ExpectGet("scores:factor:pe:AAPL").SetVal("0.75")

	val, ok := store.Get("scores:factor:pe:AAPL")
	require.True(t, ok)
	assert.Equal(t, []byte("0.75"), val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_GetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedis(client)

	mock.ExpectGet("missing").RedisNil()

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_Set(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedis(client)

	mock.ExpectSet("k", []byte("v"), time.Minute).SetVal("OK")

	store.Set("k", []byte("v"), time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_RoundTripCodec(t *testing.T) {
	type payload struct {
		Symbol string  `msgpack:"symbol"`
		Score  float64 `msgpack:"score"`
	}
	in := payload{Symbol: "AAPL", Score: 0.82}

	encoded, err := Encode(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, Decode(encoded, &out))
	assert.Equal(t, in, out)
}
