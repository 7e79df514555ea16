package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore is a mock implementation of the ImageStore interface for testing.
type mockStore struct {
	putFunc  func(ctx context.Context, key string, body []byte, contentType string) error
	openFunc func(ctx context.Context, key string) (*Object, error)
}

func (m *mockStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if m.putFunc != nil {
		return m.putFunc(ctx, key, body, contentType)
	}
	return errors.New("not implemented")
}

func (m *mockStore) Open(ctx context.Context, key string) (*Object, error) {
	if m.openFunc != nil {
		return m.openFunc(ctx, key)
	}
	return nil, errors.New("not implemented")
}

func object(body string) *Object {
	return &Object{Body: io.NopCloser(strings.NewReader(body)), ContentType: "image/png"}
}

func TestFallbackStore_PrimarySuccess(t *testing.T) {
	primary := &mockStore{
		putFunc: func(ctx context.Context, key string, body []byte, contentType string) error { return nil },
	}
	secondary := &mockStore{
		putFunc: func(ctx context.Context, key string, body []byte, contentType string) error {
			t.Error("secondary should not be called when primary succeeds")
			return nil
		},
	}

	store := NewFallbackStore(primary, secondary, zerolog.Nop())
	assert.NoError(t, store.Put(context.Background(), "k.png", []byte("x"), "image/png"))
}

func TestFallbackStore_PrimaryFailsFallsBack(t *testing.T) {
	var stored string
	primary := &mockStore{
		putFunc: func(ctx context.Context, key string, body []byte, contentType string) error {
			return errors.New("S3 unavailable")
		},
		openFunc: func(ctx context.Context, key string) (*Object, error) { return nil, ErrNotFound },
	}
	secondary := &mockStore{
		putFunc: func(ctx context.Context, key string, body []byte, contentType string) error {
			stored = key
			return nil
		},
		openFunc: func(ctx context.Context, key string) (*Object, error) { return object("local"), nil },
	}

	store := NewFallbackStore(primary, secondary, zerolog.Nop())

	require.NoError(t, store.Put(context.Background(), "k.png", []byte("x"), "image/png"))
	assert.Equal(t, "k.png", stored)

	obj, err := store.Open(context.Background(), "k.png")
	require.NoError(t, err)
	body, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "local", string(body))
}

func TestFallbackStore_NilPrimary(t *testing.T) {
	secondary := &mockStore{
		openFunc: func(ctx context.Context, key string) (*Object, error) { return object("local"), nil },
	}

	store := NewFallbackStore(nil, secondary, zerolog.Nop())

	obj, err := store.Open(context.Background(), "k.png")
	require.NoError(t, err)
	assert.NotNil(t, obj)
}

func TestFallbackStore_BothFail(t *testing.T) {
	failing := &mockStore{
		putFunc: func(ctx context.Context, key string, body []byte, contentType string) error {
			return errors.New("disk full")
		},
	}

	store := NewFallbackStore(failing, failing, zerolog.Nop())
	err := store.Put(context.Background(), "k.png", []byte("x"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
