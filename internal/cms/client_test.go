package cms_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dailycrypto/internal/cms"
	"dailycrypto/internal/cms/mocks"
)

type doc struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cache cms.Cache, mutate func(*cms.Config)) *cms.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := cms.Config{
		ProjectID:   "proj",
		Dataset:     "production",
		APIVersion:  "2024-01-01",
		Perspective: "published",
		APIHost:     srv.URL,
		Timeout:     2 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return cms.NewClient(cfg, cache, zerolog.Nop())
}

func TestClient_Fetch_RequestShape(t *testing.T) {
	var gotReq *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		_, _ = w.Write([]byte(`{"ms":3,"result":[{"_id":"a","title":"Alpha"}]}`))
	}, nil, func(c *cms.Config) { c.Token = "secret" })

	q := cms.Query{
		Type:          "newsPost",
		Filters:       []cms.Filter{cms.Eq("slug.current", "slug", "alpha")},
		ExcludeDrafts: true,
	}

	var docs []doc
	err := client.Fetch(context.Background(), q, cms.NoStore(), &docs)
	require.NoError(t, err)

	require.NotNil(t, gotReq)
	assert.Equal(t, "/v2024-01-01/data/query/production", gotReq.URL.Path)
	assert.Equal(t, `*[_type == "newsPost" && slug.current == $slug && !(_id in path("drafts.**"))]`, gotReq.URL.Query().Get("query"))
	assert.Equal(t, `"alpha"`, gotReq.URL.Query().Get("$slug"))
	assert.Equal(t, "published", gotReq.URL.Query().Get("perspective"))
	assert.Equal(t, "Bearer secret", gotReq.Header.Get("Authorization"))
	assert.Equal(t, []doc{{ID: "a", Title: "Alpha"}}, docs)
}

func TestClient_Fetch_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"queryParseError","description":"unexpected token"}}`))
	}, nil, nil)

	var out json.RawMessage
	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost"}, cms.NoStore(), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, cms.ErrUnexpectedStatus)

	var apiErr *cms.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "queryParseError", apiErr.Type)
	assert.Equal(t, "unexpected token", apiErr.Description)
}

func TestClient_Fetch_StringErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized","statusCode":401}`))
	}, nil, nil)

	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost"}, cms.NoStore(), nil)

	var apiErr *cms.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Unauthorized", apiErr.Description)
}

func TestClient_Fetch_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}, nil, nil)

	var docs []doc
	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost"}, cms.NoStore(), &docs)
	assert.ErrorIs(t, err, cms.ErrDecode)
}

func TestClient_Fetch_NullResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ms":1,"result":null}`))
	}, nil, nil)

	var d *doc
	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost", First: true}, cms.NoStore(), &d)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestClient_Fetch_CachedResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}, cache, nil)

	cache.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return([]byte(`[{"_id":"c","title":"Cached"}]`), true, nil)

	var docs []doc
	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost"}, cms.Revalidate(time.Minute), &docs)
	require.NoError(t, err)
	assert.Equal(t, []doc{{ID: "c", Title: "Cached"}}, docs)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestClient_Fetch_CacheMissStoresResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[{"_id":"n","title":"New"}]}`))
	}, cache, nil)

	gomock.InOrder(
		cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, nil),
		cache.EXPECT().
			Set(gomock.Any(), gomock.Any(), []byte(`[{"_id":"n","title":"New"}]`), time.Minute).
			Return(nil),
	)

	var docs []doc
	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost"}, cms.Revalidate(time.Minute), &docs)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestClient_Fetch_CacheErrorFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[]}`))
	}, cache, nil)

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, errors.New("redis down"))
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	var docs []doc
	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost"}, cms.Revalidate(time.Minute), &docs)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestClient_Fetch_NoStoreSkipsCacheAndCDN(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl) // no expectations: any call fails the test

	var cdnHits, apiHits int32
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&cdnHits, 1)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	t.Cleanup(cdn.Close)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiHits, 1)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}, cache, func(c *cms.Config) {
		c.UseCDN = true
		c.CDNHost = cdn.URL
	})

	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost"}, cms.NoStore(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&apiHits))
	assert.Zero(t, atomic.LoadInt32(&cdnHits))
}

func TestClient_Fetch_RevalidateUsesCDN(t *testing.T) {
	var cdnHits int32
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&cdnHits, 1)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	t.Cleanup(cdn.Close)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("live API should not be called")
	}, nil, func(c *cms.Config) {
		c.UseCDN = true
		c.CDNHost = cdn.URL
	})

	err := client.Fetch(context.Background(), cms.Query{Type: "newsPost"}, cms.Revalidate(time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&cdnHits))
}

func TestClient_Fetch_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":[]}`))
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Fetch(ctx, cms.Query{Type: "newsPost"}, cms.NoStore(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Info_HidesToken(t *testing.T) {
	client := cms.NewClient(cms.Config{ProjectID: "p", Dataset: "d", Token: "t"}, nil, zerolog.Nop())

	info := client.Info()
	assert.Equal(t, "p", info.ProjectID)
	assert.True(t, info.HasToken)
}
