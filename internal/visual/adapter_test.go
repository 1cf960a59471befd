package visual

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studykit/internal/providers"
	"studykit/internal/util"

	"github.com/stretchr/testify/require"
)

type fakeImage struct {
	name  string
	out   any
	err   error
	calls int
}

func (f *fakeImage) Render(ctx context.Context, req providers.ImageRequest) (providers.ImageResponse, providers.ProviderInfo, error) {
	f.calls++
	return providers.ImageResponse{Output: f.out}, providers.ProviderInfo{Name: f.name}, f.err
}

func named(p *fakeImage) providers.NamedImageProvider {
	return providers.NamedImageProvider{Ref: providers.ProviderRef{Name: p.name}, Provider: p}
}

type memStore struct {
	puts map[string][]byte
	err  error
}

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.puts == nil {
		m.puts = map[string][]byte{}
	}
	m.puts[key] = data
	return "https://store/" + key, nil
}

func (m *memStore) Delete(ctx context.Context, key string) error { return nil }

func (m *memStore) KeyFromURL(u string) (string, bool) { return "", false }

func fixedNow(a *Adapter) {
	a.now = func() time.Time { return time.UnixMilli(1700000000000) }
}

func TestRenderQuotaFallsBackToNextProvider(t *testing.T) {
	first := &fakeImage{name: "gemini", err: util.ErrQuotaExhausted}
	second := &fakeImage{name: "replicate", out: "data:image/png;base64,aGVsbG8="}
	store := &memStore{}
	a := NewAdapter([]providers.NamedImageProvider{named(first), named(second)}, store, nil)
	fixedNow(a)

	u, err := a.Render(context.Background(), "poster", "Week 1")
	require.NoError(t, err)
	require.Equal(t, "https://store/visual-week-1-1700000000000.png", u)
	require.Equal(t, "hello", string(store.puts["visual-week-1-1700000000000.png"]))
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
}

func TestRenderDownloadsHTTPOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	p := &fakeImage{name: "replicate", out: map[string]any{"output": []any{srv.URL + "/out.jpg"}}}
	store := &memStore{}
	a := NewAdapter([]providers.NamedImageProvider{named(p)}, store, nil)
	fixedNow(a)

	u, err := a.Render(context.Background(), "poster", "Graphs")
	require.NoError(t, err)
	require.Equal(t, "https://store/visual-graphs-1700000000000.jpg", u)
	require.Equal(t, "jpeg-bytes", string(store.puts["visual-graphs-1700000000000.jpg"]))
}

func TestRenderKeepsProviderURLWhenStoreFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("img"))
	}))
	defer srv.Close()

	p := &fakeImage{name: "replicate", out: srv.URL + "/x.webp"}
	a := NewAdapter([]providers.NamedImageProvider{named(p)}, &memStore{err: errors.New("bucket gone")}, nil)
	u, err := a.Render(context.Background(), "poster", "t")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/x.webp", u)
}

func TestRenderAllProvidersFail(t *testing.T) {
	first := &fakeImage{name: "gemini", err: util.ErrQuotaExhausted}
	second := &fakeImage{name: "replicate", err: errors.New("replicate error 500: boom")}
	a := NewAdapter([]providers.NamedImageProvider{named(first), named(second)}, nil, nil)

	_, err := a.Render(context.Background(), "poster", "t")
	require.ErrorIs(t, err, util.ErrNoImageProduced)
	require.ErrorIs(t, err, util.ErrQuotaExhausted)
	require.Contains(t, err.Error(), "replicate error 500")
}

func TestRenderUnextractableOutput(t *testing.T) {
	p := &fakeImage{name: "replicate", out: map[string]any{"status": "succeeded"}}
	_, err := NewAdapter([]providers.NamedImageProvider{named(p)}, nil, nil).Render(context.Background(), "poster", "t")
	require.ErrorIs(t, err, util.ErrNoImageProduced)
}

func TestRenderNoProviders(t *testing.T) {
	_, err := NewAdapter(nil, nil, nil).Render(context.Background(), "poster", "t")
	require.ErrorIs(t, err, util.ErrNoImageProduced)
}

func TestDecodeDataURL(t *testing.T) {
	data, ct, err := decodeDataURL("data:image/gif;base64,R0lG")
	require.NoError(t, err)
	require.Equal(t, "image/gif", ct)
	require.Equal(t, "GIF", string(data))

	_, _, err = decodeDataURL("data:image/png,raw")
	require.Error(t, err)
}
