package visual

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studykit/internal/blobstore"
	"studykit/internal/logger"
	"studykit/internal/metrics"
	"studykit/internal/providers"
	"studykit/internal/util"
)

const (
	AspectRatio    = "3:4"
	maxVisualBytes = 25 << 20
)

type Adapter struct {
	providers []providers.NamedImageProvider
	store     blobstore.Store
	client    *http.Client
	log       *logger.Logger
	now       func() time.Time
}

// NewAdapter tries providers in the given order. store may be nil, in which
// case the provider's own location is returned.
func NewAdapter(ps []providers.NamedImageProvider, store blobstore.Store, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{
		providers: ps,
		store:     store,
		client:    &http.Client{Timeout: time.Minute},
		log:       log.With("component", "visual"),
		now:       time.Now,
	}
}

// Render produces one image for prompt and returns its durable URL, or the
// provider URL when storing fails.
func (a *Adapter) Render(ctx context.Context, prompt, title string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("visual").Observe(time.Since(start).Seconds())
	}()
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty visual prompt", util.ErrNoImageProduced)
	}

	var errs []error
	for _, np := range a.providers {
		name := np.Ref.String()
		resp, info, err := np.Provider.Render(ctx, providers.ImageRequest{Operation: "visual", Prompt: prompt, AspectRatio: AspectRatio})
		if err != nil {
			if providers.IsQuota(err) {
				a.log.Warn("image provider quota exhausted, trying next", "provider", name)
				metrics.VisualTotal.WithLabelValues(np.Ref.Name, "quota").Inc()
			} else {
				a.log.Error("image provider failed", "provider", name, "model", info.Model, "error_type", providers.ClassifyError(err), "error", err)
				metrics.VisualTotal.WithLabelValues(np.Ref.Name, "failed").Inc()
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		loc, ok := ExtractURL(resp.Output)
		if !ok {
			a.log.Error("could not extract image url", "provider", name, "output", util.DisplaySnippet(fmt.Sprint(resp.Output), 300))
			metrics.VisualTotal.WithLabelValues(np.Ref.Name, "no_url").Inc()
			errs = append(errs, fmt.Errorf("%s: could not extract image url from response", name))
			continue
		}
		metrics.VisualTotal.WithLabelValues(np.Ref.Name, "succeeded").Inc()
		return a.persist(ctx, loc, title), nil
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("%w: no image provider configured", util.ErrNoImageProduced)
	}
	return "", fmt.Errorf("%w: %w", util.ErrNoImageProduced, errors.Join(errs...))
}

func (a *Adapter) persist(ctx context.Context, loc, title string) string {
	if a.store == nil {
		return loc
	}
	data, contentType, err := a.fetch(ctx, loc)
	if err != nil {
		a.log.Warn("visual download failed, keeping provider url", "error", err)
		return loc
	}
	key := FileName(title, a.now()) + "." + blobstore.ExtensionForContentType(contentType)
	u, err := a.store.Put(ctx, key, data, contentType)
	if err != nil {
		a.log.Warn("visual upload failed, keeping provider url", "key", key, "error", err)
		return loc
	}
	a.log.Info("visual stored", "key", key, "bytes", len(data))
	return u
}

func (a *Adapter) fetch(ctx context.Context, loc string) ([]byte, string, error) {
	if strings.HasPrefix(strings.ToLower(loc), "data:") {
		return decodeDataURL(loc)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download visual: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download visual: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVisualBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read visual: %w", err)
	}
	if len(data) > maxVisualBytes {
		return nil, "", fmt.Errorf("visual exceeds %d bytes", maxVisualBytes)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/webp"
	}
	return data, ct, nil
}

// decodeDataURL accepts data:<type>;base64,<payload>.
func decodeDataURL(s string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data url")
	}
	contentType, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return nil, "", fmt.Errorf("unsupported data url encoding %q", enc)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return data, contentType, nil
}
