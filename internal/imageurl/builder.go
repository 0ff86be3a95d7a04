// Package imageurl builds CDN URLs for image assets stored in the content source.
package imageurl

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const DefaultBaseURL = "https://cdn.sanity.io"

var ErrInvalidRef = errors.New("invalid image asset reference")

// Builder turns asset references into image URLs for one project/dataset.
type Builder struct {
	baseURL   string
	projectID string
	dataset   string
}

func NewBuilder(projectID, dataset string) *Builder {
	return &Builder{
		baseURL:   DefaultBaseURL,
		projectID: projectID,
		dataset:   dataset,
	}
}

// WithBaseURL overrides the CDN origin.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.baseURL = strings.TrimRight(baseURL, "/")
	return b
}

// Image starts a URL for the given asset reference, e.g.
// "image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg".
func (b *Builder) Image(ref string) *Spec {
	return &Spec{builder: b, ref: ref}
}

// URL is shorthand for Image(ref).Width(w).Height(h).URL(). Zero sizes are omitted.
func (b *Builder) URL(ref string, w, h int) (string, error) {
	return b.Image(ref).Width(w).Height(h).URL()
}

// Spec is a sized image request. Width and Height return the same Spec so calls chain.
type Spec struct {
	builder *Builder
	ref     string
	width   int
	height  int
}

func (s *Spec) Width(w int) *Spec {
	s.width = w
	return s
}

func (s *Spec) Height(h int) *Spec {
	s.height = h
	return s
}

// URL resolves the reference. It fails with ErrInvalidRef when the reference
// does not follow the image-<id>-<w>x<h>-<ext> convention.
func (s *Spec) URL() (string, error) {
	asset, err := parseRef(s.ref)
	if err != nil {
		return "", err
	}
	if s.builder.projectID == "" || s.builder.dataset == "" {
		return "", fmt.Errorf("%w: project and dataset are required", ErrInvalidRef)
	}

	u := fmt.Sprintf("%s/images/%s/%s/%s-%dx%d.%s",
		s.builder.baseURL, s.builder.projectID, s.builder.dataset,
		asset.id, asset.width, asset.height, asset.format)

	q := url.Values{}
	if s.width > 0 {
		q.Set("w", strconv.Itoa(s.width))
	}
	if s.height > 0 {
		q.Set("h", strconv.Itoa(s.height))
	}
	if s.width > 0 && s.height > 0 {
		q.Set("fit", "crop")
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u, nil
}

type assetRef struct {
	id     string
	width  int
	height int
	format string
}

func parseRef(ref string) (assetRef, error) {
	parts := strings.Split(ref, "-")
	if len(parts) != 4 || parts[0] != "image" || parts[1] == "" || parts[3] == "" {
		return assetRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	dims := strings.SplitN(parts[2], "x", 2)
	if len(dims) != 2 {
		return assetRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	w, errW := strconv.Atoi(dims[0])
	h, errH := strconv.Atoi(dims[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return assetRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}

	return assetRef{id: parts[1], width: w, height: h, format: parts[3]}, nil
}

// Resize applies a size to an already resolved CDN image URL. URLs served
// from elsewhere are returned unchanged.
func (b *Builder) Resize(rawURL string, w, h int) string {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.HasPrefix(u.Path, "/images/") {
		return rawURL
	}
	base, err := url.Parse(b.baseURL)
	if err != nil || u.Host != base.Host {
		return rawURL
	}

	q := u.Query()
	if w > 0 {
		q.Set("w", strconv.Itoa(w))
	}
	if h > 0 {
		q.Set("h", strconv.Itoa(h))
	}
	if w > 0 && h > 0 {
		q.Set("fit", "crop")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
