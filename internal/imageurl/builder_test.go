package imageurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec_URL(t *testing.T) {
	b := NewBuilder("proj", "production")

	cases := []struct {
		name string
		spec *Spec
		want string
	}{
		{
			name: "unsized",
			spec: b.Image("image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg"),
			want: "https://cdn.sanity.io/images/proj/production/Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000.jpg",
		},
		{
			name: "width and height crop",
			spec: b.Image("image-abc-1200x800-png").Width(1200).Height(675),
			want: "https://cdn.sanity.io/images/proj/production/abc-1200x800.png?fit=crop&h=675&w=1200",
		},
		{
			name: "width only",
			spec: b.Image("image-abc-1200x800-webp").Width(400),
			want: "https://cdn.sanity.io/images/proj/production/abc-1200x800.webp?w=400",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.spec.URL()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSpec_URL_InvalidRef(t *testing.T) {
	b := NewBuilder("proj", "production")

	for _, ref := range []string{
		"",
		"file-abc-100x100-pdf",
		"image-abc-jpg",
		"image-abc-0x100-jpg",
		"image-abc-axb-jpg",
		"image--100x100-jpg",
	} {
		t.Run(ref, func(t *testing.T) {
			_, err := b.Image(ref).Width(10).URL()
			assert.ErrorIs(t, err, ErrInvalidRef)
		})
	}
}

func TestSpec_URL_MissingProject(t *testing.T) {
	_, err := NewBuilder("", "production").Image("image-abc-100x100-jpg").URL()
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestBuilder_WithBaseURL(t *testing.T) {
	b := NewBuilder("p", "d").WithBaseURL("http://localhost:9999/")

	got, err := b.Image("image-x-10x20-gif").URL()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/images/p/d/x-10x20.gif", got)
}

func TestBuilder_Resize(t *testing.T) {
	b := NewBuilder("p", "d")

	assert.Equal(t,
		"https://cdn.sanity.io/images/p/d/x-10x20.jpg?fit=crop&h=630&w=1200",
		b.Resize("https://cdn.sanity.io/images/p/d/x-10x20.jpg", 1200, 630))
	assert.Equal(t,
		"https://cdn.sanity.io/images/p/d/x-10x20.jpg?fit=crop&h=630&w=1200",
		b.Resize("https://cdn.sanity.io/images/p/d/x-10x20.jpg?w=64", 1200, 630))

	for _, u := range []string{
		"https://images.pexels.com/photos/1.jpeg",
		"/static/img/placeholder.svg",
		"https://cdn.sanity.io/files/p/d/doc.pdf",
	} {
		assert.Equal(t, u, b.Resize(u, 1200, 630))
	}
}
