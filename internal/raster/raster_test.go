package raster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"thumbcache/internal/errdefs"
	"thumbcache/internal/geometry"
	"thumbcache/internal/imageinfo"
)

// memStore keeps files in memory.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (m *memStore) Read(path string, maxBytes int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, errdefs.ErrFileSystem
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		data = data[:maxBytes]
	}
	return data, nil
}

func (m *memStore) Write(path string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
	return nil
}

// gradientPNG encodes a width x height image whose left half is red and right
// half is blue.
func gradientPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= width/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	store := newMemStore()

	e, err := New("", Options{Store: store})
	if err != nil {
		t.Fatalf("New(\"\") error = %v", err)
	}
	if e.Name() != DefaultEngine {
		t.Errorf("default engine = %q, want %q", e.Name(), DefaultEngine)
	}

	if _, err := New("gd", Options{Store: store}); !errors.Is(err, errdefs.ErrConfiguration) {
		t.Errorf("New(gd) error = %v, want ErrConfiguration", err)
	}
	if _, err := New("imaging", Options{}); !errors.Is(err, errdefs.ErrConfiguration) {
		t.Errorf("New without store error = %v, want ErrConfiguration", err)
	}

	names := Names()
	if len(names) != 2 || names[0] != "imaging" || names[1] != "vips" {
		t.Errorf("Names() = %v", names)
	}
}

func TestImagingCropAndResize(t *testing.T) {
	store := newMemStore()
	store.files["/web/orig.png"] = gradientPNG(t, 400, 200)

	e, err := New("imaging", Options{Store: store, JPEGQuality: 90})
	if err != nil {
		t.Fatal(err)
	}

	// Keep only the right (blue) half.
	crop := geometry.Rect{X: 200, Y: 0, Width: 200, Height: 200}
	targets := []Target{
		{Width: 50, Height: 50, Path: "/thumbs/a.jpg"},
		{Width: 100, Height: 100, Path: "/thumbs/@2/a.png"},
		{Width: 20, Height: 20, Path: "/thumbs/a.gif"},
	}
	if err := e.CropAndResize(context.Background(), "/web/orig.png", crop, targets); err != nil {
		t.Fatalf("CropAndResize: %v", err)
	}

	want := map[string]imageinfo.Format{
		"/thumbs/a.jpg":    imageinfo.JPEG,
		"/thumbs/@2/a.png": imageinfo.PNG,
		"/thumbs/a.gif":    imageinfo.GIF,
	}
	for _, tgt := range targets {
		data, ok := store.files[tgt.Path]
		if !ok {
			t.Fatalf("%s was not written", tgt.Path)
		}
		info, err := imageinfo.Decode(data)
		if err != nil {
			t.Fatalf("%s: %v", tgt.Path, err)
		}
		if info.Width != tgt.Width || info.Height != tgt.Height {
			t.Errorf("%s is %dx%d, want %dx%d", tgt.Path, info.Width, info.Height, tgt.Width, tgt.Height)
		}
		if info.Format != want[tgt.Path] {
			t.Errorf("%s format = %v, want %v", tgt.Path, info.Format, want[tgt.Path])
		}
	}

	img, err := png.Decode(bytes.NewReader(store.files["/thumbs/@2/a.png"]))
	if err != nil {
		t.Fatal(err)
	}
	r, _, b, _ := img.At(50, 50).RGBA()
	if b < 0xF000 || r > 0x1000 {
		t.Errorf("cropped pixel = r %#x b %#x, want blue from the right half", r, b)
	}
}

func TestImagingErrors(t *testing.T) {
	store := newMemStore()
	store.files["/web/orig.png"] = gradientPNG(t, 40, 20)
	store.files["/web/text.png"] = []byte("not an image")

	e, err := New("imaging", Options{Store: store})
	if err != nil {
		t.Fatal(err)
	}
	full := geometry.Rect{Width: 40, Height: 20}
	ctx := context.Background()

	tests := []struct {
		name    string
		source  string
		crop    geometry.Rect
		targets []Target
		want    error
	}{
		{"missing source", "/web/missing.png", full, []Target{{10, 5, "/t/a.png"}}, errdefs.ErrFileSystem},
		{"undecodable source", "/web/text.png", full, []Target{{10, 5, "/t/a.png"}}, errdefs.ErrUnsupportedImageType},
		{"crop outside image", "/web/orig.png", geometry.Rect{X: 30, Width: 20, Height: 20}, []Target{{10, 5, "/t/a.png"}}, errdefs.ErrUnsupportedImageType},
		{"unknown output format", "/web/orig.png", full, []Target{{10, 5, "/t/a.xyz"}}, errdefs.ErrUnsupportedImageType},
		{"empty target", "/web/orig.png", full, []Target{{0, 5, "/t/a.png"}}, errdefs.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CropAndResize(ctx, tt.source, tt.crop, tt.targets)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if _, ok := store.files[tt.targets[0].Path]; ok {
				t.Error("nothing should be written when validation fails")
			}
		})
	}
}

func TestImagingHonorsCancellation(t *testing.T) {
	store := newMemStore()
	store.files["/web/orig.png"] = gradientPNG(t, 40, 20)
	e, _ := New("imaging", Options{Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.CropAndResize(ctx, "/web/orig.png", geometry.Rect{Width: 40, Height: 20}, []Target{{10, 5, "/t/a.png"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestImagingNoTargets(t *testing.T) {
	e, _ := New("imaging", Options{Store: newMemStore()})
	if err := e.CropAndResize(context.Background(), "/missing", geometry.Rect{}, nil); err != nil {
		t.Errorf("CropAndResize with no targets = %v, want nil", err)
	}
}

func TestVipsEngineIfAvailable(t *testing.T) {
	store := newMemStore()
	store.files["/web/orig.png"] = gradientPNG(t, 400, 200)

	e, err := New("vips", Options{Store: store})
	if err != nil {
		if errors.Is(err, errdefs.ErrEngineUnavailable) {
			t.Skipf("libvips not available: %v", err)
		}
		t.Fatalf("New(vips): %v", err)
	}

	err = e.CropAndResize(context.Background(), "/web/orig.png",
		geometry.Rect{X: 0, Y: 0, Width: 400, Height: 200},
		[]Target{{Width: 100, Height: 50, Path: "/thumbs/v.jpg"}})
	if err != nil {
		t.Fatalf("CropAndResize: %v", err)
	}
	info, err := imageinfo.Decode(store.files["/thumbs/v.jpg"])
	if err != nil {
		t.Fatal(err)
	}
	if info.Width < 99 || info.Width > 101 || info.Height < 49 || info.Height > 51 {
		t.Errorf("vips output = %dx%d, want about 100x50", info.Width, info.Height)
	}
}
