package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
)

// ImageCache provides thread-safe caching of decoded masks to avoid
// redundant disk reads when the same file is compared repeatedly.
//
// The cache stores 8-bit grayscale images keyed by their file path. Cached
// masks remain in memory until explicitly removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	mask, err := cache.LoadGray("/path/to/mask.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	score := imaging.IoU(mask, other)
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*image.Gray
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*image.Gray),
	}
}

// LoadGray retrieves a grayscale image from the cache or decodes it from disk.
//
// Color images are converted with the same luminance weights as Plane.Gray.
// The image is cached using the exact path string provided.
func (c *ImageCache) LoadGray(path string) (*image.Gray, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	gray := GrayFromImage(img)

	c.mu.Lock()
	c.images[path] = gray
	c.mu.Unlock()

	return gray, nil
}

// Len reports how many images are cached.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*image.Gray)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// DecodeFile opens and decodes a PNG or JPEG file. The file is closed
// before returning.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// LoadPlane decodes a bitmap file into a Plane.
func LoadPlane(path string) (*Plane, error) {
	img, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return PlaneFromImage(img), nil
}
