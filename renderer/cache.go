package renderer

import "sync"

// ResourceCache shares GPU textures and programs between nodes. Textures are
// keyed by file path (or a synthetic key such as "sdf-<font>"), programs by
// their shader file set and parameters.
//
// Entries live until Destroy; nothing is evicted.
type ResourceCache struct {
	mu       sync.Mutex
	textures map[string]uint32
	programs map[string]*Program
}

func NewResourceCache() *ResourceCache {
	return &ResourceCache{
		textures: make(map[string]uint32),
		programs: make(map[string]*Program),
	}
}

func (c *ResourceCache) Texture(key string) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tex, ok := c.textures[key]
	return tex, ok
}

func (c *ResourceCache) PutTexture(key string, tex uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textures[key] = tex
}

// TextureCount returns the number of cached textures.
func (c *ResourceCache) TextureCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.textures)
}

func (c *ResourceCache) Program(key string) (*Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.programs[key]
	return p, ok
}

func (c *ResourceCache) PutProgram(key string, p *Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = p
}

// Destroy deletes every cached object and empties the cache.
func (c *ResourceCache) Destroy(dev Device) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, tex := range c.textures {
		dev.DeleteTexture(tex)
		delete(c.textures, key)
	}
	for key, p := range c.programs {
		dev.DeleteProgram(p.ID)
		delete(c.programs, key)
	}
}
