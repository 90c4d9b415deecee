package prediction

import (
	"container/list"
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// trainedModel is everything derived from one training frame.
type trainedModel struct {
	forest *Forest
	test   []int
}

type cacheEntry struct {
	key   uint64
	model *trainedModel
}

// modelCache is an LRU of trained models keyed by a hash of the training
// frame and the training parameters. A nil cache never hits.
type modelCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[uint64]*list.Element
}

func newModelCache(capacity int) *modelCache {
	if capacity <= 0 {
		return nil
	}
	return &modelCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[uint64]*list.Element, capacity),
	}
}

func (c *modelCache) get(key uint64) (*trainedModel, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).model, true
}

func (c *modelCache) add(key uint64, m *trainedModel) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).model = m
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, model: m})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *modelCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// frameKey hashes the columns, samples, labels and the parameters that
// influence fitting.
func frameKey(columns []string, X [][]float64, y []int, trees int, seed int64, testFraction float64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	putUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}

	for _, c := range columns {
		d.WriteString(c)
		d.Write([]byte{0})
	}
	putUint(uint64(trees))
	putUint(uint64(seed))
	putUint(math.Float64bits(testFraction))
	putUint(uint64(len(X)))
	for i, row := range X {
		for _, v := range row {
			putUint(math.Float64bits(v))
		}
		putUint(uint64(y[i]))
	}
	return d.Sum64()
}
