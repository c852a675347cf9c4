package rembg

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chaos-io/cutout/matting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	fail    map[string]error
	loads   []string
	maskW   int
	maskH   int
	maskVal uint8
}

func (f *fakeBackend) Load(ctx context.Context, variant string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, variant)
	return f.fail[variant]
}

func (f *fakeBackend) Predict(ctx context.Context, variant string, img *matting.PixelBuffer) (*matting.Mask, error) {
	m := matting.NewMask(f.maskW, f.maskH)
	for i := range m.Pix {
		m.Pix[i] = f.maskVal
	}
	return m, nil
}

func (f *fakeBackend) loadCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

func TestModel_InitFallback(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{fail: map[string]error{"isnet-general-use": errors.New("oom")}}
	m := NewModel(b, nil, nil)

	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, "RMBG-1.4", m.ModelID())

	// 已加载后不再调用 Load
	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, []string{"isnet-general-use", "RMBG-1.4"}, b.loadCalls())
}

func TestModel_InitAllFail(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{fail: map[string]error{
		"a": errors.New("a down"),
		"b": errors.New("b down"),
	}}
	m := NewModel(b, []string{"a", "b"}, nil)

	err := m.Init(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoModel)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")
	assert.Empty(t, m.ModelID())

	// 失败后下次调用重新尝试
	b.mu.Lock()
	delete(b.fail, "b")
	b.mu.Unlock()
	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, "b", m.ModelID())
}

func TestModel_ConcurrentInitLoadsOnce(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	m := NewModel(b, []string{"only"}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Init(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"only"}, b.loadCalls())
}

func TestModel_SegmentResizesMask(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{maskW: 4, maskH: 3, maskVal: 200}
	m := NewModel(b, []string{"v"}, nil)

	img := matting.NewPixelBuffer(8, 6)
	mask, err := m.Segment(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, 8, mask.Width)
	assert.Equal(t, 6, mask.Height)
	for _, v := range mask.Pix {
		assert.Equal(t, uint8(200), v)
	}
}

func TestModel_Warm(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{}
	m := NewModel(b, []string{"v"}, nil)

	// 未加载时等同于 Init
	require.NoError(t, m.Warm(context.Background()))
	require.NoError(t, m.Warm(context.Background()))
	assert.Equal(t, []string{"v", "v"}, b.loadCalls())

	b.mu.Lock()
	b.fail = map[string]error{"v": errors.New("evicted")}
	b.mu.Unlock()
	assert.ErrorContains(t, m.Warm(context.Background()), "warm v: evicted")
}

func TestAlphaBackend(t *testing.T) {
	t.Parallel()

	img := matting.NewPixelBuffer(2, 1)
	img.Pix[3], img.Pix[7] = 255, 40
	assert.True(t, HasUsefulAlpha(img))

	m := NewModel(NewAlphaBackend(), nil, nil)
	mask, err := m.Segment(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 40}, mask.Pix)

	img.Pix[7] = 255
	assert.False(t, HasUsefulAlpha(img))
}

func TestResizeMask(t *testing.T) {
	t.Parallel()

	m := matting.NewMask(2, 2)
	assert.Same(t, m, ResizeMask(m, 2, 2))

	for i := range m.Pix {
		m.Pix[i] = 90
	}
	got := ResizeMask(m, 5, 7)
	assert.Equal(t, 5, got.Width)
	assert.Equal(t, 7, got.Height)
	assert.Len(t, got.Pix, 35)
	for _, v := range got.Pix {
		assert.Equal(t, uint8(90), v)
	}
}

func TestResizeWithinMax(t *testing.T) {
	t.Parallel()

	img := matting.NewPixelBuffer(2048, 1024).Image()
	got := resizeWithinMax(img, 1024)
	assert.Equal(t, 1024, got.Bounds().Dx())
	assert.Equal(t, 512, got.Bounds().Dy())

	small := matting.NewPixelBuffer(10, 10).Image()
	assert.Same(t, small, resizeWithinMax(small, 1024))
}

type blockingBackend struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Load(ctx context.Context, variant string) error {
	close(b.started)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingBackend) Predict(ctx context.Context, variant string, img *matting.PixelBuffer) (*matting.Mask, error) {
	return matting.NewMask(img.Width, img.Height), nil
}

func TestModel_ModelIDDoesNotWaitForLoad(t *testing.T) {
	t.Parallel()

	b := &blockingBackend{started: make(chan struct{}), release: make(chan struct{})}
	m := NewModel(b, []string{"RMBG-1.4"}, nil)

	initErr := make(chan error, 1)
	go func() { initErr <- m.Init(context.Background()) }()
	<-b.started

	id := make(chan string, 1)
	go func() { id <- m.ModelID() }()
	select {
	case got := <-id:
		assert.Empty(t, got)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("ModelID waited for the running load")
	}

	close(b.release)
	require.NoError(t, <-initErr)
	assert.Equal(t, "RMBG-1.4", m.ModelID())
}
