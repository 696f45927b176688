package telecore

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type component struct {
	name string
}

func TestGuard_InitOnce(t *testing.T) {
	var g Guard[component]

	v, already, err := g.Init(func() (*component, error) {
		return &component{name: "first"}, nil
	})
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "first", v.name)

	// 第二次 Init 不执行 build
	v2, already, err := g.Init(func() (*component, error) {
		t.Fatal("build should not run twice")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, already)
	assert.Same(t, v, v2)
}

func TestGuard_FailedBuildCanRetry(t *testing.T) {
	var g Guard[component]

	wantErr := errors.New("build failed")
	_, _, err := g.Init(func() (*component, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// 失败不缓存状态，允许重试
	assert.Nil(t, g.Get())

	v, already, err := g.Init(func() (*component, error) {
		return &component{name: "retried"}, nil
	})
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "retried", v.name)
}

func TestGuard_GetBeforeInit(t *testing.T) {
	var g Guard[component]
	assert.Nil(t, g.Get())
}

func TestGuard_Reset(t *testing.T) {
	var g Guard[component]

	_, _, err := g.Init(func() (*component, error) {
		return &component{}, nil
	})
	require.NoError(t, err)
	require.NotNil(t, g.Get())

	g.Reset()
	assert.Nil(t, g.Get())
}

func TestGuard_ConcurrentInit(t *testing.T) {
	var g Guard[component]
	var builds int

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = g.Init(func() (*component, error) {
				builds++
				return &component{}, nil
			})
		}()
	}
	wg.Wait()

	// build 在锁内执行，恰好一次
	assert.Equal(t, 1, builds)
	assert.NotNil(t, g.Get())
}
