package workload

import (
	"context"

	"github.com/bytedance/gopkg/util/gopool"
	logger "github.com/moontrade/log"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/moontrade/parklock/pkg/util"
)

// Spawner starts worker functions on their own goroutine.
type Spawner interface {
	Go(fn func()) error
	Close()
}

// Spawner names accepted by NewSpawner.
const (
	SpawnerAnts   = "ants"
	SpawnerGopool = "gopool"
	SpawnerGo     = "go"
)

// NewSpawner returns a spawner able to run size workers at once.
func NewSpawner(name string, size int) (Spawner, error) {
	if size < 1 {
		size = 1
	}
	switch name {
	case SpawnerAnts, "":
		pool, err := ants.NewPool(size, ants.WithPanicHandler(func(e interface{}) {
			logger.Error(util.PanicToError(e), "ants worker panic")
		}))
		if err != nil {
			return nil, errors.Wrap(err, "workload: ants pool")
		}
		return &antsSpawner{pool: pool}, nil
	case SpawnerGopool:
		pool := gopool.NewPool("parklock", int32(size), gopool.NewConfig())
		pool.SetPanicHandler(func(_ context.Context, e interface{}) {
			logger.Error(util.PanicToError(e), "gopool worker panic")
		})
		return &gopoolSpawner{pool: pool}, nil
	case SpawnerGo:
		return goSpawner{}, nil
	default:
		return nil, errors.Errorf("workload: unknown spawner %q", name)
	}
}

type antsSpawner struct {
	pool *ants.Pool
}

func (s *antsSpawner) Go(fn func()) error {
	return s.pool.Submit(fn)
}

func (s *antsSpawner) Close() {
	s.pool.Release()
}

type gopoolSpawner struct {
	pool gopool.Pool
}

func (s *gopoolSpawner) Go(fn func()) error {
	s.pool.Go(fn)
	return nil
}

// Close is a no-op, gopool workers exit on their own once idle.
func (s *gopoolSpawner) Close() {}

type goSpawner struct{}

func (goSpawner) Go(fn func()) error {
	go func() {
		defer func() {
			if e := recover(); e != nil {
				logger.Error(util.PanicToError(e), "worker panic")
			}
		}()
		fn()
	}()
	return nil
}

func (goSpawner) Close() {}
