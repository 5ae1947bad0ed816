package usecase

import "sync/atomic"

// RunGuard разрешает не более одного прогона сбора одновременно.
// Повторная попытка не ждёт, а сразу получает отказ.
type RunGuard struct {
	running atomic.Bool
}

func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// TryAcquire возвращает false, если прогон уже идёт
func (g *RunGuard) TryAcquire() bool {
	return g.running.CompareAndSwap(false, true)
}

func (g *RunGuard) Release() {
	g.running.Store(false)
}

func (g *RunGuard) Running() bool {
	return g.running.Load()
}
