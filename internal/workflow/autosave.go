package workflow

import (
	"context"
	"sync"
	"time"

	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/types"
)

// DefaultQuietPeriod 自动保存的静默窗口：窗口内的连续编辑合并为一次落库
const DefaultQuietPeriod = time.Second

// Draft 自动保存的草稿，始终是一份完整的当前状态快照。
// 显式提交动作必须携带完整状态而不是依赖已调度的延迟写入，
// 因此草稿按整体替换而非字段合并。
type Draft struct {
	Notes          string
	Questions      []types.Question
	HiringDecision Decision
}

// SaveFunc 草稿落库回调
type SaveFunc func(ctx context.Context, interviewID uint, d Draft) error

// AutoSaver 按面试维度对草稿编辑做去抖：
// 每次编辑重置该面试的静默计时器，计时器到期才执行一次写入；
// 显式提交前调用 Flush 同步刷掉挂起的草稿，消除丢失更新的竞争。
type AutoSaver struct {
	mu      sync.Mutex
	quiet   time.Duration
	save    SaveFunc
	pending map[uint]*pendingDraft
	closed  bool
}

type pendingDraft struct {
	draft Draft
	timer *time.Timer
	gen   uint64 // 编辑代数，防止被重置前的旧计时器误触发
}

// NewAutoSaver 创建自动保存器；quiet<=0 时使用默认静默窗口
func NewAutoSaver(quiet time.Duration, save SaveFunc) *AutoSaver {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &AutoSaver{
		quiet:   quiet,
		save:    save,
		pending: make(map[uint]*pendingDraft),
	}
}

// Update 记录一次草稿编辑并重新调度延迟写入。
// 静默窗口内的后续编辑会取消之前挂起的写入并重新计时。
func (a *AutoSaver) Update(interviewID uint, d Draft) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	p, ok := a.pending[interviewID]
	if !ok {
		p = &pendingDraft{}
		a.pending[interviewID] = p
	} else {
		p.timer.Stop()
	}
	p.draft = d
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(a.quiet, func() {
		a.fire(interviewID, gen)
	})
}

// fire 静默计时器到期后的后台落库
func (a *AutoSaver) fire(interviewID uint, gen uint64) {
	a.mu.Lock()
	p, ok := a.pending[interviewID]
	if !ok || p.gen != gen {
		// 已被更新重置或被 Flush/Discard 取走
		a.mu.Unlock()
		return
	}
	delete(a.pending, interviewID)
	draft := p.draft
	a.mu.Unlock()

	if err := a.save(context.Background(), interviewID, draft); err != nil {
		logger.Warn().
			Err(err).
			Uint("interview_id", interviewID).
			Msg("面试草稿自动保存失败")
	}
}

// Flush 取消挂起的延迟写入并立即同步落库。
// 没有挂起草稿时返回 (false, nil)。
func (a *AutoSaver) Flush(ctx context.Context, interviewID uint) (bool, error) {
	a.mu.Lock()
	p, ok := a.pending[interviewID]
	if !ok {
		a.mu.Unlock()
		return false, nil
	}
	p.timer.Stop()
	delete(a.pending, interviewID)
	draft := p.draft
	a.mu.Unlock()

	return true, a.save(ctx, interviewID, draft)
}

// Discard 丢弃挂起的草稿，不执行写入
func (a *AutoSaver) Discard(interviewID uint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.pending[interviewID]; ok {
		p.timer.Stop()
		delete(a.pending, interviewID)
	}
}

// Close 停止所有挂起的计时器并把未落库的草稿逐一刷盘
func (a *AutoSaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	drafts := make(map[uint]Draft, len(a.pending))
	for id, p := range a.pending {
		p.timer.Stop()
		drafts[id] = p.draft
	}
	a.pending = make(map[uint]*pendingDraft)
	a.mu.Unlock()

	var firstErr error
	for id, d := range drafts {
		if err := a.save(ctx, id, d); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
