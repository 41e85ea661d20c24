package creation

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "companionforge/internal/platform/log"
)

// DefaultInterval 阶段推进间隔
const DefaultInterval = 2 * time.Second

// Stage 创建流程的一个展示阶段
type Stage struct {
	Title string `json:"title"`
	Color string `json:"color"`
}

var stages = []Stage{
	{Title: "Initializing AI Core", Color: "#3BF4FB"},
	{Title: "Loading Knowledge Base", Color: "#7B2CBF"},
	{Title: "Calibrating Personality", Color: "#E0AAFF"},
	{Title: "Finalizing Agent", Color: "#44318D"},
}

// Stages 返回阶段列表副本
func Stages() []Stage {
	return append([]Stage(nil), stages...)
}

// StageState 阶段显示状态
type StageState string

const (
	StatePending StageState = "pending"
	StateActive  StageState = "active"
	StateDone    StageState = "done"
)

// StageStatus 带状态的阶段
type StageStatus struct {
	Stage
	State StageState `json:"state"`
}

// Progress 某一时刻的进度快照
type Progress struct {
	Stage    int           `json:"stage"`
	Title    string        `json:"title"`
	Stages   []StageStatus `json:"stages"`
	Complete bool          `json:"complete"`
	Closable bool          `json:"closable"`
}

// Compute 由开始时间、当前时间与间隔推算进度。
// 每个间隔推进一个阶段；停在最后阶段后再过一个间隔即完成，完成后才可关闭。
func Compute(start, now time.Time, interval time.Duration) Progress {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticks := 0
	if elapsed := now.Sub(start); elapsed > 0 {
		ticks = int(elapsed / interval)
	}

	last := len(stages) - 1
	stage := min(ticks, last)
	complete := ticks > last

	p := Progress{
		Stage:    stage,
		Title:    stages[stage].Title,
		Stages:   make([]StageStatus, len(stages)),
		Complete: complete,
		Closable: complete,
	}
	for i, s := range stages {
		state := StatePending
		switch {
		case complete || i < stage:
			state = StateDone
		case i == stage:
			state = StateActive
		}
		p.Stages[i] = StageStatus{Stage: s, State: state}
	}
	return p
}

// ErrRunNotFound 没有进行中的创建流程
var ErrRunNotFound = errors.New("creation: run not found")

// CompleteFunc 流程首次被观察到完成时调用
type CompleteFunc func(ctx context.Context, companionID string) error

type run struct {
	startedAt time.Time
	notified  bool
}

// Tracker 按伴侣 ID 记录创建流程
type Tracker struct {
	interval   time.Duration
	now        func() time.Time
	onComplete CompleteFunc

	mu   sync.Mutex
	runs map[string]*run
}

// NewTracker 创建 Tracker；onComplete 可为 nil
func NewTracker(interval time.Duration, onComplete CompleteFunc) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		interval:   interval,
		now:        time.Now,
		onComplete: onComplete,
		runs:       make(map[string]*run),
	}
}

// Start 开始（或重新开始）创建流程
func (t *Tracker) Start(companionID string) Progress {
	now := t.now()
	t.mu.Lock()
	t.runs[companionID] = &run{startedAt: now}
	t.mu.Unlock()
	applog.Info("[Creation] Launch started", "companion_id", companionID)
	return Compute(now, now, t.interval)
}

// Poll 查询进度。首次观察到完成时触发 onComplete，失败会在下次 Poll 重试。
func (t *Tracker) Poll(ctx context.Context, companionID string) (Progress, error) {
	t.mu.Lock()
	r, ok := t.runs[companionID]
	if !ok {
		t.mu.Unlock()
		return Progress{}, ErrRunNotFound
	}
	p := Compute(r.startedAt, t.now(), t.interval)
	fire := p.Complete && !r.notified && t.onComplete != nil
	if fire {
		r.notified = true
	}
	t.mu.Unlock()

	if fire {
		if err := t.onComplete(ctx, companionID); err != nil {
			t.mu.Lock()
			r.notified = false
			t.mu.Unlock()
			return p, err
		}
		applog.Info("[Creation] Launch complete", "companion_id", companionID)
	}
	return p, nil
}

// Close 关闭流程；未完成时返回 closed=false。
// 完成后若还没有 Poll 触发过 onComplete，在这里补调，失败时保留流程。
func (t *Tracker) Close(ctx context.Context, companionID string) (closed bool, err error) {
	t.mu.Lock()
	r, ok := t.runs[companionID]
	if !ok {
		t.mu.Unlock()
		return false, ErrRunNotFound
	}
	if !Compute(r.startedAt, t.now(), t.interval).Complete {
		t.mu.Unlock()
		return false, nil
	}
	fire := !r.notified && t.onComplete != nil
	if fire {
		r.notified = true
	}
	t.mu.Unlock()

	if fire {
		if err := t.onComplete(ctx, companionID); err != nil {
			t.mu.Lock()
			r.notified = false
			t.mu.Unlock()
			return false, err
		}
		applog.Info("[Creation] Launch complete", "companion_id", companionID)
	}

	t.mu.Lock()
	if t.runs[companionID] == r {
		delete(t.runs, companionID)
	}
	t.mu.Unlock()
	return true, nil
}

// Discard 丢弃流程（伴侣被删除时），不论是否完成
func (t *Tracker) Discard(companionID string) {
	t.mu.Lock()
	delete(t.runs, companionID)
	t.mu.Unlock()
}
