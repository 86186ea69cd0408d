package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"SignalRadar/pkg/metrics"
)

// Snapshot 某一时刻的策略集合，只读
type Snapshot struct {
	defs     map[string]*Definition
	LoadedAt time.Time
	Version  uint64
}

// Get 按代码查找策略，大小写不敏感
func (s *Snapshot) Get(code string) (*Definition, bool) {
	def, ok := s.defs[strings.ToUpper(strings.TrimSpace(code))]
	return def, ok
}

// Codes 全部策略代码，已排序
func (s *Snapshot) Codes() []string {
	codes := make([]string, 0, len(s.defs))
	for code := range s.defs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// All 按代码顺序返回全部策略
func (s *Snapshot) All() []*Definition {
	defs := make([]*Definition, 0, len(s.defs))
	for _, code := range s.Codes() {
		defs = append(defs, s.defs[code])
	}
	return defs
}

// Enabled 按代码顺序返回已启用的策略
func (s *Snapshot) Enabled() []*Definition {
	var defs []*Definition
	for _, def := range s.All() {
		if def.Enabled {
			defs = append(defs, def)
		}
	}
	return defs
}

func (s *Snapshot) Len() int {
	return len(s.defs)
}

// Registry 策略注册表
// 由调用方创建并传入扫描入口，刷新时整体替换快照
type Registry struct {
	dir     string
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
	version uint64
	log     *zap.Logger
}

// NewRegistry 创建注册表，初始为空快照
func NewRegistry(dir string, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{dir: dir, log: log.Named("strategy")}
	r.current.Store(&Snapshot{defs: map[string]*Definition{}})
	return r
}

// Reload 重新加载策略目录
// 失败时保留原快照
func (r *Registry) Reload() (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs, err := Load(r.dir)
	if err != nil {
		r.log.Error("加载策略失败，保留当前策略集合", zap.String("dir", r.dir), zap.Error(err))
		return nil, fmt.Errorf("加载策略失败: %w", err)
	}
	snap := r.swapLocked(defs)
	r.log.Info("策略加载完成",
		zap.Int("count", snap.Len()),
		zap.Strings("codes", snap.Codes()),
		zap.Uint64("version", snap.Version),
	)
	return snap, nil
}

// Swap 用给定集合替换当前快照
func (r *Registry) Swap(defs map[string]*Definition) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.swapLocked(defs)
}

func (r *Registry) swapLocked(defs map[string]*Definition) *Snapshot {
	copied := make(map[string]*Definition, len(defs))
	for code, def := range defs {
		copied[strings.ToUpper(code)] = def
	}
	r.version++
	snap := &Snapshot{defs: copied, LoadedAt: time.Now(), Version: r.version}
	r.current.Store(snap)
	metrics.StrategiesLoaded.Set(float64(len(copied)))
	return snap
}

// Snapshot 当前快照
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

func (r *Registry) Get(code string) (*Definition, bool) {
	return r.Snapshot().Get(code)
}

func (r *Registry) Dir() string {
	return r.dir
}
