package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/mindkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("behavior", cel.MapType(cel.StringType, cel.IntType)),
		)
	})
	return celEnv, celEnvErr
}

// BehaviorFilter 是训练行为过滤器，使用 CEL (Common Expression Language) 实现。
// 表达式只编译一次，Match 可以并发调用。
//
// 可用变量 behavior（均为 int）：
//   - behavior.user_id
//   - behavior.user_key
//   - behavior.positive     正样本新闻下标
//   - behavior.pool_size    负样本候选池大小
//   - behavior.history_len  有效历史条数（history_mask 非零的个数）
//
// 示例：
//   - `behavior.pool_size >= 4` → 候选池足够抽取 4 个不重复负样本
//   - `behavior.history_len > 0 && behavior.pool_size >= 1` → 去掉冷启动用户和空候选池
type BehaviorFilter struct {
	expr string
	prg  cel.Program
}

// NewBehaviorFilter 编译表达式；表达式必须返回 bool。
func NewBehaviorFilter(expr string) (*BehaviorFilter, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env error: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.NewInvalidConfigError(core.ModuleCorpus, "dsl: compile %q: %v", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, core.NewInvalidConfigError(core.ModuleCorpus, "dsl: expression %q must return bool, got %v", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.NewInvalidConfigError(core.ModuleCorpus, "dsl: program %q: %v", expr, err)
	}
	return &BehaviorFilter{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (f *BehaviorFilter) String() string { return f.expr }

// Match 对一条训练行为求值。
func (f *BehaviorFilter) Match(b core.TrainBehavior) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{"behavior": behaviorVars(b)})
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", f.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func behaviorVars(b core.TrainBehavior) map[string]any {
	var history int64
	for _, m := range b.HistoryMask {
		if m != 0 {
			history++
		}
	}
	return map[string]any{
		"user_id":     int64(b.UserID),
		"user_key":    int64(b.UserKey),
		"positive":    int64(b.Positive),
		"pool_size":   int64(len(b.Negatives)),
		"history_len": history,
	}
}
