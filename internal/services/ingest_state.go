package services

import "fmt"

// 摄取任务状态
const (
	StateReceived   = "received"
	StateDedupCheck = "dedup_check"
	StateSkipped    = "skipped"
	StateLoading    = "loading"
	StateChunking   = "chunking"
	StateEmbedding  = "embedding"
	StatePersisting = "persisting"
	StateDone       = "done"
	StateFailed     = "failed"
)

// 状态转换规则
var ingestTransitions = map[string][]string{
	StateReceived:   {StateDedupCheck},
	StateDedupCheck: {StateSkipped, StateLoading, StateFailed},
	StateLoading:    {StateChunking, StateFailed},
	StateChunking:   {StateEmbedding, StateFailed},
	// embedding → skipped 覆盖并发任务先建出文档行的情况
	StateEmbedding:  {StatePersisting, StateSkipped, StateFailed},
	StatePersisting: {StateDone, StateFailed},
}

// ingestStateMachine 跟踪单个摄取任务的状态推进。
// 非法转换说明管道代码有bug，直接报错而不是静默继续。
type ingestStateMachine struct {
	current string
}

func newIngestStateMachine() *ingestStateMachine {
	return &ingestStateMachine{current: StateReceived}
}

// CanTransition 检查是否可以进行状态转换
func (sm *ingestStateMachine) CanTransition(to string) bool {
	for _, next := range ingestTransitions[sm.current] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition 执行状态转换
func (sm *ingestStateMachine) Transition(to string) error {
	if !sm.CanTransition(to) {
		return fmt.Errorf("invalid ingest transition from %s to %s", sm.current, to)
	}
	sm.current = to
	return nil
}

// State 返回当前状态
func (sm *ingestStateMachine) State() string {
	return sm.current
}

// Terminal 返回是否处于终态
func (sm *ingestStateMachine) Terminal() bool {
	switch sm.current {
	case StateSkipped, StateDone, StateFailed:
		return true
	}
	return false
}
