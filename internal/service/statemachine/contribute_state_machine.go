package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"
)

// ContributeStatus 定义修改提案的所有可能状态
type ContributeStatus string

const (
	ContributeStatusPending  ContributeStatus = "pending"  // 已创建，修改项已挂载，尚未开放投票
	ContributeStatusVoting   ContributeStatus = "voting"   // 投票窗口开放中
	ContributeStatusDebating ContributeStatus = "debating" // 投票结果不明朗，进入讨论期
	ContributeStatusMerged   ContributeStatus = "merged"   // 已合并（终态）
	ContributeStatusRejected ContributeStatus = "rejected" // 已否决/已撤回（终态）
)

// ContributeTransition 定义提案状态迁移
type ContributeTransition struct {
	From ContributeStatus
	To   ContributeStatus
}

// ContributeStateMachine 提案状态机
type ContributeStateMachine struct {
	// 定义所有合法的状态迁移
	allowedTransitions map[ContributeTransition]bool
}

// NewContributeStateMachine 创建新的提案状态机
func NewContributeStateMachine() *ContributeStateMachine {
	sm := &ContributeStateMachine{
		allowedTransitions: make(map[ContributeTransition]bool),
	}

	// 定义合法的状态迁移路径
	// pending -> voting -> merged/rejected/debating
	// debating -> merged/rejected
	// pending/voting -> rejected（用户撤回）
	transitions := []ContributeTransition{
		// 正常流程
		{ContributeStatusPending, ContributeStatusVoting},
		{ContributeStatusVoting, ContributeStatusMerged},
		{ContributeStatusVoting, ContributeStatusRejected},

		// 结果不明朗时升级为讨论
		{ContributeStatusVoting, ContributeStatusDebating},
		{ContributeStatusDebating, ContributeStatusMerged},
		{ContributeStatusDebating, ContributeStatusRejected},

		// 撤回：进入讨论期或终态后不可撤回
		{ContributeStatusPending, ContributeStatusRejected},
	}

	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}

	return sm
}

// CanTransition 检查状态迁移是否合法
func (sm *ContributeStateMachine) CanTransition(from, to ContributeStatus) bool {
	if from == to {
		return false // 不允许状态不变
	}
	return sm.allowedTransitions[ContributeTransition{From: from, To: to}]
}

// ValidateTransition 验证状态迁移并返回错误
func (sm *ContributeStateMachine) ValidateTransition(from, to ContributeStatus) error {
	if !sm.CanTransition(from, to) {
		return &InvalidContributeStateTransitionError{
			From: string(from),
			To:   string(to),
		}
	}
	return nil
}

// Transition 执行状态迁移（带日志）
func (sm *ContributeStateMachine) Transition(from, to ContributeStatus, contributeID uint) error {
	if err := sm.ValidateTransition(from, to); err != nil {
		klog.V(6).Infof("提案状态迁移被拒绝: contributeID=%d, %s -> %s, error=%v",
			contributeID, from, to, err)
		return err
	}

	klog.V(6).Infof("提案状态迁移成功: contributeID=%d, %s -> %s", contributeID, from, to)
	return nil
}

// InvalidContributeStateTransitionError 无效的提案状态迁移错误
type InvalidContributeStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidContributeStateTransitionError) Error() string {
	return fmt.Sprintf("invalid contribute state transition: %s -> %s", e.From, e.To)
}

// IsTerminal 判断提案状态是否为终态
func IsTerminal(status ContributeStatus) bool {
	return status == ContributeStatusMerged || status == ContributeStatusRejected
}

// CanVote 判断提案当前是否接受投票
func CanVote(status ContributeStatus) bool {
	return status == ContributeStatusVoting || status == ContributeStatusDebating
}

// CanWithdraw 判断提案当前是否允许撤回
func CanWithdraw(status ContributeStatus) bool {
	return status == ContributeStatusPending || status == ContributeStatusVoting
}
