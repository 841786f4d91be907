package subscriber

import (
	"context"
	"sync"

	"github.com/collabdoc/backend/internal/eventbus"
	"k8s.io/klog/v2"
)

// ContributeEventSubscriber 消费提案生命周期事件
// 通知、徽章等旁路动作都在这里挂接，事件为至少一次投递，处理需按 EventID 幂等
type ContributeEventSubscriber struct {
	mutex    sync.Mutex
	notified map[string]bool // 已处理的 EventID，幂等去重
}

func NewContributeEventSubscriber() *ContributeEventSubscriber {
	return &ContributeEventSubscriber{
		notified: make(map[string]bool),
	}
}

// markNotified 原子登记 EventID，重复投递返回 false
func (s *ContributeEventSubscriber) markNotified(eventID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.notified[eventID] {
		return false
	}
	s.notified[eventID] = true
	return true
}

func (s *ContributeEventSubscriber) Register(bus *eventbus.ContributeEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.ContributeEventMerged, s.handleMerged)
	bus.Subscribe(eventbus.ContributeEventRejected, s.handleRejected)
	bus.Subscribe(eventbus.ContributeEventDebateOpened, s.handleDebateOpened)
}

// handleMerged 提案合并后通知作者与投票人
func (s *ContributeEventSubscriber) handleMerged(ctx context.Context, event eventbus.ContributeEvent) error {
	if !s.markNotified(event.EventID) {
		return nil
	}

	klog.V(6).Infof("提案合并通知: contributeID=%d, documentID=%d, authorID=%d",
		event.ContributeID, event.DocumentID, event.MemberID)
	return nil
}

// handleRejected 提案被拒绝/撤回后通知作者
func (s *ContributeEventSubscriber) handleRejected(ctx context.Context, event eventbus.ContributeEvent) error {
	if !s.markNotified(event.EventID) {
		return nil
	}

	klog.V(6).Infof("提案拒绝通知: contributeID=%d, authorID=%d",
		event.ContributeID, event.MemberID)
	return nil
}

// handleDebateOpened 进入讨论期后通知相关成员参与讨论
func (s *ContributeEventSubscriber) handleDebateOpened(ctx context.Context, event eventbus.ContributeEvent) error {
	if !s.markNotified(event.EventID) {
		return nil
	}

	klog.V(6).Infof("讨论开启通知: contributeID=%d, documentID=%d",
		event.ContributeID, event.DocumentID)
	return nil
}
