package service

import (
	"context"
	"sync"
	"time"

	"github.com/collabdoc/backend/internal/eventbus"
	"github.com/collabdoc/backend/internal/repository"
	"k8s.io/klog/v2"
)

// OutboxDispatcher 出箱事件分发器
// 轮询未投递的事件记录并发布到事件总线，投递成功后才标记完成
// 发布失败的记录留待下一轮重试，消费方需按 EventID 幂等（至少一次语义）
type OutboxDispatcher struct {
	outboxRepo     repository.OutboxRepository
	contributeRepo repository.ContributeRepository
	bus            *eventbus.ContributeEventBus
	interval       time.Duration
	batchSize      int

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

func NewOutboxDispatcher(outboxRepo repository.OutboxRepository, contributeRepo repository.ContributeRepository, bus *eventbus.ContributeEventBus, interval time.Duration) *OutboxDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &OutboxDispatcher{
		outboxRepo:     outboxRepo,
		contributeRepo: contributeRepo,
		bus:            bus,
		interval:       interval,
		batchSize:      100,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

func (d *OutboxDispatcher) Start() {
	go d.dispatchLoop()
}

func (d *OutboxDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		<-d.done
	})
}

func (d *OutboxDispatcher) dispatchLoop() {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(d.ctx); err != nil {
				klog.Errorf("出箱事件分发失败: %v", err)
			}
		}
	}
}

// DispatchPending 分发一批未投递事件，返回成功投递的数量
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) (int, error) {
	events, err := d.outboxRepo.ListPending(d.batchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, record := range events {
		contribute, err := d.contributeRepo.Get(record.ContributeID)
		if err != nil {
			klog.Warningf("出箱事件关联的提案不存在: eventID=%s, contributeID=%d, error=%v",
				record.EventID, record.ContributeID, err)
			continue
		}

		event := eventbus.ContributeEvent{
			Type:         eventbus.ContributeEventType(record.EventType),
			EventID:      record.EventID,
			ContributeID: record.ContributeID,
			DocumentID:   contribute.DocumentID,
			MemberID:     contribute.MemberID,
		}
		if err := d.bus.Publish(ctx, event.Type, event); err != nil {
			// 订阅方失败时不标记投递，下一轮重试
			klog.Warningf("出箱事件发布失败: eventID=%s, type=%s, error=%v",
				record.EventID, record.EventType, err)
			continue
		}
		if err := d.outboxRepo.MarkDispatched(record.ID); err != nil {
			klog.Warningf("出箱事件标记失败: eventID=%s, error=%v", record.EventID, err)
			continue
		}
		dispatched++
	}

	if dispatched > 0 {
		klog.V(6).Infof("出箱事件分发完成: dispatched=%d", dispatched)
	}
	return dispatched, nil
}
