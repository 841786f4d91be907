package service

import (
	"context"
	"sync"
	"time"

	"github.com/collabdoc/backend/config"
	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"
)

// Sweeper 后台巡检
// 周期性结算已到期的投票窗口与讨论期，结算任务投递到有界工作池执行
// 两类巡检都是幂等的：状态翻转全部走条件更新，可以与用户操作并发运行
type Sweeper struct {
	cfg               *config.Config
	contributeService *ContributeService
	debateService     *DebateService

	pool     *ants.Pool
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSweeper(cfg *config.Config, contributeService *ContributeService, debateService *DebateService) (*Sweeper, error) {
	workers := cfg.Sweep.Workers
	if workers <= 0 {
		workers = 2
	}
	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(1000),
	)
	if err != nil {
		klog.Errorf("ants pool initialization failed: %v", err)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		cfg:               cfg,
		contributeService: contributeService,
		debateService:     debateService,
		pool:              pool,
		ctx:               ctx,
		cancel:            cancel,
	}, nil
}

// Start 启动巡检循环
func (s *Sweeper) Start() {
	go s.sweepLoop()
}

// Stop 停止巡检并等待在途结算完成
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		klog.V(6).Infof("Sweeper stopping...")
		s.cancel()
		s.wg.Wait()
		s.pool.Release()
	})
}

func (s *Sweeper) sweepLoop() {
	ticker := time.NewTicker(s.cfg.Sweep.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpiredVotingWindows()
			s.SweepExpiredDebates()
		}
	}
}

// SweepExpiredVotingWindows 结算已到期的投票窗口
// 单个提案结算失败只记日志，不中断整轮巡检
func (s *Sweeper) SweepExpiredVotingWindows() {
	contributes, err := s.contributeService.ListExpiredVoting(time.Now())
	if err != nil {
		klog.Errorf("巡检到期投票失败: %v", err)
		return
	}

	for _, contribute := range contributes {
		contributeID := contribute.ID
		s.wg.Add(1)
		err := s.pool.Submit(func() {
			defer s.wg.Done()
			if err := s.contributeService.ResolveVoting(contributeID); err != nil {
				// 并发结算时条件更新落败属于正常情况
				klog.V(6).Infof("投票结算跳过: contributeID=%d, error=%v", contributeID, err)
			}
		})
		if err != nil {
			s.wg.Done()
			klog.Errorf("投票结算任务提交失败: contributeID=%d, error=%v", contributeID, err)
		}
	}
}

// SweepExpiredDebates 结算已到期的讨论
// 先关闭讨论（幂等），再按讨论期内累计的投票做终局裁决
func (s *Sweeper) SweepExpiredDebates() {
	debates, err := s.debateService.ListExpiredOpen(time.Now())
	if err != nil {
		klog.Errorf("巡检到期讨论失败: %v", err)
		return
	}

	for _, debate := range debates {
		d := debate
		s.wg.Add(1)
		err := s.pool.Submit(func() {
			defer s.wg.Done()
			if err := s.debateService.Close(&d); err != nil {
				klog.Errorf("讨论关闭失败: debateID=%d, error=%v", d.ID, err)
				return
			}
			if err := s.contributeService.ResolveDebate(d.ContributeID); err != nil {
				klog.V(6).Infof("讨论结算跳过: contributeID=%d, error=%v", d.ContributeID, err)
			}
		})
		if err != nil {
			s.wg.Done()
			klog.Errorf("讨论结算任务提交失败: debateID=%d, error=%v", d.ID, err)
		}
	}
}
