package eventbus

type ContributeEventType string

const (
	ContributeEventMerged       ContributeEventType = "ContributeMerged"
	ContributeEventRejected     ContributeEventType = "ContributeRejected"
	ContributeEventDebateOpened ContributeEventType = "DebateOpened"
)

// ContributeEvent 提案生命周期事件
// 仅在核心事务提交后投递，消费方需按 EventID 幂等处理
type ContributeEvent struct {
	Type         ContributeEventType
	EventID      string // 出箱记录的 UUID，供消费方去重
	ContributeID uint
	DocumentID   uint
	MemberID     uint // 提案作者
}

type ContributeEventHandler = Handler[ContributeEvent]
type ContributeEventBus = Bus[ContributeEventType, ContributeEvent]

func NewContributeEventBus() *ContributeEventBus {
	return NewBus[ContributeEventType, ContributeEvent]()
}
