package eventbus

type LotEventType string

const (
	LotEventSaved      LotEventType = "lot.saved"
	LotEventImported   LotEventType = "lot.imported"
	LotEventDuplicated LotEventType = "lot.duplicated"
	LotEventExported   LotEventType = "lot.exported"
)

type LotEvent struct {
	Type        LotEventType
	ProcedureID uint
	DocType     string
	LotNumber   int
	TargetLots  []int // 复制目标分标段
	Rows        int
	Detail      map[string]any
}

type LotEventHandler = Handler[LotEvent]
type LotEventBus = Bus[LotEventType, LotEvent]

func NewLotEventBus() *LotEventBus {
	return NewBus[LotEventType, LotEvent]()
}
