package eventbus

type SectionEventType string

const (
	SectionEventSaved    SectionEventType = "section.saved"
	SectionEventImported SectionEventType = "section.imported"
)

type SectionEvent struct {
	Type        SectionEventType
	ProcedureID uint
	DocType     string
	LotNumber   int
	Sections    int
	Tier        string // 导入时采用的识别方式
	SourceFile  string
}

type SectionEventHandler = Handler[SectionEvent]
type SectionEventBus = Bus[SectionEventType, SectionEvent]

func NewSectionEventBus() *SectionEventBus {
	return NewBus[SectionEventType, SectionEvent]()
}
