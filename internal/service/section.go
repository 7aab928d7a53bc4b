package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opendce/backend/internal/eventbus"
	"github.com/opendce/backend/internal/model"
	"github.com/opendce/backend/internal/pkg/officedoc"
	"github.com/opendce/backend/internal/repository"
	"github.com/opendce/backend/internal/service/sectionparser"
	"github.com/opendce/backend/internal/utils"
	"k8s.io/klog/v2"
)

// DefaultSectionTitle 新增章节的默认标题
const DefaultSectionTitle = "Nouvelle section"

// 章节型文档类型
var sectionDocTypes = []string{"CCAP", "CCTP", "RC", "AE"}

// ParseSectionDocType 校验章节型文档类型，大小写不敏感
func ParseSectionDocType(s string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	for _, v := range sectionDocTypes {
		if v == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSectionType, s)
}

// SectionKey 章节文档键，LotNumber 为 0 表示程序级文档
type SectionKey struct {
	ProcedureID uint
	DocType     string
	LotNumber   int
}

func (k SectionKey) docKey() repository.DocKey {
	return repository.DocKey{ProcedureID: k.ProcedureID, DocType: k.DocType, LotNumber: k.LotNumber}
}

// NumberedSection 带显示编号的章节
type NumberedSection struct {
	sectionparser.Section
	Number string `json:"number"`
}

// SectionDocumentDTO 章节文档
type SectionDocumentDTO struct {
	ProcedureID uint              `json:"procedure_id"`
	DocType     string            `json:"doc_type"`
	LotNumber   int               `json:"lot_number"`
	Sections    []NumberedSection `json:"sections"`
	SourceFile  string            `json:"source_file,omitempty"`
	Tier        string            `json:"tier,omitempty"`
	Saved       bool              `json:"saved"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

// SectionPatch 章节的部分更新，nil 字段保持不变
type SectionPatch struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	Level      *int    `json:"level"`
	TitleColor *string `json:"title_color"`
	TitleSize  *string `json:"title_size"`
}

// SectionImportResult 导入结果
type SectionImportResult struct {
	Document *SectionDocumentDTO `json:"document"`
	Tier     sectionparser.Tier  `json:"tier"`
	Count    int                 `json:"count"`
}

// SectionService 章节文档服务
type SectionService interface {
	Get(ctx context.Context, key SectionKey) (*SectionDocumentDTO, error)
	Save(ctx context.Context, key SectionKey, sections []sectionparser.Section) (*SectionDocumentDTO, error)
	AddSection(ctx context.Context, key SectionKey, position, level int, title string) (*SectionDocumentDTO, error)
	UpdateSection(ctx context.Context, key SectionKey, index int, patch SectionPatch) (*SectionDocumentDTO, error)
	DeleteSection(ctx context.Context, key SectionKey, index int) (*SectionDocumentDTO, error)
	MoveSection(ctx context.Context, key SectionKey, from, to int) (*SectionDocumentDTO, error)
	Import(ctx context.Context, key SectionKey, filename string, data []byte) (*SectionImportResult, error)
	ExportMarkdown(ctx context.Context, key SectionKey) (*ExportFile, error)
}

type sectionService struct {
	docs       repository.SectionDocumentRepository
	procedures repository.ProcedureRepository
	extractor  *sectionparser.Extractor
	bus        *eventbus.SectionEventBus
}

func NewSectionService(docs repository.SectionDocumentRepository, procedures repository.ProcedureRepository, extractor *sectionparser.Extractor, bus *eventbus.SectionEventBus) SectionService {
	return &sectionService{docs: docs, procedures: procedures, extractor: extractor, bus: bus}
}

func (s *sectionService) validateKey(ctx context.Context, key SectionKey) (*model.Procedure, error) {
	if _, err := ParseSectionDocType(key.DocType); err != nil {
		return nil, err
	}
	if key.LotNumber < 0 {
		return nil, ErrInvalidLot
	}
	p, err := s.procedures.Get(ctx, key.ProcedureID)
	if err != nil {
		return nil, wrapProcedureErr(err)
	}
	return p, nil
}

func (s *sectionService) load(ctx context.Context, key SectionKey) ([]sectionparser.Section, *model.SectionDocument, error) {
	doc, err := s.docs.Get(ctx, key.docKey())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []sectionparser.Section{}, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get section document: %w", err)
	}
	var sections []sectionparser.Section
	if doc.Payload != "" {
		if err := json.Unmarshal([]byte(doc.Payload), &sections); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorruptedDocument, err)
		}
	}
	return sections, doc, nil
}

func toSectionDTO(key SectionKey, sections []sectionparser.Section, doc *model.SectionDocument) *SectionDocumentDTO {
	numbers := sectionparser.SectionNumbers(sections)
	dto := &SectionDocumentDTO{
		ProcedureID: key.ProcedureID,
		DocType:     key.DocType,
		LotNumber:   key.LotNumber,
		Sections:    make([]NumberedSection, len(sections)),
	}
	for i, sec := range sections {
		dto.Sections[i] = NumberedSection{Section: sec, Number: numbers[i]}
	}
	if doc != nil {
		dto.Saved = true
		dto.SourceFile = doc.SourceFile
		dto.Tier = doc.Tier
		updated := doc.UpdatedAt
		dto.UpdatedAt = &updated
	}
	return dto
}

func validateSections(sections []sectionparser.Section) error {
	for i, sec := range sections {
		if sec.Level < 1 || sec.Level > sectionparser.MaxLevel {
			return fmt.Errorf("%w: section %d has level %d", ErrInvalidLevel, i, sec.Level)
		}
	}
	return nil
}

// persist 写入章节列表；source/tier 为空时保留原值
func (s *sectionService) persist(ctx context.Context, key SectionKey, sections []sectionparser.Section, prev *model.SectionDocument, source, tier string) (*model.SectionDocument, error) {
	if sections == nil {
		sections = []sectionparser.Section{}
	}
	payload, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sections: %w", err)
	}
	if prev != nil {
		if source == "" {
			source = prev.SourceFile
		}
		if tier == "" {
			tier = prev.Tier
		}
	}
	doc := &model.SectionDocument{
		ProcedureID: key.ProcedureID,
		DocType:     key.DocType,
		LotNumber:   key.LotNumber,
		Payload:     string(payload),
		SourceFile:  source,
		Tier:        tier,
	}
	if err := s.docs.Upsert(ctx, doc); err != nil {
		klog.Errorf("[section] 保存失败 procedure=%d %s lot=%d: %v", key.ProcedureID, key.DocType, key.LotNumber, err)
		return nil, fmt.Errorf("failed to save section document: %w", err)
	}
	return doc, nil
}

func (s *sectionService) publish(ctx context.Context, event eventbus.SectionEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event.Type, event); err != nil {
		klog.Warningf("[section] 事件处理失败 type=%s: %v", event.Type, err)
	}
}

func (s *sectionService) Get(ctx context.Context, key SectionKey) (*SectionDocumentDTO, error) {
	if _, err := s.validateKey(ctx, key); err != nil {
		return nil, err
	}
	sections, doc, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return toSectionDTO(key, sections, doc), nil
}

// Save 整体替换章节列表
func (s *sectionService) Save(ctx context.Context, key SectionKey, sections []sectionparser.Section) (*SectionDocumentDTO, error) {
	if _, err := s.validateKey(ctx, key); err != nil {
		return nil, err
	}
	if err := validateSections(sections); err != nil {
		return nil, err
	}
	_, prev, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, key, sections, prev)
}

func (s *sectionService) commit(ctx context.Context, key SectionKey, sections []sectionparser.Section, prev *model.SectionDocument) (*SectionDocumentDTO, error) {
	doc, err := s.persist(ctx, key, sections, prev, "", "")
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventbus.SectionEvent{
		Type: eventbus.SectionEventSaved, ProcedureID: key.ProcedureID, DocType: key.DocType,
		LotNumber: key.LotNumber, Sections: len(sections),
	})
	return toSectionDTO(key, sections, doc), nil
}

// modify 读取、修改并保存章节列表
func (s *sectionService) modify(ctx context.Context, key SectionKey, fn func([]sectionparser.Section) ([]sectionparser.Section, error)) (*SectionDocumentDTO, error) {
	if _, err := s.validateKey(ctx, key); err != nil {
		return nil, err
	}
	sections, prev, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	sections, err = fn(sections)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, key, sections, prev)
}

// AddSection 在 position 处插入章节，position < 0 时追加
func (s *sectionService) AddSection(ctx context.Context, key SectionKey, position, level int, title string) (*SectionDocumentDTO, error) {
	if level == 0 {
		level = 1
	}
	if level < 1 || level > sectionparser.MaxLevel {
		return nil, ErrInvalidLevel
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultSectionTitle
	}

	return s.modify(ctx, key, func(sections []sectionparser.Section) ([]sectionparser.Section, error) {
		if position < 0 {
			position = len(sections)
		}
		if position > len(sections) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
		}
		sections = append(sections, sectionparser.Section{})
		copy(sections[position+1:], sections[position:])
		sections[position] = sectionparser.Section{Title: title, Level: level}
		return sections, nil
	})
}

func (s *sectionService) UpdateSection(ctx context.Context, key SectionKey, index int, patch SectionPatch) (*SectionDocumentDTO, error) {
	if patch.Level != nil && (*patch.Level < 1 || *patch.Level > sectionparser.MaxLevel) {
		return nil, ErrInvalidLevel
	}
	return s.modify(ctx, key, func(sections []sectionparser.Section) ([]sectionparser.Section, error) {
		if index < 0 || index >= len(sections) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, index)
		}
		sec := &sections[index]
		if patch.Title != nil {
			sec.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Content != nil {
			sec.Content = *patch.Content
		}
		if patch.Level != nil {
			sec.Level = *patch.Level
		}
		if patch.TitleColor != nil {
			sec.TitleColor = *patch.TitleColor
		}
		if patch.TitleSize != nil {
			sec.TitleSize = *patch.TitleSize
		}
		return sections, nil
	})
}

func (s *sectionService) DeleteSection(ctx context.Context, key SectionKey, index int) (*SectionDocumentDTO, error) {
	return s.modify(ctx, key, func(sections []sectionparser.Section) ([]sectionparser.Section, error) {
		if index < 0 || index >= len(sections) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPosition, index)
		}
		return append(sections[:index], sections[index+1:]...), nil
	})
}

// MoveSection 将 from 处的章节移动到 to
func (s *sectionService) MoveSection(ctx context.Context, key SectionKey, from, to int) (*SectionDocumentDTO, error) {
	return s.modify(ctx, key, func(sections []sectionparser.Section) ([]sectionparser.Section, error) {
		n := len(sections)
		if from < 0 || from >= n || to < 0 || to >= n {
			return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidPosition, from, to)
		}
		moved := sections[from]
		sections = append(sections[:from], sections[from+1:]...)
		sections = append(sections, sectionparser.Section{})
		copy(sections[to+1:], sections[to:])
		sections[to] = moved
		return sections, nil
	})
}

// Import 转换并识别上传的模板，成功后整体替换章节列表
// 文件类型不符或解析失败时已保存的章节不变
func (s *sectionService) Import(ctx context.Context, key SectionKey, filename string, data []byte) (*SectionImportResult, error) {
	if _, err := s.validateKey(ctx, key); err != nil {
		return nil, err
	}
	format, err := officedoc.DetectContent(filename, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	}
	res, err := ExtractSections(s.extractor, format, data)
	if err != nil {
		return nil, err
	}

	_, prev, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	doc, err := s.persist(ctx, key, res.Sections, prev, filename, string(res.Tier))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventbus.SectionEvent{
		Type: eventbus.SectionEventImported, ProcedureID: key.ProcedureID, DocType: key.DocType,
		LotNumber: key.LotNumber, Sections: len(res.Sections), Tier: string(res.Tier), SourceFile: filename,
	})
	return &SectionImportResult{
		Document: toSectionDTO(key, res.Sections, doc),
		Tier:     res.Tier,
		Count:    len(res.Sections),
	}, nil
}

// ExtractSections 转换文档并识别章节
func ExtractSections(extractor *sectionparser.Extractor, format officedoc.Format, data []byte) (*sectionparser.Result, error) {
	converted, err := officedoc.Convert(format, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if strings.TrimSpace(converted.HTML) == "" && strings.TrimSpace(converted.Text) == "" {
		return nil, fmt.Errorf("%w: document has no text", ErrParseFailed)
	}
	res := extractor.Extract(converted.HTML, converted.Text)
	return &res, nil
}

// ExportMarkdown 导出带编号的 Markdown 大纲
func (s *sectionService) ExportMarkdown(ctx context.Context, key SectionKey) (*ExportFile, error) {
	p, err := s.validateKey(ctx, key)
	if err != nil {
		return nil, err
	}
	sections, doc, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrSectionDocNotFound
	}

	title := fmt.Sprintf("%s - %s", key.DocType, p.Title)
	if key.LotNumber > 0 {
		title = fmt.Sprintf("%s - Lot %d", title, key.LotNumber)
	}
	filename := fmt.Sprintf("%s_%s.md", p.Reference, key.DocType)
	if key.LotNumber > 0 {
		filename = fmt.Sprintf("%s_%s_lot%d.md", p.Reference, key.DocType, key.LotNumber)
	}
	return &ExportFile{
		Filename:    utils.SafeFilename(filename),
		ContentType: ContentTypeMarkdown,
		Data:        []byte(RenderMarkdown(title, sections)),
	}, nil
}

// RenderMarkdown 章节 h1..h4 对应 Markdown 的 ##..#####
func RenderMarkdown(title string, sections []sectionparser.Section) string {
	var b strings.Builder
	b.WriteString("# " + title + "\n")
	numbers := sectionparser.SectionNumbers(sections)
	for i, sec := range sections {
		level := sectionparser.ClampLevel(sec.Level)
		fmt.Fprintf(&b, "\n%s %s %s\n", strings.Repeat("#", level+1), numbers[i], sec.Title)
		if content := strings.TrimSpace(sec.Content); content != "" {
			b.WriteString("\n" + content + "\n")
		}
	}
	return b.String()
}
