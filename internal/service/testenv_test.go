package service

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/opendce/backend/internal/eventbus"
	"github.com/opendce/backend/internal/model"
	"github.com/opendce/backend/internal/repository"
	"github.com/opendce/backend/internal/service/grid"
	"github.com/opendce/backend/internal/service/sectionparser"
	"github.com/opendce/backend/internal/subscriber"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type testEnv struct {
	procedureRepo repository.ProcedureRepository
	lotDocs       repository.LotDocumentRepository
	sectionDocs   repository.SectionDocumentRepository
	activities    repository.ActivityRepository
	engine        *grid.Engine
	lotBus        *eventbus.LotEventBus
	sectionBus    *eventbus.SectionEventBus
	procedures    ProcedureService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Procedure{}, &model.Lot{}, &model.LotDocument{}, &model.SectionDocument{}, &model.Activity{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	env := &testEnv{
		procedureRepo: repository.NewProcedureRepository(db),
		lotDocs:       repository.NewLotDocumentRepository(db),
		sectionDocs:   repository.NewSectionDocumentRepository(db),
		activities:    repository.NewActivityRepository(db),
		engine:        grid.NewEngine(grid.Config{DefaultRows: 3}),
		lotBus:        eventbus.NewLotEventBus(),
		sectionBus:    eventbus.NewSectionEventBus(),
	}
	sub := subscriber.NewActivitySubscriber(env.activities)
	sub.RegisterLot(env.lotBus)
	sub.RegisterSection(env.sectionBus)
	env.procedures = NewProcedureService(env.procedureRepo, env.activities, env.engine)
	return env
}

func (e *testEnv) lotService() LotService {
	return NewLotService(e.lotDocs, e.procedureRepo, e.engine, e.lotBus, 2)
}

func (e *testEnv) sectionService() SectionService {
	return NewSectionService(e.sectionDocs, e.procedureRepo, sectionparser.NewExtractor(sectionparser.Options{}), e.sectionBus)
}

func (e *testEnv) createProcedure(t *testing.T, ref string) *model.Procedure {
	t.Helper()
	p, err := e.procedures.Create(context.Background(), CreateProcedureRequest{Reference: ref, Title: "Rénovation du gymnase"})
	require.NoError(t, err)
	return p
}

// buildXLSX 生成单工作表的测试工作簿
func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		row := r
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// buildDOCX 生成只包含 document.xml 的最小 docx
func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func docxPara(style, text string) string {
	props := ""
	if style != "" {
		props = `<w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`
	}
	return `<w:p>` + props + `<w:r><w:t>` + text + `</w:t></w:r></w:p>`
}
