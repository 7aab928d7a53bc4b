package sectionparser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumbering(t *testing.T) {
	assert.Equal(t, []string{"1", "1.1", "1.2", "1.2.1", "2", "2.1"}, Numbering([]int{1, 2, 2, 3, 1, 2}))
	assert.Equal(t, []string{"1", "1.1", "1.2", "2", "2.1"}, Numbering([]int{1, 2, 2, 1, 2}))
}

func TestNumbering_ResetsDeeperLevels(t *testing.T) {
	got := Numbering([]int{1, 2, 3, 4, 2, 3})
	assert.Equal(t, []string{"1", "1.1", "1.1.1", "1.1.1.1", "1.2", "1.2.1"}, got)
}

func TestNumbering_ClampsLevels(t *testing.T) {
	got := Numbering([]int{0, 7})
	assert.Equal(t, []string{"1", "1.0.0.1"}, got)
}

func TestFromMarkup_Headings(t *testing.T) {
	html := `<p>Intro</p><h1>Objet</h1><p>Le présent marché</p><p>a pour objet</p><h2>Durée</h2><p>12 mois</p>`
	sections := FromMarkup(html)
	require.Len(t, sections, 3)

	assert.Equal(t, PreambleTitle, sections[0].Title)
	assert.Equal(t, "Intro", sections[0].Content)
	assert.Equal(t, "Objet", sections[1].Title)
	assert.Equal(t, "Le présent marché\na pour objet", sections[1].Content)
	assert.Equal(t, 1, sections[1].Level)
	assert.Equal(t, "Durée", sections[2].Title)
	assert.Equal(t, 2, sections[2].Level)
}

func TestFromMarkup_DeepHeadingClamped(t *testing.T) {
	sections := FromMarkup(`<h6>Très profond</h6><p>x</p>`)
	require.Len(t, sections, 1)
	assert.Equal(t, MaxLevel, sections[0].Level)
}

func TestExtract_PrefersMarkupWithTwoSections(t *testing.T) {
	e := NewExtractor(Options{})
	html := `<h1>A</h1><p>a</p><h1>B</h1><p>b</p>`
	text := "ARTICLE 1 - X\nARTICLE 2 - Y\nARTICLE 3 - Z"

	res := e.Extract(html, text)
	assert.Equal(t, TierMarkup, res.Tier)
	assert.Len(t, res.Sections, 2)
}

func TestExtract_SingleMarkupSectionFallsThrough(t *testing.T) {
	e := NewExtractor(Options{})
	html := `<h1>Seul</h1><p>texte</p>`
	text := "ARTICLE 1 - Objet\na\nARTICLE 2 - Prix\nb\nARTICLE 3 - Délais\nc\nARTICLE 4 - Pénalités\nd"

	res := e.Extract(html, text)
	assert.Equal(t, TierArticle, res.Tier)
	require.Len(t, res.Sections, 4)
	assert.Equal(t, "ARTICLE 1 - Objet", res.Sections[0].Title)
	assert.Equal(t, "a", res.Sections[0].Content)
	assert.Equal(t, "ARTICLE 4 - Pénalités", res.Sections[3].Title)
	assert.Equal(t, "d", res.Sections[3].Content)
}

func TestExtract_PreambleDoesNotCountTowardMarkupTier(t *testing.T) {
	e := NewExtractor(Options{})
	html := `<p>Ville de Lyon</p><p>Marché de travaux</p><h1>Cahier des clauses administratives</h1>` +
		`<p>ARTICLE 1 - Objet</p><p>a</p><p>ARTICLE 2 - Prix</p><p>b</p>` +
		`<p>ARTICLE 3 - Délais</p><p>c</p><p>ARTICLE 4 - Pénalités</p><p>d</p>`
	text := strings.Join([]string{
		"Ville de Lyon", "Marché de travaux", "Cahier des clauses administratives",
		"ARTICLE 1 - Objet", "a", "ARTICLE 2 - Prix", "b",
		"ARTICLE 3 - Délais", "c", "ARTICLE 4 - Pénalités", "d",
	}, "\n")

	res := e.Extract(html, text)
	assert.Equal(t, TierArticle, res.Tier)
	require.Len(t, res.Sections, 4)
	assert.Equal(t, "ARTICLE 1 - Objet", res.Sections[0].Title)
	assert.Equal(t, "d", res.Sections[3].Content)

	// 两个原生标题时前言保留
	res = e.Extract(`<p>Couverture</p><h1>A</h1><p>a</p><h1>B</h1>`, "")
	assert.Equal(t, TierMarkup, res.Tier)
	require.Len(t, res.Sections, 3)
	assert.Equal(t, PreambleTitle, res.Sections[0].Title)
}

func TestFindHeadings_SeparatorRuns(t *testing.T) {
	lines := []string{"ARTICLE 1.- Objet", "ARTICLE 2 – : Prix", "CHAPITRE III.- Exécution", "SECTION A :- Définitions"}
	matches := FindHeadings(lines, KindArticle, KindChapitre, KindSection)
	require.Len(t, matches, 4)
	assert.Equal(t, "ARTICLE 1 - Objet", matches[0].Title())
	assert.Equal(t, "ARTICLE 2 - Prix", matches[1].Title())
	assert.Equal(t, "CHAPITRE III - Exécution", matches[2].Title())
	assert.Equal(t, "SECTION A - Définitions", matches[3].Title())
}

func TestFromText_ArticleTitlesAndContent(t *testing.T) {
	text := `
  Préambule ignoré
article 1er : Objet du marché
Le marché porte sur
la fourniture de mobilier.

Article II
ARTICLE 3. Prix
Les prix sont fermes.
`
	sections, tier := FromText(text, DefaultOptions())
	assert.Equal(t, TierArticle, tier)
	require.Len(t, sections, 3)

	assert.Equal(t, "ARTICLE 1 - Objet du marché", sections[0].Title)
	assert.Equal(t, "Le marché porte sur\nla fourniture de mobilier.", sections[0].Content)
	assert.Equal(t, "ARTICLE II", sections[1].Title)
	assert.Equal(t, "", sections[1].Content)
	assert.Equal(t, "ARTICLE 3 - Prix", sections[2].Title)
	assert.Equal(t, "Les prix sont fermes.", sections[2].Content)
}

func TestFromText_CombinedPatterns(t *testing.T) {
	text := strings.Join([]string{
		"CHAPITRE I - Généralités",
		"texte 1",
		"Section A : Définitions",
		"texte 2",
		"ARTICLE 1 - Objet",
		"texte 3",
		"ARTICLE 2 - Durée",
	}, "\n")

	sections, tier := FromText(text, DefaultOptions())
	assert.Equal(t, TierCombined, tier)
	require.Len(t, sections, 4)
	assert.Equal(t, "CHAPITRE I - Généralités", sections[0].Title)
	assert.Equal(t, "SECTION A - Définitions", sections[1].Title)
	assert.Equal(t, "texte 2", sections[1].Content)
	assert.Equal(t, "ARTICLE 2 - Durée", sections[3].Title)
}

func TestFromText_NoMatchesFallsBackToSingleSection(t *testing.T) {
	text := "  Ce document ne contient\naucun titre reconnaissable.  "
	sections, tier := FromText(text, DefaultOptions())
	assert.Equal(t, TierFallback, tier)
	require.Len(t, sections, 1)
	assert.Equal(t, FallbackTitle, sections[0].Title)
	assert.Equal(t, strings.TrimSpace(text), sections[0].Content)
}

func TestFromText_TooFewCombinedMatchesFallsBack(t *testing.T) {
	text := "ARTICLE 1 - A\nx\nCHAPITRE 2\ny"
	sections, tier := FromText(text, DefaultOptions())
	assert.Equal(t, TierFallback, tier)
	assert.Len(t, sections, 1)
}

func TestFromText_OverSegmentationWithStrongArticles(t *testing.T) {
	var lines []string
	for i := 1; i <= 145; i++ {
		lines = append(lines, fmt.Sprintf("SECTION %d - élément", i))
	}
	for i := 1; i <= 5; i++ {
		lines = append(lines, fmt.Sprintf("ARTICLE %d - Clause", i), "contenu")
	}

	sections, tier := FromText(strings.Join(lines, "\n"), DefaultOptions())
	assert.Equal(t, TierArticle, tier)
	assert.Len(t, sections, 5)
}

func TestFromText_OverSegmentationGuard(t *testing.T) {
	var lines []string
	lines = append(lines, "ARTICLE 1 - Objet", "texte")
	for i := 1; i <= 130; i++ {
		lines = append(lines, fmt.Sprintf("Chapitre %d", i))
	}
	lines = append(lines, "ARTICLE 2 - Prix")

	sections, tier := FromText(strings.Join(lines, "\n"), DefaultOptions())
	assert.Equal(t, TierArticleGuard, tier)
	require.Len(t, sections, 2)
	assert.Equal(t, "ARTICLE 1 - Objet", sections[0].Title)
	assert.True(t, strings.HasPrefix(sections[0].Content, "texte\nChapitre 1\nChapitre 2"))
}

func TestFromText_OverSegmentationWithoutArticlesFallsBack(t *testing.T) {
	var lines []string
	for i := 1; i <= 121; i++ {
		lines = append(lines, fmt.Sprintf("SECTION %d", i))
	}
	sections, tier := FromText(strings.Join(lines, "\n"), DefaultOptions())
	assert.Equal(t, TierFallback, tier)
	assert.Len(t, sections, 1)
}

func TestFromText_CustomThresholds(t *testing.T) {
	text := "ARTICLE 1 - A\nARTICLE 2 - B"
	sections, tier := FromText(text, Options{ArticleMinMatches: 2})
	assert.Equal(t, TierArticle, tier)
	assert.Len(t, sections, 2)
}

func TestFindHeadings_IgnoresInlineReferences(t *testing.T) {
	lines := SplitLines("Article 5 du CCAG est remplacé\nARTICLE 5 - Prix")
	matches := FindHeadings(lines, KindArticle)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Line)
	assert.Equal(t, "5", matches[0].ID)
	assert.Equal(t, "Prix", matches[0].Suffix)
}

func TestSectionNumbers(t *testing.T) {
	sections := []Section{{Level: 1}, {Level: 2}, {Level: 1}}
	assert.Equal(t, []string{"1", "1.1", "2"}, SectionNumbers(sections))
}
