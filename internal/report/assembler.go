// Package report builds a render-agnostic document model from a
// finalized APR. The same model can back a PDF, an HTML page or a
// tabular export; nothing here knows about rendering technology.
package report

import (
	"fmt"
	"strings"
	"time"

	"apr-manager/internal/analysis"
	"apr-manager/internal/models"
	"apr-manager/internal/risk"
)

type SectionType string

const (
	SectionHeader     SectionType = "header"
	SectionText       SectionType = "text"
	SectionList       SectionType = "list"
	SectionTable      SectionType = "table"
	SectionChecklist  SectionType = "checklist"
	SectionSignatures SectionType = "signatures"
	SectionNote       SectionType = "note"
)

// RowClass classifies a risk row into one of the four bands. The bands
// are the risk engine's, never re-derived here.
type RowClass string

const (
	ClassNone         RowClass = ""
	ClassAcceptable   RowClass = "acceptable"
	ClassTolerable    RowClass = "tolerable"
	ClassUnacceptable RowClass = "unacceptable"
	ClassInadmissible RowClass = "inadmissible"
)

type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

type Row struct {
	Cells []string `json:"cells"`
	Class RowClass `json:"class,omitempty"`
}

type CheckItem struct {
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

type SignatureLine struct {
	Role     string     `json:"role"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	SignedAt *time.Time `json:"signedAt,omitempty"`
}

type Section struct {
	Type       SectionType     `json:"type"`
	Title      string          `json:"title,omitempty"`
	Text       string          `json:"text,omitempty"`
	Items      []string        `json:"items,omitempty"`
	Table      *Table          `json:"table,omitempty"`
	Checks     []CheckItem     `json:"checks,omitempty"`
	Signatures []SignatureLine `json:"signatures,omitempty"`
}

type Document struct {
	Title    string          `json:"title"`
	Language models.Language `json:"language"`
	Sections []Section       `json:"sections"`
}

type Input struct {
	Apr       *models.Apr
	Images    []models.AprImage
	Responses []models.AprResponse
	Analysis  *analysis.Result
	Company   *models.Company
	Creator   *models.User
	Approver  *models.User
	Language  models.Language
}

// Assemble is a pure transform from APR data to the document model.
func Assemble(in Input) *Document {
	lang := in.Language
	if !models.ValidLanguage(lang) {
		lang = models.LangPtBR
	}
	t := func(pt, en string) string {
		if lang == models.LangPtBR {
			return pt
		}
		return en
	}

	doc := &Document{
		Title:    t("ANÁLISE PRELIMINAR DE RISCOS - APR", "PRELIMINARY RISK ANALYSIS - PRA"),
		Language: lang,
	}

	doc.Sections = append(doc.Sections, headerSection(in, t))
	doc.Sections = append(doc.Sections, Section{
		Type:  SectionText,
		Title: t("DESCRIÇÃO DO TRABALHO", "WORK DESCRIPTION"),
		Text:  in.Apr.ActivityDescription,
	})

	if team := in.Apr.TeamMemberList(); len(team) > 0 {
		doc.Sections = append(doc.Sections, Section{
			Type:  SectionList,
			Title: t("EQUIPE DE TRABALHO", "WORK TEAM"),
			Items: team,
		})
	}
	if tools := in.Apr.ToolList(); len(tools) > 0 {
		doc.Sections = append(doc.Sections, Section{
			Type:  SectionList,
			Title: t("FERRAMENTAS E EQUIPAMENTOS", "TOOLS AND EQUIPMENT"),
			Items: tools,
		})
	}
	if contacts := in.Apr.EmergencyContactList(); len(contacts) > 0 {
		doc.Sections = append(doc.Sections, emergencySection(contacts, t))
	}

	if in.Analysis != nil {
		doc.Sections = append(doc.Sections, riskMatrixSection(in.Analysis, t))
		doc.Sections = append(doc.Sections, summarySection(in.Analysis, t))
	}

	doc.Sections = append(doc.Sections, criteriaSection(t))

	if in.Analysis != nil {
		doc.Sections = append(doc.Sections, specialWorkSection(in.Analysis, t))
		if len(in.Analysis.RequiredPPE) > 0 {
			doc.Sections = append(doc.Sections, Section{
				Type:  SectionList,
				Title: t("EQUIPAMENTOS DE PROTEÇÃO INDIVIDUAL (EPIs) - NR-6", "PERSONAL PROTECTIVE EQUIPMENT (PPE) - NR-6"),
				Items: in.Analysis.RequiredPPE,
			})
		}
		doc.Sections = append(doc.Sections, communicationSection(in.Analysis, t))
	}

	if len(in.Images) > 0 {
		doc.Sections = append(doc.Sections, imagesSection(in.Images, t))
	}
	if len(in.Responses) > 0 {
		doc.Sections = append(doc.Sections, responsesSection(in.Responses, t))
	}

	doc.Sections = append(doc.Sections, signatureSection(in, t))
	doc.Sections = append(doc.Sections, Section{
		Type: SectionNote,
		Text: t("Documento gerado em ", "Document generated on ") + time.Now().Format("02/01/2006 15:04"),
	})

	return doc
}

func headerSection(in Input, t func(pt, en string) string) Section {
	companyName := ""
	if in.Company != nil {
		companyName = in.Company.Name
	}
	creatorName := ""
	if in.Creator != nil {
		creatorName = in.Creator.Name
	}
	location := in.Apr.Location
	if location == "" {
		location = "N/A"
	}

	return Section{
		Type: SectionHeader,
		Table: &Table{
			Columns: []string{"", ""},
			Rows: []Row{
				{Cells: []string{t("Setor/Área:", "Sector/Area:"), location}},
				{Cells: []string{t("Equipamento:", "Equipment:"), in.Apr.Title}},
				{Cells: []string{t("Responsável:", "Responsible:"), creatorName}},
				{Cells: []string{t("Empresa:", "Company:"), companyName}},
				{Cells: []string{t("Data Elaboração:", "Date Created:"), in.Apr.CreatedAt.Format("02/01/2006")}},
				{Cells: []string{t("Status:", "Status:"), statusLabel(in.Apr.Status, t)}},
			},
		},
	}
}

func emergencySection(contacts []models.EmergencyContact, t func(pt, en string) string) Section {
	table := &Table{
		Columns: []string{t("Nome", "Name"), t("Telefone", "Phone"), t("Cargo", "Role")},
	}
	for _, contact := range contacts {
		role := contact.Role
		if role == "" {
			role = "-"
		}
		table.Rows = append(table.Rows, Row{Cells: []string{contact.Name, contact.Phone, role}})
	}
	return Section{
		Type:  SectionTable,
		Title: t("CONTATOS DE EMERGÊNCIA", "EMERGENCY CONTACTS"),
		Table: table,
	}
}

func riskMatrixSection(a *analysis.Result, t func(pt, en string) string) Section {
	table := &Table{
		Columns: []string{
			t("Tarefas", "Tasks"),
			t("Perigos", "Hazards"),
			"P", "S", "NR",
			t("Medidas de Controle", "Control Measures"),
			t("NRs Aplicáveis", "Applicable NRs"),
		},
	}

	for _, item := range a.Risks {
		table.Rows = append(table.Rows, Row{
			Cells: []string{
				item.Task,
				item.Hazard,
				fmt.Sprintf("%d", item.Probability),
				fmt.Sprintf("%d", item.Severity),
				fmt.Sprintf("%d", item.RiskLevel),
				item.ControlMeasures,
				strings.Join(item.ApplicableNRs, ", "),
			},
			Class: classify(item.RiskLevel),
		})
	}

	return Section{
		Type:  SectionTable,
		Title: t("METODOLOGIA E ANÁLISE DE RISCO", "METHODOLOGY AND RISK ANALYSIS"),
		Table: table,
	}
}

func summarySection(a *analysis.Result, t func(pt, en string) string) Section {
	summary := risk.Summarize(a.Levels())
	items := []string{summary.Banner}
	if a.Summary != "" {
		items = append(items, a.Summary)
	}
	return Section{
		Type:  SectionList,
		Title: t("RESUMO EXECUTIVO", "EXECUTIVE SUMMARY"),
		Items: items,
	}
}

// criteriaSection is the fixed legal explanation block; it never varies
// with the analysis content.
func criteriaSection(t func(pt, en string) string) Section {
	return Section{
		Type:  SectionText,
		Title: t("CRITÉRIOS DE AVALIAÇÃO DE RISCOS", "RISK ASSESSMENT CRITERIA"),
		Text: t(
			"PROBABILIDADE (P): 1 = Controles efetivos; 2 = Controles pouco efetivos; 3 = Controles não efetivos; 4 = Sem controles. "+
				"SEVERIDADE (S): 1 = Lesão leve; 2 = Incapacidade temporária; 3 = Incapacidade permanente; 4 = Lesão grave ou morte. "+
				"CATEGORIA DE RISCO (NR = P × S): 1-2 Aceitável | 3-4 Tolerável | 6-9 Inaceitável | 12-16 Inadmissível.",
			"PROBABILITY (P): 1 = Effective controls; 2 = Minimally effective controls; 3 = Ineffective controls; 4 = No controls. "+
				"SEVERITY (S): 1 = Minor injury; 2 = Temporary disability; 3 = Permanent disability; 4 = Serious injury or death. "+
				"RISK CATEGORY (NR = P × S): 1-2 Acceptable | 3-4 Tolerable | 6-9 Unacceptable | 12-16 Inadmissible.",
		),
	}
}

func specialWorkSection(a *analysis.Result, t func(pt, en string) string) Section {
	p := a.SpecialWorkPermits
	checks := []CheckItem{
		{Label: t("Energia Elétrica NR-10", "Electrical Work NR-10"), Checked: p.NR10Electrical},
		{Label: t("Trabalho em Altura NR-35", "Work at Height NR-35"), Checked: p.NR35Height},
		{Label: t("Espaço Confinado NR-33", "Confined Space NR-33"), Checked: p.NR33Confined},
		{Label: t("Vasos de Pressão NR-12", "Pressure Vessels NR-12"), Checked: p.NR12Pressure},
		{Label: t("Escavação NR-18", "Excavation NR-18"), Checked: p.NR18Excavation},
		{Label: t("Trabalho a Quente NR-18", "Hot Work NR-18"), Checked: p.NR18HotWork},
		{Label: t("Içamentos NR-18", "Lifting NR-18"), Checked: p.NR18Lifting},
	}
	if p.Others != "" {
		checks = append(checks, CheckItem{Label: t("Outros: ", "Others: ") + p.Others, Checked: true})
	}
	return Section{
		Type:   SectionChecklist,
		Title:  t("TRABALHOS ESPECIAIS DE RISCO", "SPECIAL RISK WORK"),
		Checks: checks,
	}
}

func communicationSection(a *analysis.Result, t func(pt, en string) string) Section {
	n := a.CommunicationNeeds
	checks := []CheckItem{
		{Label: t("Gestão", "Management"), Checked: n.Management},
		{Label: t("Supervisão", "Supervision"), Checked: n.Supervision},
		{Label: t("Segurança do Trabalho", "Occupational Safety"), Checked: n.Safety},
		{Label: t("Meio Ambiente", "Environment"), Checked: n.Environment},
		{Label: t("Brigada de Emergência", "Emergency Brigade"), Checked: n.EmergencyBrigade},
		{Label: t("Segurança Patrimonial", "Site Security"), Checked: n.Security},
		{Label: t("Compras", "Purchasing"), Checked: n.Purchasing},
		{Label: t("Recursos Humanos", "Human Resources"), Checked: n.HR},
	}
	return Section{
		Type:   SectionChecklist,
		Title:  t("SETORES A COMUNICAR", "SECTORS TO NOTIFY"),
		Checks: checks,
	}
}

func imagesSection(images []models.AprImage, t func(pt, en string) string) Section {
	items := make([]string, 0, len(images))
	for i, img := range images {
		label := fmt.Sprintf("%s %d: %s", t("Imagem", "Image"), i+1, img.ImageURL)
		if img.Caption != "" {
			label += " - " + img.Caption
		}
		items = append(items, label)
	}
	return Section{
		Type:  SectionList,
		Title: t("IMAGENS ANEXADAS", "ATTACHED IMAGES"),
		Items: items,
	}
}

func responsesSection(responses []models.AprResponse, t func(pt, en string) string) Section {
	table := &Table{
		Columns: []string{t("Pergunta", "Question"), t("Resposta", "Answer")},
	}
	for _, r := range responses {
		table.Rows = append(table.Rows, Row{Cells: []string{r.QuestionText, r.Answer}})
	}
	return Section{
		Type:  SectionTable,
		Title: t("RESPOSTAS DO QUESTIONÁRIO", "QUESTIONNAIRE RESPONSES"),
		Table: table,
	}
}

func signatureSection(in Input, t func(pt, en string) string) Section {
	lines := []SignatureLine{}
	if in.Creator != nil {
		lines = append(lines, SignatureLine{
			Role:  t("Elaborado por:", "Prepared by:"),
			Name:  in.Creator.Name,
			Email: in.Creator.Email,
		})
	}
	approver := SignatureLine{Role: t("Aprovado por (Segurança):", "Approved by (Safety):")}
	if in.Approver != nil {
		approver.Name = in.Approver.Name
		approver.Email = in.Approver.Email
		approver.SignedAt = in.Apr.ApprovedAt
	}
	lines = append(lines, approver)

	return Section{
		Type:       SectionSignatures,
		Title:      t("ASSINATURAS", "SIGNATURES"),
		Signatures: lines,
	}
}

func classify(level int) RowClass {
	switch risk.Categorize(level) {
	case risk.CategoryAcceptable:
		return ClassAcceptable
	case risk.CategoryTolerable:
		return ClassTolerable
	case risk.CategoryUnacceptable:
		return ClassUnacceptable
	default:
		return ClassInadmissible
	}
}

func statusLabel(s models.AprStatus, t func(pt, en string) string) string {
	switch s {
	case models.StatusDraft:
		return t("Rascunho", "Draft")
	case models.StatusPendingApproval:
		return t("Pendente de Aprovação", "Pending Approval")
	case models.StatusApproved:
		return t("Aprovada", "Approved")
	case models.StatusRejected:
		return t("Rejeitada", "Rejected")
	}
	return string(s)
}

