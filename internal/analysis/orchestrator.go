// Package analysis turns an APR's free-form activity data into a
// structured, schema-validated hazard matrix via the external reasoning
// service.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"apr-manager/internal/apperr"
	"apr-manager/internal/models"
	"apr-manager/internal/reasoning"
)

// Invoker is the reasoning-service boundary; *reasoning.Client satisfies
// it and tests substitute fakes.
type Invoker interface {
	Invoke(ctx context.Context, messages []reasoning.Message, format *reasoning.ResponseFormat) (string, error)
}

// Store is the persistence boundary for the analysis blob.
type Store interface {
	SaveAprAnalysis(id, companyID uint, analysis datatypes.JSON) error
}

type Orchestrator struct {
	invoker Invoker
	store   Store
	timeout time.Duration
}

func NewOrchestrator(invoker Invoker, store Store, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Orchestrator{invoker: invoker, store: store, timeout: timeout}
}

// Analyze assembles the analysis input for an APR, invokes the reasoning
// service under the strict output schema, pipes the numbers through the
// risk engine and persists the merged result as a single update. Any
// failure surfaces as AnalysisError and leaves the stored analysis
// untouched. No automatic retry: resubmission is the retry.
func (o *Orchestrator) Analyze(
	ctx context.Context,
	apr *models.Apr,
	responses []models.AprResponse,
	images []models.AprImage,
	lang models.Language,
) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := buildAnalysisMessages(apr.ActivityDescription, responses, images, lang)
	format := &reasoning.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &reasoning.JSONSchema{
			Name:   "apr_analysis",
			Strict: true,
			Schema: ResponseSchema(),
		},
	}

	content, err := o.invoker.Invoke(ctx, messages, format)
	if err != nil {
		return nil, apperr.Analysis("reasoning service call failed", err)
	}

	result, err := ParseResult([]byte(content))
	if err != nil {
		return nil, apperr.Analysis("reasoning service returned a non-conforming analysis", err)
	}

	blob, err := json.Marshal(result)
	if err != nil {
		return nil, apperr.Analysis("failed to encode analysis", err)
	}
	if err := o.store.SaveAprAnalysis(apr.ID, apr.CompanyID, blob); err != nil {
		return nil, err
	}
	return result, nil
}

// DescribeImages runs a visual-inspection-only pass and returns free-text
// safety observations. It is best-effort enrichment: any failure degrades
// to an empty list instead of failing the caller.
func (o *Orchestrator) DescribeImages(ctx context.Context, images []models.AprImage, lang models.Language) []string {
	if len(images) == 0 {
		return []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	parts := []reasoning.Part{{Type: "text", Text: imageUserPrompt(lang)}}
	for _, img := range images {
		parts = append(parts, reasoning.Part{
			Type:     "image_url",
			ImageURL: &reasoning.ImageRef{URL: img.ImageURL, Detail: "high"},
		})
	}

	messages := []reasoning.Message{
		{Role: "system", Content: imageSystemPrompt(lang)},
		{Role: "user", Content: parts},
	}

	content, err := o.invoker.Invoke(ctx, messages, nil)
	if err != nil {
		log.Printf("image description failed: %v", err)
		return []string{}
	}

	observations := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if line != "" {
			observations = append(observations, line)
		}
	}
	return observations
}

func buildAnalysisMessages(
	activityDescription string,
	responses []models.AprResponse,
	images []models.AprImage,
	lang models.Language,
) []reasoning.Message {
	pt := lang == models.LangPtBR

	var qa strings.Builder
	for _, r := range responses {
		fmt.Fprintf(&qa, "%s: %s\n", r.QuestionText, r.Answer)
	}
	if qa.Len() == 0 {
		if pt {
			qa.WriteString("Nenhuma resposta de questionário fornecida.")
		} else {
			qa.WriteString("No questionnaire responses provided.")
		}
	}

	var userText string
	if pt {
		userText = fmt.Sprintf(
			"Analise a seguinte atividade de trabalho e gere uma Análise Preliminar de Riscos completa:\n\n"+
				"DESCRIÇÃO DA ATIVIDADE:\n%s\n\nRESPOSTAS DO QUESTIONÁRIO:\n%s",
			activityDescription, qa.String())
	} else {
		userText = fmt.Sprintf(
			"Analyze the following work activity and generate a complete Preliminary Risk Analysis:\n\n"+
				"ACTIVITY DESCRIPTION:\n%s\n\nQUESTIONNAIRE RESPONSES:\n%s",
			activityDescription, qa.String())
	}

	if len(images) > 0 {
		if pt {
			userText += fmt.Sprintf(
				"\n\nIMAGENS: %d imagem(ns) do local de trabalho estão anexadas. "+
					"Inspecione-as visualmente e complemente a descrição da atividade com suas observações.",
				len(images))
		} else {
			userText += fmt.Sprintf(
				"\n\nIMAGES: %d workplace image(s) are attached. "+
					"Inspect them visually and supplement the activity description with your observations.",
				len(images))
		}
	}

	// image references go along as content parts, not just a count
	parts := []reasoning.Part{{Type: "text", Text: userText}}
	for _, img := range images {
		parts = append(parts, reasoning.Part{
			Type:     "image_url",
			ImageURL: &reasoning.ImageRef{URL: img.ImageURL, Detail: "high"},
		})
	}

	var userContent any
	if len(images) > 0 {
		userContent = parts
	} else {
		userContent = userText
	}

	return []reasoning.Message{
		{Role: "system", Content: analysisSystemPrompt(lang)},
		{Role: "user", Content: userContent},
	}
}

func analysisSystemPrompt(lang models.Language) string {
	if lang == models.LangPtBR {
		return `Você é um especialista em Segurança do Trabalho e Análise Preliminar de Riscos (APR).
Analise as informações fornecidas sobre uma atividade de trabalho e gere uma análise completa de riscos.

Para cada risco identificado:
1. Nomeie a tarefa/etapa e o perigo de forma clara e objetiva
2. Avalie a probabilidade numa escala de 1 (controles efetivos) a 4 (sem controles)
3. Avalie a severidade numa escala de 1 (lesão leve) a 4 (lesão grave ou morte)
4. Descreva as medidas de controle necessárias
5. Liste as Normas Regulamentadoras (NRs) aplicáveis

Identifique também os trabalhos especiais de risco, os EPIs obrigatórios,
os setores que devem ser comunicados e um resumo executivo.
Seja preciso, técnico e siga as normas regulamentadoras brasileiras.`
	}
	return `You are an expert in Occupational Safety and Preliminary Risk Analysis (PRA).
Analyze the provided information about a work activity and generate a complete risk analysis.

For each identified risk:
1. Name the task/step and the hazard clearly and objectively
2. Assess probability on a scale of 1 (effective controls) to 4 (no controls)
3. Assess severity on a scale of 1 (minor injury) to 4 (serious injury or death)
4. Describe the required control measures
5. List the applicable regulatory standards

Also identify special risk work categories, required PPE, the sectors
that must be notified and an executive summary.
Be precise, technical, and follow occupational safety standards.`
}

func imageSystemPrompt(lang models.Language) string {
	if lang == models.LangPtBR {
		return `Você é um especialista em Segurança do Trabalho. Analise as imagens fornecidas e identifique:
- Riscos visíveis no ambiente de trabalho
- EPIs presentes ou ausentes
- Condições inseguras
- Equipamentos e máquinas
- Boas práticas ou violações de segurança

Seja específico e técnico em sua análise.`
	}
	return `You are an Occupational Safety expert. Analyze the provided images and identify:
- Visible risks in the workplace
- PPE present or absent
- Unsafe conditions
- Equipment and machinery
- Good practices or safety violations

Be specific and technical in your analysis.`
}

func imageUserPrompt(lang models.Language) string {
	if lang == models.LangPtBR {
		return "Analise estas imagens do local de trabalho e liste os principais pontos de atenção relacionados à segurança:"
	}
	return "Analyze these workplace images and list the main safety concerns:"
}
