package apr

import "apr-manager/internal/models"

// Question is one entry of the fixed safety questionnaire answered when
// drafting an APR. The catalog is versioned with the code, not stored.
type Question struct {
	Key      string            `json:"key"`
	Text     string            `json:"text"`
	Type     models.AnswerType `json:"type"`
	Options  []string          `json:"options,omitempty"`
	Category string            `json:"category"`
}

type QuestionCategory struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var Questions = []Question{
	{Key: "critical_activity", Text: "Esta atividade é considerada crítica?", Type: models.AnswerBoolean, Category: "general"},
	{Key: "critical_activity_description", Text: "Descreva por que esta atividade é crítica:", Type: models.AnswerText, Category: "general"},

	{Key: "hot_work", Text: "A atividade envolve trabalho a quente (soldagem, corte, esmerilhamento)?", Type: models.AnswerBoolean, Category: "hot_work"},
	{Key: "hot_work_permit", Text: "Foi emitida permissão de trabalho a quente?", Type: models.AnswerBoolean, Category: "hot_work"},

	{Key: "work_at_height", Text: "A atividade envolve trabalho em altura (acima de 2 metros)?", Type: models.AnswerBoolean, Category: "height"},
	{Key: "fall_protection", Text: "Quais sistemas de proteção contra quedas serão utilizados?", Type: models.AnswerMultipleChoice, Category: "height",
		Options: []string{"Cinto de segurança tipo paraquedista", "Linha de vida", "Trava-quedas", "Guarda-corpo", "Rede de proteção", "Outro"}},

	{Key: "mechanical_risks", Text: "Existem riscos mecânicos (máquinas, equipamentos móveis, partes rotativas)?", Type: models.AnswerBoolean, Category: "mechanical"},
	{Key: "mechanical_risks_description", Text: "Descreva os riscos mecânicos identificados:", Type: models.AnswerText, Category: "mechanical"},

	{Key: "electrical_risks", Text: "Existem riscos elétricos na atividade?", Type: models.AnswerBoolean, Category: "electrical"},
	{Key: "electrical_voltage", Text: "Qual a tensão elétrica envolvida?", Type: models.AnswerMultipleChoice, Category: "electrical",
		Options: []string{"Baixa tensão (até 1000V)", "Média tensão (1000V a 69kV)", "Alta tensão (acima de 69kV)", "Não se aplica"}},

	{Key: "chemical_risks", Text: "A atividade envolve produtos químicos?", Type: models.AnswerBoolean, Category: "chemical"},
	{Key: "chemical_products", Text: "Liste os produtos químicos que serão utilizados:", Type: models.AnswerText, Category: "chemical"},
	{Key: "chemical_hazards", Text: "Quais os principais perigos dos produtos químicos?", Type: models.AnswerMultipleChoice, Category: "chemical",
		Options: []string{"Inflamável", "Corrosivo", "Tóxico", "Irritante", "Cancerígeno", "Explosivo", "Outro"}},

	{Key: "ergonomic_risks", Text: "Existem riscos ergonômicos (levantamento de peso, postura inadequada)?", Type: models.AnswerBoolean, Category: "ergonomic"},
	{Key: "weight_lifting", Text: "A atividade envolve levantamento manual de cargas?", Type: models.AnswerBoolean, Category: "ergonomic"},
	{Key: "max_weight", Text: "Qual o peso máximo a ser levantado (kg)?", Type: models.AnswerText, Category: "ergonomic"},

	{Key: "biological_risks", Text: "Existem riscos biológicos (bactérias, vírus, fungos)?", Type: models.AnswerBoolean, Category: "biological"},
	{Key: "biological_description", Text: "Descreva os agentes biológicos presentes:", Type: models.AnswerText, Category: "biological"},

	{Key: "loto_required", Text: "É necessário bloqueio e travamento de energia (LOTO)?", Type: models.AnswerBoolean, Category: "loto"},
	{Key: "energy_sources", Text: "Quais fontes de energia precisam ser bloqueadas?", Type: models.AnswerMultipleChoice, Category: "loto",
		Options: []string{"Elétrica", "Pneumática", "Hidráulica", "Térmica", "Mecânica", "Química", "Outro"}},

	{Key: "explosive_atmosphere", Text: "Existe risco de atmosfera explosiva?", Type: models.AnswerBoolean, Category: "explosive"},
	{Key: "explosive_materials", Text: "Quais materiais podem formar atmosfera explosiva?", Type: models.AnswerText, Category: "explosive"},

	{Key: "stored_energy", Text: "Existe energia armazenada no sistema (pressão, molas, capacitores)?", Type: models.AnswerBoolean, Category: "energy"},
	{Key: "stored_energy_type", Text: "Que tipo de energia está armazenada?", Type: models.AnswerMultipleChoice, Category: "energy",
		Options: []string{"Pressão (ar comprimido)", "Pressão (hidráulica)", "Mecânica (molas)", "Elétrica (capacitores)", "Térmica", "Outro"}},

	{Key: "weather_conditions", Text: "As condições climáticas são adequadas para a atividade?", Type: models.AnswerBoolean, Category: "environmental"},
	{Key: "environmental_factors", Text: "Quais fatores ambientais podem afetar a segurança?", Type: models.AnswerMultipleChoice, Category: "environmental",
		Options: []string{"Chuva", "Vento forte", "Temperatura extrema", "Baixa visibilidade", "Ruído excessivo", "Nenhum"}},

	{Key: "required_ppe", Text: "Quais EPIs são necessários para esta atividade?", Type: models.AnswerMultipleChoice, Category: "ppe",
		Options: []string{"Capacete", "Óculos de segurança", "Protetor auricular", "Máscara/Respirador", "Luvas", "Calçado de segurança", "Cinto de segurança", "Vestimenta especial", "Protetor facial", "Outro"}},

	{Key: "existing_controls", Text: "Quais medidas de controle já existem no local?", Type: models.AnswerText, Category: "controls"},
	{Key: "additional_controls", Text: "Quais medidas de controle adicionais são recomendadas?", Type: models.AnswerText, Category: "controls"},

	{Key: "people_involved", Text: "Quantas pessoas estarão envolvidas na atividade?", Type: models.AnswerText, Category: "general"},
	{Key: "estimated_duration", Text: "Qual a duração estimada da atividade?", Type: models.AnswerText, Category: "general"},
	{Key: "equipment_used", Text: "Quais equipamentos e ferramentas serão utilizados?", Type: models.AnswerText, Category: "general"},
}

var Categories = []QuestionCategory{
	{Key: "general", Label: "Informações Gerais"},
	{Key: "hot_work", Label: "Trabalho a Quente"},
	{Key: "height", Label: "Trabalho em Altura"},
	{Key: "mechanical", Label: "Riscos Mecânicos"},
	{Key: "electrical", Label: "Riscos Elétricos"},
	{Key: "chemical", Label: "Riscos Químicos"},
	{Key: "ergonomic", Label: "Riscos Ergonômicos"},
	{Key: "biological", Label: "Riscos Biológicos"},
	{Key: "loto", Label: "LOTO (Bloqueio e Travamento)"},
	{Key: "explosive", Label: "Atmosferas Explosivas"},
	{Key: "energy", Label: "Energia Armazenada"},
	{Key: "environmental", Label: "Condições Ambientais"},
	{Key: "ppe", Label: "EPIs Necessários"},
	{Key: "controls", Label: "Medidas de Controle"},
}

var questionIndex = func() map[string]Question {
	idx := make(map[string]Question, len(Questions))
	for _, q := range Questions {
		idx[q.Key] = q
	}
	return idx
}()

// QuestionByKey looks up a catalog question; ok is false for unknown keys.
func QuestionByKey(key string) (Question, bool) {
	q, ok := questionIndex[key]
	return q, ok
}
