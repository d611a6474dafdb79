package rubric

import (
	"fmt"
	"strings"
)

// promptText holds the per-language fragments of the scoring instruction.
type promptText struct {
	systemRole      string
	languageWarning string
	criteria        map[string]string // rubric version -> criteria block
	outputFormat    map[string]string // rubric version -> required JSON shape
}

var prompts = map[string]promptText{
	LangSpanish: {
		systemRole:      "Eres un experto Coach de Bienes Raíces. Analiza la siguiente transcripción de una entrevista entre un Agente y un Cliente Potencial Vendedor.",
		languageWarning: "⚠️ CRÍTICO: TODAS TUS RESPUESTAS DEBEN ESTAR COMPLETAMENTE EN ESPAÑOL. NUNCA USES INGLÉS.",
		criteria: map[string]string{
			VersionPhases: `Debes evaluar al agente según qué tan bien descubrió estos puntos específicos:

1. Motivación (Por qué): "¿Por qué quiere mudarse?"
2. Objetivo (Para qué): "¿Para qué quiere mudarse?"
3. Plazo: "¿Cuándo tendría que estar mudado?"
4. Consecuencias: "¿Qué pasaría si no se muda?"
5. Decisor: "¿Quién toma la decisión final?"
6. Ubicación: "¿Dónde quiere mudarse?" (Lo primero que elige un comprador)
7. Liquidez/Presupuesto: "¿Con qué capital cuenta?"
8. Comodidades: "¿Qué comodidades le gustaría?"
9. Decisivas: "Si tuviera que elegir 1-2 comodidades decisivas"

REGLA ESPECIAL:
- Si el cliente menciona "PERMUTA", ¿el agente preguntó "Para qué quiere permutar?"? Si no lo hizo, penalización fuerte en Manejo de Objeciones.`,
			VersionDimensions: `Debes puntuar al agente en cada una de las siguientes dimensiones, de %d a %d puntos cada una, citando evidencia textual de la transcripción:

%s
REGLA ESPECIAL:
- Si el cliente menciona "PERMUTA", ¿el agente preguntó "Para qué quiere permutar?"? Si no lo hizo, penalización fuerte en objection_handling.

La suma de las dimensiones da el puntaje total (0-%d). Clasificación: %s.`,
		},
		outputFormat: map[string]string{
			VersionPhases: `FORMATO DE SALIDA (SOLO JSON, TODO EL TEXTO EN ESPAÑOL):
{
  "overall_score": 18,
  "phases": {
    "qualification": { "score": 4, "summary": "..." },
    "trust_building": { "score": 8, "summary": "..." },
    "closing": { "score": 6, "summary": "..." }
  },
  "recommendations": ["..."],
  "action_plan": ["..."],
  "labeled_transcript": "NOTA: Para evitar errores, genera SOLO las primeras 10 líneas del diálogo etiquetado, formato: AGENTE: (texto). CLIENTE: (texto)."
}

IMPORTANTE: Asegúrate de que el campo labeled_transcript sea un string válido. Escapa comillas dobles con \" y saltos de línea con \n.`,
			VersionDimensions: `FORMATO DE SALIDA (SOLO JSON, TODO EL TEXTO EN ESPAÑOL):
{
  "overall_score": 12,
  "classification": "Trainable Potential",
  "dimensions": {
%s
  },
  "skill_gap": {
    "primary_weakness": "...",
    "observed_pattern": "...",
    "commercial_impact": "..."
  },
  "training_recommendation": {
    "priority_focus": "...",
    "what_to_train": ["..."],
    "what_to_observe": "..."
  },
  "broker_decision": {
    "suitable_for_training": true,
    "suitable_for_high_value": false,
    "recommended_reevaluation": "..."
  },
  "labeled_transcript": "NOTA: Para evitar errores, genera SOLO las primeras 10 líneas del diálogo etiquetado, formato: AGENTE: (texto). CLIENTE: (texto)."
}

IMPORTANTE: El campo classification debe ser exactamente uno de: "High Risk", "Trainable Potential", "Reliable Agent". Escapa comillas dobles con \" y saltos de línea con \n.`,
		},
	},
	LangEnglish: {
		systemRole:      "You are an expert Real Estate Coach. Analyze the following interview transcript between an Agent and a Potential Seller.",
		languageWarning: "⚠️ CRITICAL: ALL YOUR RESPONSES MUST BE COMPLETELY IN ENGLISH. NEVER USE SPANISH.",
		criteria: map[string]string{
			VersionPhases: `You must score the agent on how well they uncovered these specific points:

1. Motivation (Why): "Why do you want to move?"
2. Goal (What for): "What do you want to move for?"
3. Timeline: "When would you need to be moved?"
4. Consequences: "What would happen if you don't move?"
5. Decision Maker: "Who makes the final decision?"
6. Location: "Where do you want to move?" (The first thing a buyer chooses)
7. Liquidity/Budget: "What capital do you have available?"
8. Amenities: "What amenities would you like?"
9. Deal Breakers: "If you had to choose 1-2 decisive amenities"

SPECIAL RULE:
- If the client mentions "EXCHANGE/TRADE-IN", did the agent ask "What do you want to exchange for?"? If not, heavy penalty on Objection Handling.`,
			VersionDimensions: `You must score the agent on each of the following dimensions, from %d to %d points each, citing textual evidence from the transcript:

%s
SPECIAL RULE:
- If the client mentions "EXCHANGE/TRADE-IN", did the agent ask "What do you want to exchange for?"? If not, heavy penalty on objection_handling.

The dimension scores sum to the overall score (0-%d). Classification: %s.`,
		},
		outputFormat: map[string]string{
			VersionPhases: `OUTPUT FORMAT (JSON ONLY, ALL TEXT IN ENGLISH):
{
  "overall_score": 18,
  "phases": {
    "qualification": { "score": 4, "summary": "..." },
    "trust_building": { "score": 8, "summary": "..." },
    "closing": { "score": 6, "summary": "..." }
  },
  "recommendations": ["..."],
  "action_plan": ["..."],
  "labeled_transcript": "NOTE: To avoid errors, generate ONLY the first 10 lines of labeled dialogue, format: AGENT: (text). CLIENT: (text)."
}

IMPORTANT: Ensure the labeled_transcript field is a valid string. Escape double quotes with \" and newlines with \n.`,
			VersionDimensions: `OUTPUT FORMAT (JSON ONLY, ALL TEXT IN ENGLISH):
{
  "overall_score": 12,
  "classification": "Trainable Potential",
  "dimensions": {
%s
  },
  "skill_gap": {
    "primary_weakness": "...",
    "observed_pattern": "...",
    "commercial_impact": "..."
  },
  "training_recommendation": {
    "priority_focus": "...",
    "what_to_train": ["..."],
    "what_to_observe": "..."
  },
  "broker_decision": {
    "suitable_for_training": true,
    "suitable_for_high_value": false,
    "recommended_reevaluation": "..."
  },
  "labeled_transcript": "NOTE: To avoid errors, generate ONLY the first 10 lines of labeled dialogue, format: AGENT: (text). CLIENT: (text)."
}

IMPORTANT: The classification field must be exactly one of: "High Risk", "Trainable Potential", "Reliable Agent". Escape double quotes with \" and newlines with \n.`,
		},
	},
}

// BuildPrompt assembles the fixed system instruction for scoring a
// transcript against r in the given language: role, language constraint,
// scoring criteria and the required JSON output shape.
func BuildPrompt(r *Rubric, language string) (string, error) {
	p, ok := prompts[language]
	if !ok {
		return "", fmt.Errorf("unsupported language %q", language)
	}
	criteria, ok := p.criteria[r.Version]
	if !ok {
		return "", fmt.Errorf("no prompt registered for rubric %q", r.Version)
	}
	format := p.outputFormat[r.Version]

	if r.Version == VersionDimensions {
		criteria = fmt.Sprintf(criteria,
			r.Dimensions[0].MinScore, r.Dimensions[0].MaxScore,
			dimensionList(r), r.MaxScore, bandList(r))
		format = fmt.Sprintf(format, dimensionShape(r))
	}

	return strings.Join([]string{p.systemRole, p.languageWarning, criteria, format}, "\n\n"), nil
}

func dimensionList(r *Rubric) string {
	var b strings.Builder
	for i, d := range r.Dimensions {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, d.Key, d.Description)
	}
	return b.String()
}

func dimensionShape(r *Rubric) string {
	lines := make([]string, len(r.Dimensions))
	for i, d := range r.Dimensions {
		lines[i] = fmt.Sprintf("    %q: { \"score\": %d, \"evidence\": \"...\" }", d.Key, d.MaxScore-1)
	}
	return strings.Join(lines, ",\n")
}

func bandList(r *Rubric) string {
	parts := make([]string, len(r.Bands))
	for i, b := range r.Bands {
		parts[i] = fmt.Sprintf("%d-%d = %s", b.Min, b.Max, b.Label)
	}
	return strings.Join(parts, ", ")
}
