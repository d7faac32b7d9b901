package gateway

import (
	"fmt"

	"google.golang.org/genai"

	"sahaj/internal/models"
)

func analyzePrompt(lang models.Language) string {
	return fmt.Sprintf(`You are an assistant specialized in analyzing government paperwork and simplifying complex legal terms for citizens.

Analyze the attached document and extract:
- fieldNames: every field present in the document.
- originalTerms: the original, complex terms used in the document.
- simplifiedExplanations: one simplified explanation for each original term, in the same order, written in %s so the average citizen understands it.
- requiredActions: the actions the user needs to take based on the document's requirements.
- verifiedResources: links to official government portals and filing resources related to the document.

simplifiedExplanations must contain exactly as many entries as originalTerms.`, lang.EnglishName())
}

func chatSystemPrompt(formAnalysis string, lang models.Language) string {
	return fmt.Sprintf(`You are a helpful assistant that specializes in explaining government paperwork in simple terms.
You can respond in English, Hindi, Bengali, Marathi and Tamil.
The user asks a question about a form; answer it based on this analysis of the form:
%s

Respond in the language specified by the user. The language is: %s (%s).
Keep the answer short enough to be read aloud.`, formAnalysis, lang.Lower(), lang.EnglishName())
}

func locatePrompt(formType string, lat, lng float64) string {
	return fmt.Sprintf(`You help users find nearby government offices related to the form they are working on.
The user is working with a form of type: %s.
Their current location is latitude %.6f, longitude %.6f.
Find nearby government offices (for example CSC centers, Aadhaar Kendras, passport seva kendras or municipal offices) that handle this kind of form.
Answer with one office per line in the form "Name - Address" and nothing else.`, formType, lat, lng)
}

func stringSchema(desc string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: desc,
		Items:       &genai.Schema{Type: genai.TypeString},
	}
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"fieldNames":             stringSchema("The names of the fields in the document."),
		"originalTerms":          stringSchema("The original terms used in the document."),
		"simplifiedExplanations": stringSchema("Simplified explanations of the original terms, translated to the target language."),
		"requiredActions":        stringSchema("The actions the user needs to take based on the document."),
		"verifiedResources":      stringSchema("Links to verified government portals and filing resources."),
	},
	Required: []string{
		"fieldNames", "originalTerms", "simplifiedExplanations", "requiredActions", "verifiedResources",
	},
	PropertyOrdering: []string{
		"fieldNames", "originalTerms", "simplifiedExplanations", "requiredActions", "verifiedResources",
	},
}
