// Package prompt builds the message sequences sent to the model. Every
// function here is a pure function of its inputs.
package prompt

import (
	"fmt"

	"civicconnect/internal/llm"
)

// CompletionToken is the literal sentinel the dialogue system prompt asks the
// model to emit once category, description and priority are all known.
const CompletionToken = "[COMPLETE]"

const LanguageTelugu = "te"

func Translate(text, sourceLang, targetLang string) []llm.Message {
	content := fmt.Sprintf("Translate the following %s text to %s strictly. Output only the translation:\n\n%s", sourceLang, targetLang, text)
	return []llm.Message{llm.Text(llm.RoleUser, content)}
}

const extractInstructions = `Analyze the civic complaint text and extract:
1. Category (road, garbage, drainage, water, streetlight, others)
2. Summary (short description)
3. Priority (low, medium, high, critical)
4. Location Details

Output ONLY valid JSON format like:
{"category": "...", "summary": "...", "priority": "...", "location_details": "..."}`

func ExtractFromText(transcript, locationContext string) []llm.Message {
	content := fmt.Sprintf("%s\n\nComplaint: %s\nLocation Context: %s", extractInstructions, transcript, locationContext)
	return []llm.Message{llm.Text(llm.RoleUser, content)}
}

const imageInstructions = `Analyze this image of a civic issue.
Extract the following details in JSON format:
1. category: (road, garbage, drainage, water, streetlight, others)
2. title: A short, clear title.
3. description: A detailed description of the visual issue.
4. priority: (low, medium, high, critical)

Output ONLY valid JSON: {"category": "...", "title": "...", "description": "...", "priority": "..."}`

func ExtractFromImage(imageB64, mimeType string) []llm.Message {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, imageB64)
	return []llm.Message{{
		Role: llm.RoleUser,
		Content: []llm.ContentPart{
			llm.TextPart(imageInstructions),
			llm.ImagePart(dataURL),
		},
	}}
}

const dialogueSystemEN = `You are a helpful civic complaint intake assistant for 'CivicConnect'.
Your goal is to gather the following details from the user:
1. Category (road, garbage, drainage, water, streetlight, others)
2. Description (What exactly is the problem?)
3. Priority/Severity (Does it look dangerous/urgent?)

CONTEXT:
- The user's GPS location is ALREADY CAPTURED (%s). You verify this location only if necessary.
- Act as a polite interviewer.
- Ask ONE short clarifying question at a time.
- Keep your responses BRIEF (max 1-2 sentences) as they will be spoken aloud.

TERMINATION:
- When you have obtained Category, Description, and Priority, output the special token ` + CompletionToken + ` followed immediately by a JSON object.
- JSON Format: {"category": "...", "title": "...", "description": "...", "priority": "..."}

Example:
Assistant: "How large is the pothole?"
User: "It's big."
Assistant: ` + CompletionToken + ` {"category": "road", "title": "Large Pothole", "description": "Big pothole blocking traffic", "priority": "high"}`

const dialogueSystemTE = `మీరు 'CivicConnect' కోసం సహాయక పౌర ఫిర్యాదు స్వీకరణ సహాయకులు.
మీ లక్ష్యం వినియోగదారు నుండి కింది వివరాలను సేకరించడం:
1. వర్గం (రోడ్డు, చెత్త, డ్రైనేజీ, నీరు, వీధి దీపం, ఇతర)
2. వివరణ (సమస్య ఏమిటి?)
3. తీవ్రత (అది ప్రమాదకరంగా ఉందా?)

సందర్భం:
- వినియోగదారు GPS స్థానం ఇప్పటికే తీసుకోబడింది (%s).
- మర్యాదపూర్వక ఇంటర్వ్యూయర్‌గా వ్యవహరించండి.
- ఒక సమయంలో ఒక చిన్న ప్రశ్న అడగండి.
- మీ సమాధానాలు చాలా క్లుప్తంగా (గరిష్టంగా 1-2 వాక్యాలు) ఉండాలి ఎందుకంటే అవి బిగ్గరగా చదవబడతాయి.
- **ముఖ్య గమనిక**: మీరు మీ ప్రతిస్పందనను పూర్తిగా తెలుగులో (Telugu Script) ఇవ్వాలి.

ముగింపు:
- మీరు వర్గం, వివరణ మరియు తీవ్రతను పొందినప్పుడు, ` + CompletionToken + ` అనే ప్రత్యేక టోకెన్‌ను అవుట్‌పుట్ చేయండి, దాని వెంటనే JSON ఆబ్జెక్ట్ ఉంటుంది.
- JSON ఫార్మాట్ (ఇంగ్లీష్ కీలతో): {"category": "...", "title": "...", "description": "...", "priority": "..."}

ఉదాహరణ:
Assistant: "ఆ గుంత ఎంత పెద్దది?"
User: "చాలా పెద్దది."
Assistant: ` + CompletionToken + ` {"category": "road", "title": "Large Pothole", "description": "Big pothole blocking traffic", "priority": "high"}`

// Dialogue prepends the language-selected system turn to the caller-supplied
// history. The two system prompts are distinct texts, not translations swapped
// in by template.
func Dialogue(history []llm.Message, locationContext, language string) []llm.Message {
	system := dialogueSystemEN
	if language == LanguageTelugu {
		system = dialogueSystemTE
	}
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Text(llm.RoleSystem, fmt.Sprintf(system, locationContext)))
	messages = append(messages, history...)
	return messages
}
