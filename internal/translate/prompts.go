package translate

import (
	"fmt"

	"github.com/alkime/saywhat/internal/wizard"
)

func translateSystemPrompt(lang wizard.Language, tone wizard.Tone, summarize bool) string {
	summary := "Leave summary empty."
	if summarize {
		summary = "Write a concise summary (2-3 sentences) of the translated content, in the target language."
	}

	return fmt.Sprintf(`You are a professional translator. Given source content, you will:
- Translate it into %s (%s)
- Use a %s tone throughout
- Preserve meaning, structure, and nuance; keep proper nouns as they are
- Output clean markdown with headings where the source has them
- If the content is an HTML page, translate only the main article text
- %s

When you are done, use the save_translation tool to provide:
1. source_language: The English name of the source language
2. translation: The full translated markdown (no code fences)
3. summary: The summary, or an empty string`, lang.Name, lang.Code, tone, summary)
}

const answerSystemPrompt = `You answer questions about a translated document.
- Use only the document provided; say so plainly if it does not contain the answer
- Answer in the language of the question
- Keep answers short: a few sentences at most`

func bannerPrompt(summary, translation string) string {
	subject := summary
	if subject == "" {
		subject = translation
	}

	const maxSubject = 600
	if r := []rune(subject); len(r) > maxSubject {
		subject = string(r[:maxSubject])
	}

	return "A wide, abstract editorial banner illustration with no text, evoking: " + subject
}
