package interviewer

import (
	"fmt"
	"strings"
)

const resumeContextLimit = 800

func systemPrompt(company, role, interviewType, difficulty, resume string) string {
	resume = truncate(resume, resumeContextLimit)
	if strings.EqualFold(interviewType, "hr") {
		return fmt.Sprintf(`You are an HR interviewer for %s. You're interviewing for the %s position.
Ask behavioral and situational questions at %s difficulty. Keep responses under 50 words.
Resume: %s`, company, role, difficulty, resume)
	}
	return fmt.Sprintf(`You are a technical interviewer for %s. You're interviewing for the %s position.
Ask technical questions at %s difficulty based on the resume and role requirements. Keep responses under 50 words.
Resume: %s`, company, role, difficulty, resume)
}

func firstQuestionPrompt(interviewType string) string {
	return fmt.Sprintf("Start the %s interview with a greeting and first question. Be professional and concise.", interviewType)
}

const followUpPrompt = "Ask a relevant follow-up question or move to the next topic. Keep it concise and professional."

const summaryPrompt = `The interview is over. Evaluate the candidate's performance from the conversation above.
Respond with ONLY a JSON object of this shape:
{"overall_score": <0-10 number>, "rating": "<one-word rating>", "feedback": "<2-3 sentence overall feedback>",
"category_breakdown": {"<topic>": <0-10 number>}, "strengths": ["..."], "improvements": ["..."]}
Skipped questions count against the candidate. Do not add any text outside the JSON.`

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
