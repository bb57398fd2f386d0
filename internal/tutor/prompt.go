package tutor

import (
	"bytes"
	"text/template"
)

// contextWindow is how many recent messages prompts carry as context.
const contextWindow = 5

// socraticWindow is the shorter context used for hints.
const socraticWindow = 3

// promptData is the union of fields the node templates read.
type promptData struct {
	SubtopicName   string
	Transcript     string
	Question       string
	Answer         string
	Feedback       string
	Assessment     string
	Misconception  string
	Misconceptions []*Misconception
	Tier           hintTier
}

var expositionTemplate = template.Must(template.New("exposition").Parse(`You are a patient, encouraging GCSE mathematics tutor,
helping a student learn {{.SubtopicName}}.

Your task: Provide a clear, engaging explanation of this topic.
- Use friendly, age-appropriate language (14-16 years old)
- Include a concrete example
- Keep it concise (2-3 paragraphs)
- End by asking if they have any questions before moving to practice

Do NOT ask a practice question yet - just explain the concept clearly.`))

var followUpTemplate = template.Must(template.New("follow-up").Parse(`You are a patient, encouraging GCSE mathematics tutor,
helping a student learn {{.SubtopicName}}.

The student has asked a follow-up question about the concept you're explaining.

Recent conversation:
{{.Transcript}}

Your task: Answer their question clearly and helpfully.
- Be patient and encouraging
- Provide additional explanation or examples if needed
- Keep it focused on the concept of {{.SubtopicName}}
- After answering, ask if they'd like to try a practice question or have more questions

Do NOT ask a practice question yet unless they explicitly request one.`))

var questionTemplate = template.Must(template.New("question").Parse(`You are a GCSE mathematics tutor teaching {{.SubtopicName}}.

Recent conversation:
{{.Transcript}}

Your task: Ask ONE clear, appropriate practice question.
- Make it suitable for GCSE level
- The question should test understanding of {{.SubtopicName}}
- Be specific and clear about what you're asking
- If the question requires numerical calculation, it should be solvable with basic arithmetic

Just ask the question - no additional explanation needed.`))

var calculatorTemplate = template.Must(template.New("calculator").Parse(`Classify this math question as NUMERICAL or NON_NUMERICAL.

NUMERICAL: Requires actual number computation (e.g., "Calculate 3/4 + 2/5", "What is 15% of 240?")
NON_NUMERICAL: Algebraic manipulation, proofs, concepts (e.g., "Simplify 2x + 3x", "Explain Pythagoras' theorem")

Question: {{.Question}}

Answer with only one word: NUMERICAL or NON_NUMERICAL`))

var evaluationTemplate = template.Must(template.New("evaluation").Parse(`You are evaluating a GCSE mathematics student's answer on {{.SubtopicName}}.

Question: {{.Question}}
Student's answer: {{.Answer}}

Work out how the student approached the problem, not just whether the final
value matches. Respond with JSON in this exact format:
{
    "correctness": "correct" | "partial" | "incorrect",
    "feedback": "Brief feedback for the student (1-2 sentences)",
    "assessment": "What method the student used and where it went wrong, if anywhere"
}

Use "partial" when the method is sound but the answer is incomplete or has a
small slip. Be encouraging even when incorrect. Respond with the JSON only.`))

var diagnosisTemplate = template.Must(template.New("diagnosis").Parse(`You are an expert GCSE mathematics diagnostician. A student answered a
question on {{.SubtopicName}} incorrectly or only partially.

Question: {{.Question}}
Student's answer: {{.Answer}}
{{- if .Assessment}}
Assessment of their method: {{.Assessment}}
{{- end}}

Known misconceptions:
{{range .Misconceptions}}- {{.ID}}: {{.Description}}
{{end}}
Instructions:
- Identify the misconception behind the error. Use one of the IDs above if
  it fits; otherwise give a short label of your own.
- Write exactly ONE diagnostic question that helps the student notice the
  misconception. Do not give the answer.

Respond with JSON in this exact format:
{
    "misconception": "sign-error",
    "question": "Your single diagnostic question"
}`))

var socraticTemplate = template.Must(template.New("socratic").Parse(`You are a GCSE mathematics tutor using the Socratic method to guide a student.

Original question: {{.Question}}
Student's answer: {{.Answer}}
Topic: {{.SubtopicName}}
{{- if .Misconception}}
Suspected misconception: {{.Misconception}}
{{- end}}

Recent conversation:
{{.Transcript}}

THE SOCRATIC METHOD - Critical Guidelines:
1. NEVER give the final answer outright
2. ALWAYS ask exactly ONE question that makes them think
3. Focus on ONE key concept they're missing
4. Guide them to discover the error themselves

Hint level {{.Tier.Level}} ({{.Tier.Name}}): {{.Tier.Guidance}}

Be warm and encouraging. End with your one question.`))

var solutionTemplate = template.Must(template.New("solution").Parse(`You are a patient GCSE mathematics tutor. The student has tried several
times and asked to see the answer.

Question: {{.Question}}
Student's last answer: {{.Answer}}
Topic: {{.SubtopicName}}

Recent conversation:
{{.Transcript}}

Your task: Give a complete, step-by-step worked solution.
- Number each step and say why it is done
- State the final answer clearly at the end
- Keep the tone warm; do not criticise the student's attempts`))

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// hintTier is the escalating specificity of a Socratic hint.
type hintTier struct {
	Level    int
	Name     string
	Guidance string
}

var hintTiers = []hintTier{
	{1, "subtle", "Ask a conceptual question that points at the idea they are missing without naming the step."},
	{2, "directed", "Direct their attention to the specific step where their working went wrong and ask about it."},
	{3, "explicit", "Tell them plainly which step to do next, but ask them to carry it out themselves."},
	{4, "walkthrough", "Work one step of the solution for them, then ask them to do the next step."},
}

// tierFor selects the hint tier from the number of hints given, counting
// the one about to be issued.
func tierFor(hintsGiven int) hintTier {
	switch {
	case hintsGiven <= 1:
		return hintTiers[0]
	case hintsGiven >= len(hintTiers):
		return hintTiers[len(hintTiers)-1]
	default:
		return hintTiers[hintsGiven-1]
	}
}
