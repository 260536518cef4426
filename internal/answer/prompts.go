package answer

import (
	"fmt"
	"strings"
)

const groundedTemplate = `You are a helpful AI assistant. Use the following extracted context from the user's documents to answer the question accurately and comprehensively.

Instructions:
- Base your answer only on the provided context
- If the context doesn't contain relevant information, say clearly that the information is not available in the uploaded documents
- Provide detailed, well-structured answers when possible
- Use markdown formatting for better readability
- Include specific details and examples from the context when relevant

Context from documents:
%s

User Question:
%s

Detailed Answer:
`

const generalTemplate = `You are a helpful AI assistant. The user has asked a question but no relevant information was found in their uploaded documents. Please provide a helpful, general answer based on your knowledge.

User Question: %s

Please provide a comprehensive and helpful answer. If this is a technical question, provide examples and best practices. If it's a general question, provide useful information and context.

Format your response in a clear, organized manner with appropriate sections if needed.`

const questionsTemplate = `You are an expert technical interviewer. Based on the provided tech stack and difficulty level, generate relevant technical interview questions.

Tech Stack: %[1]s
Difficulty Level: %[2]s

Generate 8-12 technical questions based on the tech stack with the specified difficulty level:

**Instructions:**
- For "Easy": Focus on basic concepts, syntax, and fundamental understanding
- For "Medium": Include practical application, problem-solving, and intermediate concepts
- For "Hard": Cover advanced topics, optimization, design patterns, and complex scenarios

**Format your response as:**

# Technical Interview Questions (%[3]s Level)

**Tech Stack Covered:** %[1]s

---

## Questions:

### 1. **Question 1:** [Your question here]
   *Topic: [Related technology/concept]*
   *Expected time: [X minutes]*

[Continue for all questions...]

---

## Interview Tips:
- Allow candidates to think aloud and explain their reasoning
- Look for problem-solving approach, not just correct answers
- Be prepared with follow-up questions based on their responses

Generated Questions:
`

const summaryTemplate = `Summarize the following documents. Start with a one-paragraph overview, then list the key points as bullets. Only use information present in the documents.

Documents:
%s

Summary:
`

// extraction describes one document-wide extraction. All extractions share
// extractionTemplate and differ only in these fields.
type extraction struct {
	Role         string
	Instructions string
	Output       string
}

const extractionTemplate = `%s

DOCUMENT CONTENT:
%s

%s

ONLY include information that is actually present in the document. Do not write placeholder text such as "Not mentioned" or "N/A"; skip anything that is not found.

%s
`

var userInfoExtraction = extraction{
	Role: "You are an expert information extraction specialist. Extract comprehensive user information from this resume or document, paying close attention to technical skills scattered throughout all sections.",
	Instructions: `## User Information

### Personal Details
• **Full Name:**
• **Email Address:**
• **Phone Number:**
• **Current Location:**

### Professional Background
• **Years of Experience:**
• **Desired Position(s):**
• **Current Role:**

### Technical Skills & Technologies
Scan skills sections, work experience, projects, education, certifications and achievements. Group what you find under headings such as Programming Languages, Frontend, Backend, Databases, Cloud, DevOps, Testing, Mobile, Data & Analytics, Tools and Other Technologies.`,
	Output: "**Extracted Information:**",
}

var techStackExtraction = extraction{
	Role: "You are a technical skill detector. Find every technical skill, technology, programming language, framework, library, tool, platform, database and cloud service mentioned anywhere in this document.",
	Instructions: `Look first at sections titled "Skills", "Technical Skills", "Technologies", "Tools", "Programming Languages", "Frameworks", "Software" or "Platforms" and extract every listed item.
Then add technologies mentioned in project descriptions, work experience and education.
Include version numbers when mentioned.`,
	Output: `CRITICAL OUTPUT FORMAT: Return a SINGLE LINE of comma-separated technology names, for example:
"Python, React, Node.js, Docker, AWS, PostgreSQL, Git"
Do not use bullet points, numbering, explanations or multiple lines.

COMPLETE TECHNOLOGY EXTRACTION:`,
}

// skillsSectionExtraction is the single retry used when the tech stack
// answer comes back too short.
var skillsSectionExtraction = extraction{
	Role: "FOCUS ON EXPLICIT SKILLS SECTIONS.",
	Instructions: `Find all sections that list technical skills, such as "Technical Skills", "Programming Languages", "Tools and Frameworks", "Platforms" or "Software", and extract every technology in them.
Also include technologies mentioned in work experience, project descriptions and coursework.`,
	Output: `CRITICAL OUTPUT FORMAT: Return ONLY a single line of comma-separated technology names, for example:
"C/C++, Python, React, NumPy, PyTorch, Git, Linux"

COMPLETE LIST OF ALL TECHNOLOGIES FOUND:`,
}

func (e extraction) prompt(content string) string {
	return fmt.Sprintf(extractionTemplate, e.Role, content, e.Instructions, e.Output)
}

func groundedPrompt(context, question string) string {
	return fmt.Sprintf(groundedTemplate, context, question)
}

func generalPrompt(question string) string {
	return fmt.Sprintf(generalTemplate, question)
}

func questionsPrompt(techStack, difficulty string) string {
	title := strings.ToUpper(difficulty[:1]) + difficulty[1:]
	return fmt.Sprintf(questionsTemplate, techStack, title, strings.ToUpper(difficulty))
}

func summaryPrompt(content string) string {
	return fmt.Sprintf(summaryTemplate, content)
}
